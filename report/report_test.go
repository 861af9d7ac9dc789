package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFirstSample(t *testing.T) {
	tests := []struct {
		history string
		want    string
	}{
		{"100:200:300", "100"},
		{"0:0:0", "0"},
		{"1536.5:100", "1536.5"},
		{"42", "42"},
		{"", ""},
		{" 7 :8", "7"},
	}

	for _, test := range tests {
		got := FirstSample(test.history)
		if got != test.want {
			t.Errorf("history: %q, want: %q, got: %q", test.history, test.want, got)
		}
	}
}

func TestToMbps(t *testing.T) {
	tests := []struct {
		kbps string
		want string
	}{
		{"1024", "1.0"},
		{"1536", "1.5"},
		{"0", "0.0"},
		{"100", "0.1"},
		{"10240", "10.0"},
		{"51.2", "0.1"},
	}

	for _, test := range tests {
		got, err := ToMbps(test.kbps)
		if err != nil {
			t.Fatalf("kbps: %q, unexpected error: %v", test.kbps, err)
		}
		if got != test.want {
			t.Errorf("kbps: %q, want: %q, got: %q", test.kbps, test.want, got)
		}
	}

	_, err := ToMbps("not-a-number")
	require.Error(t, err)
	_, err = ToMbps("")
	require.Error(t, err)
}

func TestFilename(t *testing.T) {
	now := time.Date(2024, 3, 7, 15, 4, 59, 0, time.UTC)
	assert := require.New(t)
	assert.Equal("UplinkPortInfo-All-2024.03.07.1504.csv", Filename("UplinkPortInfo", "All", now))
	assert.Equal("WarrantyReport-encl1-2024.03.07.1504.csv", Filename("WarrantyReport", "encl1", now))
}

func TestWriteCSV(t *testing.T) {
	assert := require.New(t)

	var buf bytes.Buffer
	rows := [][]string{
		{"a", "1"},
		{"b", "has,comma"},
	}
	assert.NoError(WriteCSV(&buf, []string{"Name", "Value"}, rows))
	assert.Equal("Name,Value\na,1\nb,\"has,comma\"\n", buf.String())
}

func TestRowsMatchHeaders(t *testing.T) {
	assert := require.New(t)
	assert.Len(PortInfo{}.Row(), len(PortInfoHeader()))
	assert.Len(PortStats{}.Row(), len(PortStatsHeader(false)))
	assert.Len(PortStats{}.Row(), len(PortStatsHeader(true)))
	assert.Len(Warranty{}.Row(), len(WarrantyHeader()))
}

func TestPortStatsHeaderUnit(t *testing.T) {
	assert := require.New(t)
	assert.Contains(PortStatsHeader(false), "RxKbps")
	assert.Contains(PortStatsHeader(true), "RxMbps")
}
