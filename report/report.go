// Package report holds the flat record types emitted by the collectors and
// the CSV plumbing shared between them.
package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// PortInfo is one row of the uplink port report.
type PortInfo struct {
	Enclosure     string
	Interconnect  string
	Port          string
	RemoteSystem  string
	RemotePort    string
	RemoteAddress string
	UplinkSet     string
	VLANs         string
}

// PortInfoHeader is the CSV header for PortInfo rows.
func PortInfoHeader() []string {
	return []string{"Enclosure", "Interconnect", "Port", "RemoteSystem", "RemotePort", "RemoteAddress", "UplinkSet", "VLANs"}
}

// Row returns the record as a CSV row, field order matching PortInfoHeader.
func (r PortInfo) Row() []string {
	return []string{r.Enclosure, r.Interconnect, r.Port, r.RemoteSystem, r.RemotePort, r.RemoteAddress, r.UplinkSet, r.VLANs}
}

// PortStats is one row of the uplink port statistics report. Rates hold the
// most recent sample only.
type PortStats struct {
	Enclosure    string
	Interconnect string
	Port         string
	RxRate       string
	TxRate       string
	RxPackets    string
	TxPackets    string
}

// PortStatsHeader returns the CSV header for PortStats rows. The rate unit
// depends on whether megabit conversion was requested.
func PortStatsHeader(mbps bool) []string {
	unit := "Kbps"
	if mbps {
		unit = "Mbps"
	}
	return []string{"Enclosure", "Interconnect", "Port", "Rx" + unit, "Tx" + unit, "RxPps", "TxPps"}
}

// Row returns the record as a CSV row, field order matching PortStatsHeader.
func (r PortStats) Row() []string {
	return []string{r.Enclosure, r.Interconnect, r.Port, r.RxRate, r.TxRate, r.RxPackets, r.TxPackets}
}

// Warranty is one row of the warranty/entitlement report.
type Warranty struct {
	Name              string
	Model             string
	PartNumber        string
	SerialNumber      string
	ObligationID      string
	ObligationEndDate string
	EntitlementStatus string
}

// WarrantyHeader is the CSV header for Warranty rows.
func WarrantyHeader() []string {
	return []string{"Name", "Model", "PartNumber", "SerialNumber", "ObligationId", "ObligationEndDate", "EntitlementStatus"}
}

// Row returns the record as a CSV row, field order matching WarrantyHeader.
func (r Warranty) Row() []string {
	return []string{r.Name, r.Model, r.PartNumber, r.SerialNumber, r.ObligationID, r.ObligationEndDate, r.EntitlementStatus}
}

// Filename builds the default report file name, <Kind>-<Scope>-<timestamp>.csv.
func Filename(kind, scope string, now time.Time) string {
	return kind + "-" + scope + "-" + now.Format("2006.01.02.1504") + ".csv"
}

// WriteCSV writes a header row followed by the data rows.
func WriteCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "write csv row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

// FirstSample returns the most recent measurement from a colon-delimited
// sample history. An empty history yields an empty string.
func FirstSample(history string) string {
	if history == "" {
		return ""
	}
	if i := strings.IndexByte(history, ':'); i >= 0 {
		return strings.TrimSpace(history[:i])
	}
	return strings.TrimSpace(history)
}

// ToMbps converts a kilobits-per-second value to megabits-per-second, rounded
// to one decimal place.
func ToMbps(kbps string) (string, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(kbps), 64)
	if err != nil {
		return "", errors.Wrapf(err, "parse rate %q", kbps)
	}
	return strconv.FormatFloat(v/1024, 'f', 1, 64), nil
}
