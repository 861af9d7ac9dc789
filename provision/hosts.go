package provision

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Host is one row of the rack provisioning input CSV.
type Host struct {
	Hostname string
	ILOIP    string
	Username string
	Password string
}

var hostColumns = []string{"Hostname", "iLOIP", "Username", "Password"}

// ReadHosts parses the provisioning input CSV. The header must carry exactly
// the required columns (order-insensitive); any malformed row is a fatal
// input error, caught before the first device call.
func ReadHosts(r io.Reader) ([]Host, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read csv header")
	}

	idx := map[string]int{}
	for i, col := range header {
		idx[strings.TrimSpace(col)] = i
	}
	for _, col := range hostColumns {
		if _, ok := idx[col]; !ok {
			return nil, errors.Errorf("input csv missing required column %q", col)
		}
	}

	var hosts []Host
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read csv line %d", line)
		}

		h := Host{
			Hostname: strings.TrimSpace(row[idx["Hostname"]]),
			ILOIP:    strings.TrimSpace(row[idx["iLOIP"]]),
			Username: strings.TrimSpace(row[idx["Username"]]),
			Password: row[idx["Password"]],
		}
		if h.Hostname == "" || h.ILOIP == "" {
			return nil, errors.Errorf("csv line %d: Hostname and iLOIP are required", line)
		}
		hosts = append(hosts, h)
	}
	if len(hosts) == 0 {
		return nil, errors.New("input csv has no host rows")
	}
	return hosts, nil
}

// ReadHostsFile is ReadHosts over a file path.
func ReadHostsFile(path string) ([]Host, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open host csv")
	}
	defer f.Close()
	return ReadHosts(f)
}
