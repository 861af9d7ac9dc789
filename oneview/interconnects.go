package oneview

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// Interconnect is a networking module inside an enclosure.
type Interconnect struct {
	URI           string `json:"uri"`
	Name          string `json:"name"`
	Model         string `json:"model"`
	EnclosureName string `json:"enclosureName"`
	Ports         []Port `json:"ports"`
}

// Port is a single physical port on an interconnect. Neighbor carries the
// LLDP discovery record of whatever the port is cabled to.
type Port struct {
	PortName               string   `json:"portName"`
	PortType               string   `json:"portType"`
	PortStatus             string   `json:"portStatus"`
	Capability             []string `json:"capability"`
	AssociatedUplinkSetURI string   `json:"associatedUplinkSetUri"`
	Neighbor               Neighbor `json:"neighbor"`
}

// Neighbor is the LLDP remote system record for a port.
type Neighbor struct {
	RemoteSystemName  string `json:"remoteSystemName"`
	RemotePortID      string `json:"remotePortId"`
	RemoteMgmtAddress string `json:"remoteMgmtAddress"`
}

// UplinkSet groups networks onto uplink ports.
type UplinkSet struct {
	URI         string   `json:"uri"`
	Name        string   `json:"name"`
	NetworkURIs []string `json:"networkUris"`
}

// EthernetNetwork is a tagged network referenced by an uplink set.
type EthernetNetwork struct {
	URI    string `json:"uri"`
	Name   string `json:"name"`
	VlanID int    `json:"vlanId"`
}

// AdvancedStatistics holds the per-metric sample histories for a port. Each
// field is a colon-delimited sequence of 5-minute averages, most recent first.
type AdvancedStatistics struct {
	ReceiveKilobitsPerSecond  string `json:"receiveKilobitsPerSecond"`
	TransmitKilobitsPerSecond string `json:"transmitKilobitsPerSecond"`
	ReceivePacketsPerSecond   string `json:"receivePacketsPerSecond"`
	TransmitPacketsPerSecond  string `json:"transmitPacketsPerSecond"`
}

// PortStatistics is the statistics blob for a single port.
type PortStatistics struct {
	PortName           string             `json:"portName"`
	AdvancedStatistics AdvancedStatistics `json:"advancedStatistics"`
}

// Interconnects returns every interconnect known to the appliance.
func (c *Client) Interconnects(ctx context.Context) ([]Interconnect, error) {
	var ics []Interconnect
	err := c.getPages(ctx, "/rest/interconnects", nil, func(members []json.RawMessage) error {
		for _, m := range members {
			var ic Interconnect
			if err := json.Unmarshal(m, &ic); err != nil {
				return errors.Wrap(err, "decode interconnect")
			}
			ics = append(ics, ic)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "list interconnects")
	}
	return ics, nil
}

// InterconnectByName returns the named interconnect or an error when the
// appliance does not know it.
func (c *Client) InterconnectByName(ctx context.Context, name string) (Interconnect, error) {
	q := url.Values{}
	q.Set("filter", `name='`+name+`'`)

	var res struct {
		Members []Interconnect `json:"members"`
	}
	if err := c.get(ctx, "/rest/interconnects", q, &res); err != nil {
		return Interconnect{}, errors.Wrap(err, "get interconnect")
	}
	if len(res.Members) != 1 {
		return Interconnect{}, errors.Errorf("interconnect %q: expected exactly one match, got %d", name, len(res.Members))
	}
	return res.Members[0], nil
}

// UplinkSet fetches the uplink set at the given resource URI.
func (c *Client) UplinkSet(ctx context.Context, uri string) (UplinkSet, error) {
	var us UplinkSet
	if err := c.get(ctx, uri, nil, &us); err != nil {
		return UplinkSet{}, errors.Wrap(err, "get uplink set")
	}
	return us, nil
}

// EthernetNetwork fetches the network at the given resource URI.
func (c *Client) EthernetNetwork(ctx context.Context, uri string) (EthernetNetwork, error) {
	var n EthernetNetwork
	if err := c.get(ctx, uri, nil, &n); err != nil {
		return EthernetNetwork{}, errors.Wrap(err, "get ethernet network")
	}
	return n, nil
}

// PortStatistics fetches the statistics blob for one port of an interconnect.
func (c *Client) PortStatistics(ctx context.Context, interconnectURI, portName string) (PortStatistics, error) {
	// port names contain colons (d1:1:x1) which OneView expects escaped
	path := interconnectURI + "/statistics/" + strings.ReplaceAll(portName, ":", "%3A")

	var ps PortStatistics
	if err := c.get(ctx, path, nil, &ps); err != nil {
		return PortStatistics{}, errors.Wrapf(err, "get statistics for port %s", portName)
	}
	if ps.PortName == "" {
		ps.PortName = portName
	}
	return ps, nil
}
