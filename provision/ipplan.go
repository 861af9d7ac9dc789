// Package provision implements the one-time provisioning procedures: the
// Onboard Administrator configuration sequence and the rack host workflow.
package provision

import (
	"fmt"

	"github.com/pkg/errors"
	"inet.af/netaddr"
)

// interconnect bays per enclosure; EBIPA always addresses all four
const interconnectBays = 4

// maxDeviceBays caps the device-bay range of a c7000 chassis.
const maxDeviceBays = 16

// Site holds the location-dependent parameters applied during OA setup.
type Site struct {
	Name               string
	Netmask            string
	Gateway            string
	DNS                []string
	NTP                []string
	Timezone           string
	AlertmailRecipient string
	AlertmailDomain    string
	SNMPCommunity      string
	SNMPTrapSink       string
}

// sites maps the first three octets of the OA address to its site parameters.
// The set is exhaustive: an OA on any other subnet is a configuration error.
var sites = map[string]Site{
	"10.1.10": {
		Name:               "dc-east",
		Netmask:            "255.255.255.0",
		Gateway:            "10.1.10.1",
		DNS:                []string{"10.1.1.11", "10.1.1.12"},
		NTP:                []string{"10.1.1.21", "10.1.1.22"},
		Timezone:           "EST5EDT",
		AlertmailRecipient: "hw-alerts",
		AlertmailDomain:    "east.example.com",
		SNMPCommunity:      "enclmon",
		SNMPTrapSink:       "10.1.1.31",
	},
	"10.2.10": {
		Name:               "dc-west",
		Netmask:            "255.255.255.0",
		Gateway:            "10.2.10.1",
		DNS:                []string{"10.2.1.11", "10.2.1.12"},
		NTP:                []string{"10.2.1.21", "10.2.1.22"},
		Timezone:           "PST8PDT",
		AlertmailRecipient: "hw-alerts",
		AlertmailDomain:    "west.example.com",
		SNMPCommunity:      "enclmon",
		SNMPTrapSink:       "10.2.1.31",
	},
}

// SiteFor resolves the site parameters for an OA address. Unlike the old
// scripts this fails fast on an unknown subnet instead of silently leaving
// the location parameters blank.
func SiteFor(oaIP netaddr.IP) (Site, error) {
	if !oaIP.Is4() {
		return Site{}, errors.Errorf("oa address %s: only IPv4 is supported", oaIP)
	}
	o := oaIP.As4()
	prefix := fmt.Sprintf("%d.%d.%d", o[0], o[1], o[2])

	site, ok := sites[prefix]
	if !ok {
		return Site{}, errors.Errorf("oa address %s: subnet %s.0/24 is not in the site table", oaIP, prefix)
	}
	return site, nil
}

// IPPlan is the contiguous address block derived from the primary OA address:
// OA2 immediately follows OA1, then the four interconnect bays, then one
// address per populated device bay.
type IPPlan struct {
	OA1           netaddr.IP
	OA2           netaddr.IP
	Interconnects []netaddr.IP
	DeviceBays    []netaddr.IP
}

// NewIPPlan derives the address block for an enclosure with device bays
// populated through lastSlot.
func NewIPPlan(oa1 netaddr.IP, lastSlot int) (IPPlan, error) {
	if !oa1.Is4() {
		return IPPlan{}, errors.Errorf("oa address %s: only IPv4 is supported", oa1)
	}
	if lastSlot < 1 || lastSlot > maxDeviceBays {
		return IPPlan{}, errors.Errorf("last slot %d out of range 1..%d", lastSlot, maxDeviceBays)
	}

	plan := IPPlan{OA1: oa1}
	next := oa1.Next()
	plan.OA2 = next

	for i := 0; i < interconnectBays; i++ {
		next = next.Next()
		plan.Interconnects = append(plan.Interconnects, next)
	}
	for i := 0; i < lastSlot; i++ {
		next = next.Next()
		plan.DeviceBays = append(plan.DeviceBays, next)
	}

	// the whole block must stay inside the OA's own /24
	if oa1.As4()[2] != next.As4()[2] || oa1.As4()[1] != next.As4()[1] {
		return IPPlan{}, errors.Errorf("address block starting at %s overflows the subnet", oa1)
	}
	return plan, nil
}
