package collect

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/doogleit/hpe-oneview-misc/oneview"
	"github.com/doogleit/hpe-oneview-misc/report"
)

// PortSource is the slice of the appliance API the port-info collector needs.
type PortSource interface {
	interconnectSource
	UplinkSet(ctx context.Context, uri string) (oneview.UplinkSet, error)
	EthernetNetwork(ctx context.Context, uri string) (oneview.EthernetNetwork, error)
}

// PortInfo emits one record per linked Ethernet uplink port, resolving each
// port's uplink set and its VLAN list. Records produced before a failing
// fetch are returned alongside the error.
func PortInfo(ctx context.Context, src PortSource, opts Options) ([]report.PortInfo, Summary, error) {
	log := opts.logger()

	ics, err := scopedInterconnects(ctx, src, opts)
	if err != nil {
		return nil, Summary{}, err
	}

	// uplink sets and networks are shared between ports, fetch each once
	uplinkSets := map[string]oneview.UplinkSet{}
	vlans := map[string]string{}

	var records []report.PortInfo
	var sum Summary
	for _, ic := range ics {
		if !wantInterconnect(ic) {
			log.Debug("skipping interconnect", zap.String("name", ic.Name), zap.String("model", ic.Model))
			sum.Skipped++
			continue
		}
		for _, p := range ic.Ports {
			if !wantPort(p) {
				sum.Skipped++
				continue
			}

			rec := report.PortInfo{
				Enclosure:     ic.EnclosureName,
				Interconnect:  ic.Name,
				Port:          p.PortName,
				RemoteSystem:  p.Neighbor.RemoteSystemName,
				RemotePort:    p.Neighbor.RemotePortID,
				RemoteAddress: p.Neighbor.RemoteMgmtAddress,
			}

			if uri := p.AssociatedUplinkSetURI; uri != "" {
				us, ok := uplinkSets[uri]
				if !ok {
					us, err = src.UplinkSet(ctx, uri)
					if err != nil {
						if opts.SkipErrors {
							log.Warn("skipping port, uplink set fetch failed",
								zap.String("port", p.PortName), zap.Error(err))
							sum.Skipped++
							continue
						}
						return records, sum, err
					}
					uplinkSets[uri] = us
				}
				rec.UplinkSet = us.Name

				ids, err := vlanList(ctx, src, us, vlans)
				if err != nil {
					if opts.SkipErrors {
						log.Warn("skipping port, network fetch failed",
							zap.String("port", p.PortName), zap.Error(err))
						sum.Skipped++
						continue
					}
					return records, sum, err
				}
				rec.VLANs = ids
			}

			records = append(records, rec)
			sum.Emitted++
		}
	}
	return records, sum, nil
}

// vlanList joins the VLAN ids of the uplink set's networks in network order.
func vlanList(ctx context.Context, src PortSource, us oneview.UplinkSet, cache map[string]string) (string, error) {
	ids := make([]string, 0, len(us.NetworkURIs))
	for _, uri := range us.NetworkURIs {
		id, ok := cache[uri]
		if !ok {
			n, err := src.EthernetNetwork(ctx, uri)
			if err != nil {
				return "", err
			}
			id = strconv.Itoa(n.VlanID)
			cache[uri] = id
		}
		ids = append(ids, id)
	}
	return strings.Join(ids, ", "), nil
}
