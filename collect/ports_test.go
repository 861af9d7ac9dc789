package collect

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/doogleit/hpe-oneview-misc/oneview"
)

type fakePortSource struct {
	interconnects []oneview.Interconnect
	uplinkSets    map[string]oneview.UplinkSet
	networks      map[string]oneview.EthernetNetwork

	networkErr map[string]error
	uplinkErr  map[string]error

	networkFetches int
}

func (f *fakePortSource) Interconnects(_ context.Context) ([]oneview.Interconnect, error) {
	return f.interconnects, nil
}

func (f *fakePortSource) InterconnectByName(_ context.Context, name string) (oneview.Interconnect, error) {
	for _, ic := range f.interconnects {
		if ic.Name == name {
			return ic, nil
		}
	}
	return oneview.Interconnect{}, errors.Errorf("interconnect %q not found", name)
}

func (f *fakePortSource) UplinkSet(_ context.Context, uri string) (oneview.UplinkSet, error) {
	if err := f.uplinkErr[uri]; err != nil {
		return oneview.UplinkSet{}, err
	}
	us, ok := f.uplinkSets[uri]
	if !ok {
		return oneview.UplinkSet{}, errors.Errorf("no uplink set at %s", uri)
	}
	return us, nil
}

func (f *fakePortSource) EthernetNetwork(_ context.Context, uri string) (oneview.EthernetNetwork, error) {
	f.networkFetches++
	if err := f.networkErr[uri]; err != nil {
		return oneview.EthernetNetwork{}, err
	}
	n, ok := f.networks[uri]
	if !ok {
		return oneview.EthernetNetwork{}, errors.Errorf("no network at %s", uri)
	}
	return n, nil
}

func uplinkPort(name string) oneview.Port {
	return oneview.Port{
		PortName:   name,
		PortType:   "Uplink",
		PortStatus: "Linked",
		Capability: []string{"Ethernet", "FibreChannel"},
		Neighbor: oneview.Neighbor{
			RemoteSystemName:  "sw1",
			RemotePortID:      "Eth1/1",
			RemoteMgmtAddress: "10.0.0.250",
		},
	}
}

func TestPortInfoFilters(t *testing.T) {
	assert := require.New(t)

	good := uplinkPort("X1")
	good.AssociatedUplinkSetURI = "/rest/uplink-sets/us1"

	downlink := uplinkPort("d1")
	downlink.PortType = "Downlink"

	unlinked := uplinkPort("X2")
	unlinked.PortStatus = "Unlinked"

	fcOnly := uplinkPort("X3")
	fcOnly.Capability = []string{"FibreChannel"}

	src := &fakePortSource{
		interconnects: []oneview.Interconnect{
			{
				Name:          "encl1, interconnect 1",
				Model:         "HP VC FlexFabric 10Gb/24-Port Module",
				EnclosureName: "encl1",
				Ports:         []oneview.Port{good, downlink, unlinked, fcOnly},
			},
			{
				Name:  "encl1, interconnect 3",
				Model: "HP VC FlexFabric-20/40 F8 Module",
				Ports: []oneview.Port{},
			},
			{
				// wrong model, ports must never be visited
				Name:  "encl1, interconnect 5",
				Model: "HP VC Fibre Channel Module",
				Ports: []oneview.Port{uplinkPort("X9")},
			},
		},
		uplinkSets: map[string]oneview.UplinkSet{
			"/rest/uplink-sets/us1": {
				Name:        "Prod",
				NetworkURIs: []string{"/rest/ethernet-networks/n10", "/rest/ethernet-networks/n20"},
			},
		},
		networks: map[string]oneview.EthernetNetwork{
			"/rest/ethernet-networks/n10": {Name: "vlan10", VlanID: 10},
			"/rest/ethernet-networks/n20": {Name: "vlan20", VlanID: 20},
		},
	}

	records, sum, err := PortInfo(context.Background(), src, Options{})
	assert.NoError(err)
	assert.Len(records, 1)
	assert.Equal(1, sum.Emitted)
	// 3 filtered ports + 1 filtered interconnect
	assert.Equal(4, sum.Skipped)

	rec := records[0]
	assert.Equal("encl1", rec.Enclosure)
	assert.Equal("X1", rec.Port)
	assert.Equal("sw1", rec.RemoteSystem)
	assert.Equal("Eth1/1", rec.RemotePort)
	assert.Equal("10.0.0.250", rec.RemoteAddress)
	assert.Equal("Prod", rec.UplinkSet)
	assert.Equal("10, 20", rec.VLANs)
}

func TestPortInfoVLANOrderAndCache(t *testing.T) {
	assert := require.New(t)

	p1 := uplinkPort("X1")
	p1.AssociatedUplinkSetURI = "/rest/uplink-sets/us1"
	p2 := uplinkPort("X2")
	p2.AssociatedUplinkSetURI = "/rest/uplink-sets/us1"

	src := &fakePortSource{
		interconnects: []oneview.Interconnect{{
			Name:  "ic1",
			Model: "FlexFabric",
			Ports: []oneview.Port{p1, p2},
		}},
		uplinkSets: map[string]oneview.UplinkSet{
			"/rest/uplink-sets/us1": {
				Name: "Prod",
				// deliberately not sorted, output must preserve this order
				NetworkURIs: []string{"/rest/ethernet-networks/n30", "/rest/ethernet-networks/n10"},
			},
		},
		networks: map[string]oneview.EthernetNetwork{
			"/rest/ethernet-networks/n30": {VlanID: 30},
			"/rest/ethernet-networks/n10": {VlanID: 10},
		},
	}

	records, _, err := PortInfo(context.Background(), src, Options{})
	assert.NoError(err)
	assert.Len(records, 2)
	assert.Equal("30, 10", records[0].VLANs)
	assert.Equal("30, 10", records[1].VLANs)
	// both ports share the uplink set, each network is fetched once
	assert.Equal(2, src.networkFetches)
}

func TestPortInfoEmptyNetworkList(t *testing.T) {
	assert := require.New(t)

	p := uplinkPort("X1")
	p.AssociatedUplinkSetURI = "/rest/uplink-sets/empty"

	src := &fakePortSource{
		interconnects: []oneview.Interconnect{{
			Name:  "ic1",
			Model: "FlexFabric",
			Ports: []oneview.Port{p},
		}},
		uplinkSets: map[string]oneview.UplinkSet{
			"/rest/uplink-sets/empty": {Name: "Empty"},
		},
	}

	records, _, err := PortInfo(context.Background(), src, Options{})
	assert.NoError(err)
	assert.Len(records, 1)
	assert.Equal("", records[0].VLANs)
}

func TestPortInfoScope(t *testing.T) {
	assert := require.New(t)

	p := uplinkPort("X1")
	src := &fakePortSource{
		interconnects: []oneview.Interconnect{
			{Name: "ic1", Model: "FlexFabric", Ports: []oneview.Port{p}},
			{Name: "ic2", Model: "FlexFabric", Ports: []oneview.Port{p}},
		},
	}

	records, _, err := PortInfo(context.Background(), src, Options{Scope: "ic2"})
	assert.NoError(err)
	assert.Len(records, 1)
	assert.Equal("ic2", records[0].Interconnect)

	_, _, err = PortInfo(context.Background(), src, Options{Scope: "nope"})
	assert.Error(err)
}

func TestPortInfoErrorSemantics(t *testing.T) {
	assert := require.New(t)

	p1 := uplinkPort("X1")
	p1.AssociatedUplinkSetURI = "/rest/uplink-sets/bad"
	p2 := uplinkPort("X2")
	p2.AssociatedUplinkSetURI = "/rest/uplink-sets/us1"

	newSrc := func() *fakePortSource {
		return &fakePortSource{
			interconnects: []oneview.Interconnect{{
				Name:  "ic1",
				Model: "FlexFabric",
				Ports: []oneview.Port{p1, p2},
			}},
			uplinkSets: map[string]oneview.UplinkSet{
				"/rest/uplink-sets/us1": {Name: "Prod"},
			},
			uplinkErr: map[string]error{
				"/rest/uplink-sets/bad": errors.New("boom"),
			},
		}
	}

	// default: first per-entity failure aborts the run
	_, _, err := PortInfo(context.Background(), newSrc(), Options{})
	assert.Error(err)

	// skip-errors: the failing port is dropped, the run continues
	records, sum, err := PortInfo(context.Background(), newSrc(), Options{SkipErrors: true})
	assert.NoError(err)
	assert.Len(records, 1)
	assert.Equal("X2", records[0].Port)
	assert.Equal(1, sum.Skipped)
}
