package collect

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/doogleit/hpe-oneview-misc/oneview"
)

type fakeWarrantySource struct {
	servers      []oneview.ServerHardware
	enclosures   []oneview.Enclosure
	entitlements map[string]oneview.Entitlement
	entErr       map[string]error
}

func (f *fakeWarrantySource) Enclosures(_ context.Context) ([]oneview.Enclosure, error) {
	return f.enclosures, nil
}

func (f *fakeWarrantySource) EnclosureByName(_ context.Context, name string) (oneview.Enclosure, error) {
	for _, e := range f.enclosures {
		if e.Name == name {
			return e, nil
		}
	}
	return oneview.Enclosure{}, errors.Errorf("enclosure %q not found", name)
}

func (f *fakeWarrantySource) ServerHardware(_ context.Context) ([]oneview.ServerHardware, error) {
	return f.servers, nil
}

func (f *fakeWarrantySource) ServerHardwareByName(_ context.Context, name string) (oneview.ServerHardware, error) {
	for _, s := range f.servers {
		if s.Name == name {
			return s, nil
		}
	}
	return oneview.ServerHardware{}, errors.Errorf("server %q not found", name)
}

func (f *fakeWarrantySource) Entitlement(_ context.Context, uri string) (oneview.Entitlement, error) {
	if err := f.entErr[uri]; err != nil {
		return oneview.Entitlement{}, err
	}
	return f.entitlements[uri], nil
}

func warrantyFixture() *fakeWarrantySource {
	return &fakeWarrantySource{
		servers: []oneview.ServerHardware{
			{URI: "/rest/server-hardware/s1", Name: "encl1, bay 1", Model: "ProLiant BL460c Gen9", SerialNumber: "SN1"},
			{URI: "/rest/server-hardware/s2", Name: "encl1, bay 2", EnclosureModel: "BL460c Gen8", SerialNumber: "SN2"},
		},
		enclosures: []oneview.Enclosure{
			{URI: "/rest/enclosures/e1", Name: "encl1", Model: "BladeSystem c7000", SerialNumber: "SNE"},
		},
		entitlements: map[string]oneview.Entitlement{
			"/rest/server-hardware/s1": {ObligationID: "OB1", ObligationEndDate: "2026-01-31", EntitlementStatus: "Valid"},
			"/rest/server-hardware/s2": {ObligationID: "OB2", ObligationEndDate: "2024-06-30", EntitlementStatus: "Expired"},
			"/rest/enclosures/e1":      {ObligationID: "OB3", ObligationEndDate: "2027-12-31", EntitlementStatus: "Valid"},
		},
	}
}

func TestWarrantyAll(t *testing.T) {
	assert := require.New(t)

	records, sum, err := Warranty(context.Background(), warrantyFixture(), WarrantyScope{}, Options{})
	assert.NoError(err)
	assert.Equal(3, sum.Emitted)
	assert.Len(records, 3)

	// servers first, enclosures after
	assert.Equal("encl1, bay 1", records[0].Name)
	assert.Equal("ProLiant BL460c Gen9", records[0].Model)
	assert.Equal("OB1", records[0].ObligationID)
	assert.Equal("encl1", records[2].Name)
	assert.Equal("BladeSystem c7000", records[2].Model)
}

func TestWarrantyModelFallback(t *testing.T) {
	assert := require.New(t)

	records, _, err := Warranty(context.Background(), warrantyFixture(), WarrantyScope{Server: "encl1, bay 2"}, Options{})
	assert.NoError(err)
	assert.Len(records, 1)
	// Model is blank on this server, the enclosure model fills in
	assert.Equal("BL460c Gen8", records[0].Model)
	assert.Equal("Expired", records[0].EntitlementStatus)
}

func TestWarrantyScopes(t *testing.T) {
	assert := require.New(t)
	src := warrantyFixture()

	records, _, err := Warranty(context.Background(), src, WarrantyScope{Enclosure: "encl1"}, Options{})
	assert.NoError(err)
	assert.Len(records, 1)
	assert.Equal("encl1", records[0].Name)

	_, _, err = Warranty(context.Background(), src, WarrantyScope{Server: "nope"}, Options{})
	assert.Error(err)
}

func TestWarrantyErrorSemantics(t *testing.T) {
	assert := require.New(t)

	src := warrantyFixture()
	src.entErr = map[string]error{
		"/rest/server-hardware/s1": errors.New("boom"),
	}

	_, _, err := Warranty(context.Background(), src, WarrantyScope{}, Options{})
	assert.Error(err)

	records, sum, err := Warranty(context.Background(), src, WarrantyScope{}, Options{SkipErrors: true})
	assert.NoError(err)
	assert.Len(records, 2)
	assert.Equal(1, sum.Skipped)
	assert.Equal("encl1, bay 2", records[0].Name)
}
