package provision

import (
	"testing"

	"github.com/stretchr/testify/require"
	"inet.af/netaddr"
)

func TestNewIPPlan(t *testing.T) {
	assert := require.New(t)

	plan, err := NewIPPlan(netaddr.MustParseIP("10.0.0.1"), 4)
	assert.NoError(err)

	assert.Equal("10.0.0.1", plan.OA1.String())
	assert.Equal("10.0.0.2", plan.OA2.String())

	assert.Len(plan.Interconnects, 4)
	assert.Equal("10.0.0.3", plan.Interconnects[0].String())
	assert.Equal("10.0.0.6", plan.Interconnects[3].String())

	assert.Len(plan.DeviceBays, 4)
	assert.Equal("10.0.0.7", plan.DeviceBays[0].String())
	assert.Equal("10.0.0.10", plan.DeviceBays[3].String())
}

func TestNewIPPlanFullChassis(t *testing.T) {
	assert := require.New(t)

	plan, err := NewIPPlan(netaddr.MustParseIP("10.1.10.9"), 16)
	assert.NoError(err)
	assert.Len(plan.DeviceBays, 16)
	assert.Equal("10.1.10.26", plan.DeviceBays[15].String())
}

func TestNewIPPlanRange(t *testing.T) {
	assert := require.New(t)

	_, err := NewIPPlan(netaddr.MustParseIP("10.0.0.1"), 0)
	assert.Error(err)
	_, err = NewIPPlan(netaddr.MustParseIP("10.0.0.1"), 17)
	assert.Error(err)
	_, err = NewIPPlan(netaddr.MustParseIP("2001:db8::1"), 4)
	assert.Error(err)
}

func TestNewIPPlanOverflow(t *testing.T) {
	// 2 + 4 + 16 addresses past .250 cross into the next /24
	_, err := NewIPPlan(netaddr.MustParseIP("10.0.0.250"), 16)
	require.Error(t, err)
}

func TestSiteFor(t *testing.T) {
	assert := require.New(t)

	site, err := SiteFor(netaddr.MustParseIP("10.1.10.9"))
	assert.NoError(err)
	assert.Equal("dc-east", site.Name)
	assert.Equal("10.1.10.1", site.Gateway)
	assert.Equal("EST5EDT", site.Timezone)

	site, err = SiteFor(netaddr.MustParseIP("10.2.10.41"))
	assert.NoError(err)
	assert.Equal("dc-west", site.Name)

	_, err = SiteFor(netaddr.MustParseIP("192.168.1.9"))
	assert.Error(err)
	assert.Contains(err.Error(), "site table")

	_, err = SiteFor(netaddr.MustParseIP("2001:db8::1"))
	assert.Error(err)
}
