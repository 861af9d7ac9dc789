package oneview

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/h2non/gock.v1"
)

const testAppliance = "appliance.example.com"

// testClient returns a client whose transport is intercepted by gock.
func testClient(t *testing.T) *Client {
	t.Helper()
	hc := &http.Client{}
	gock.InterceptClient(hc)
	t.Cleanup(gock.Off)

	c, err := NewClient(testAppliance, HTTPClient(hc))
	require.NoError(t, err)
	return c
}

func TestLogin(t *testing.T) {
	assert := require.New(t)
	c := testClient(t)

	gock.New("https://" + testAppliance).
		Post("/rest/login-sessions").
		MatchHeader("X-Api-Version", "2000").
		JSON(map[string]string{"userName": "admin", "password": "secret"}).
		Reply(200).
		JSON(map[string]string{"sessionID": "token-1"})

	assert.NoError(c.Login(context.Background(), "admin", "secret"))
	assert.Equal("token-1", c.SessionID())
}

func TestLoginRejected(t *testing.T) {
	assert := require.New(t)
	c := testClient(t)

	gock.New("https://" + testAppliance).
		Post("/rest/login-sessions").
		Reply(400).
		JSON(map[string]string{"message": "Invalid username or password"})

	err := c.Login(context.Background(), "admin", "wrong")
	assert.Error(err)
	assert.Empty(c.SessionID())
}

func TestSessionHeader(t *testing.T) {
	assert := require.New(t)
	c := testClient(t)

	gock.New("https://" + testAppliance).
		Post("/rest/login-sessions").
		Reply(200).
		JSON(map[string]string{"sessionID": "token-2"})

	gock.New("https://" + testAppliance).
		Get("/rest/ethernet-networks/n10").
		MatchHeader("Auth", "token-2").
		Reply(200).
		JSON(map[string]interface{}{"uri": "/rest/ethernet-networks/n10", "name": "vlan10", "vlanId": 10})

	assert.NoError(c.Login(context.Background(), "admin", "secret"))
	n, err := c.EthernetNetwork(context.Background(), "/rest/ethernet-networks/n10")
	assert.NoError(err)
	assert.Equal(10, n.VlanID)
	assert.Equal("vlan10", n.Name)
}

func TestLogout(t *testing.T) {
	assert := require.New(t)
	c := testClient(t)

	gock.New("https://" + testAppliance).
		Post("/rest/login-sessions").
		Reply(200).
		JSON(map[string]string{"sessionID": "token-3"})
	gock.New("https://" + testAppliance).
		Delete("/rest/login-sessions").
		MatchHeader("Auth", "token-3").
		Reply(204)

	assert.NoError(c.Login(context.Background(), "admin", "secret"))
	assert.NoError(c.Logout(context.Background()))
	assert.Empty(c.SessionID())

	// logging out again is a no-op, no request goes out
	assert.NoError(c.Logout(context.Background()))
}

func TestInterconnectsPagination(t *testing.T) {
	assert := require.New(t)
	c := testClient(t)

	gock.New("https://" + testAppliance).
		Get("/rest/interconnects").
		Reply(200).
		JSON(map[string]interface{}{
			"members": []map[string]interface{}{
				{"uri": "/rest/interconnects/ic1", "name": "encl1, interconnect 1"},
			},
			"nextPageUri": "/rest/interconnects?start=1",
		})
	gock.New("https://" + testAppliance).
		Get("/rest/interconnects").
		MatchParam("start", "1").
		Reply(200).
		JSON(map[string]interface{}{
			"members": []map[string]interface{}{
				{"uri": "/rest/interconnects/ic2", "name": "encl1, interconnect 2"},
			},
		})

	ics, err := c.Interconnects(context.Background())
	assert.NoError(err)
	assert.Len(ics, 2)
	assert.Equal("encl1, interconnect 1", ics[0].Name)
	assert.Equal("encl1, interconnect 2", ics[1].Name)
}

func TestInterconnectByName(t *testing.T) {
	assert := require.New(t)
	c := testClient(t)

	gock.New("https://" + testAppliance).
		Get("/rest/interconnects").
		MatchParam("filter", "name='encl1, interconnect 1'").
		Reply(200).
		JSON(map[string]interface{}{
			"members": []map[string]interface{}{
				{"uri": "/rest/interconnects/ic1", "name": "encl1, interconnect 1", "model": "HP VC FlexFabric 10Gb/24-Port Module"},
			},
		})

	ic, err := c.InterconnectByName(context.Background(), "encl1, interconnect 1")
	assert.NoError(err)
	assert.Equal("/rest/interconnects/ic1", ic.URI)
}

func TestInterconnectByNameNoMatch(t *testing.T) {
	assert := require.New(t)
	c := testClient(t)

	gock.New("https://" + testAppliance).
		Get("/rest/interconnects").
		Reply(200).
		JSON(map[string]interface{}{"members": []map[string]interface{}{}})

	_, err := c.InterconnectByName(context.Background(), "nope")
	assert.Error(err)
	assert.Contains(err.Error(), "expected exactly one match")
}

func TestPortStatisticsEscapesPortName(t *testing.T) {
	assert := require.New(t)
	c := testClient(t)

	gock.New("https://" + testAppliance).
		Get("/rest/interconnects/ic1/statistics/d1:1:x1").
		Reply(200).
		JSON(map[string]interface{}{
			"advancedStatistics": map[string]string{
				"receiveKilobitsPerSecond":  "1536:1024",
				"transmitKilobitsPerSecond": "2048",
			},
		})

	ps, err := c.PortStatistics(context.Background(), "/rest/interconnects/ic1", "d1:1:x1")
	assert.NoError(err)
	assert.Equal("d1:1:x1", ps.PortName)
	assert.Equal("1536:1024", ps.AdvancedStatistics.ReceiveKilobitsPerSecond)
}
