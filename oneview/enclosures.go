package oneview

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/pkg/errors"
)

// Enclosure is a physical chassis housing interconnects and server blades.
type Enclosure struct {
	URI          string `json:"uri"`
	Name         string `json:"name"`
	Model        string `json:"enclosureModel"`
	PartNumber   string `json:"partNumber"`
	SerialNumber string `json:"serialNumber"`
}

// ServerHardware is a physical server managed by the appliance. Older
// appliances omit model on blades and carry enclosureModel instead.
type ServerHardware struct {
	URI            string `json:"uri"`
	Name           string `json:"name"`
	Model          string `json:"model"`
	EnclosureModel string `json:"enclosureModel"`
	PartNumber     string `json:"partNumber"`
	SerialNumber   string `json:"serialNumber"`
}

// Entitlement is the remote support warranty record for a hardware asset.
type Entitlement struct {
	ObligationID      string `json:"obligationId"`
	ObligationEndDate string `json:"obligationEndDate"`
	EntitlementStatus string `json:"entitlementStatus"`
}

// Enclosures returns every enclosure known to the appliance.
func (c *Client) Enclosures(ctx context.Context) ([]Enclosure, error) {
	var encls []Enclosure
	err := c.getPages(ctx, "/rest/enclosures", nil, func(members []json.RawMessage) error {
		for _, m := range members {
			var e Enclosure
			if err := json.Unmarshal(m, &e); err != nil {
				return errors.Wrap(err, "decode enclosure")
			}
			encls = append(encls, e)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "list enclosures")
	}
	return encls, nil
}

// EnclosureByName returns the named enclosure.
func (c *Client) EnclosureByName(ctx context.Context, name string) (Enclosure, error) {
	q := url.Values{}
	q.Set("filter", `name='`+name+`'`)

	var res struct {
		Members []Enclosure `json:"members"`
	}
	if err := c.get(ctx, "/rest/enclosures", q, &res); err != nil {
		return Enclosure{}, errors.Wrap(err, "get enclosure")
	}
	if len(res.Members) != 1 {
		return Enclosure{}, errors.Errorf("enclosure %q: expected exactly one match, got %d", name, len(res.Members))
	}
	return res.Members[0], nil
}

// ServerHardware returns every server known to the appliance.
func (c *Client) ServerHardware(ctx context.Context) ([]ServerHardware, error) {
	var servers []ServerHardware
	err := c.getPages(ctx, "/rest/server-hardware", nil, func(members []json.RawMessage) error {
		for _, m := range members {
			var s ServerHardware
			if err := json.Unmarshal(m, &s); err != nil {
				return errors.Wrap(err, "decode server hardware")
			}
			servers = append(servers, s)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "list server hardware")
	}
	return servers, nil
}

// ServerHardwareByName returns the named server.
func (c *Client) ServerHardwareByName(ctx context.Context, name string) (ServerHardware, error) {
	q := url.Values{}
	q.Set("filter", `name='`+name+`'`)

	var res struct {
		Members []ServerHardware `json:"members"`
	}
	if err := c.get(ctx, "/rest/server-hardware", q, &res); err != nil {
		return ServerHardware{}, errors.Wrap(err, "get server hardware")
	}
	if len(res.Members) != 1 {
		return ServerHardware{}, errors.Errorf("server %q: expected exactly one match, got %d", name, len(res.Members))
	}
	return res.Members[0], nil
}

// Entitlement fetches the remote support entitlement for the resource at uri.
func (c *Client) Entitlement(ctx context.Context, resourceURI string) (Entitlement, error) {
	q := url.Values{}
	q.Set("resourceUri", resourceURI)

	var e Entitlement
	if err := c.get(ctx, "/rest/support/entitlements", q, &e); err != nil {
		return Entitlement{}, errors.Wrap(err, "get entitlement")
	}
	return e, nil
}
