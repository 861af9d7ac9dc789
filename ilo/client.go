// Package ilo is a Redfish client for the iLO controller of a single server,
// covering the operations the rack provisioning workflow drives.
package ilo

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	systemPath       = "/redfish/v1/Systems/1"
	managerPath      = "/redfish/v1/Managers/1"
	resetPath        = systemPath + "/Actions/ComputerSystem.Reset"
	ethernetPath     = managerPath + "/EthernetInterfaces/1"
	virtualMediaPath = managerPath + "/VirtualMedia/2" // slot 2 is the CD/DVD device
	updatePath       = "/redfish/v1/UpdateService/Actions/UpdateService.SimpleUpdate"
	biosSettingsPath = systemPath + "/Bios/Settings"
)

// Power reset types accepted by SetPower.
const (
	PowerOn       = "On"
	PowerForceOff = "ForceOff"
)

// NetworkConfig is the static addressing applied to the iLO NIC.
type NetworkConfig struct {
	Hostname string
	Address  string
	Netmask  string
	Gateway  string
	DNS      []string
}

// Client talks to one iLO over Redfish with basic auth.
type Client struct {
	http     *retryablehttp.Client
	base     *url.URL
	username string
	password string
	logger   *zap.Logger
}

// Option configures a Client during NewClient.
type Option func(*Client)

// Logger sets the logger used for request debug logging.
func Logger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// HTTPClient overrides the underlying http client, used by tests.
func HTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http.HTTPClient = h
	}
}

// NewClient returns a client for the iLO at address.
func NewClient(address, username, password string, opts ...Option) (*Client, error) {
	base, err := url.Parse("https://" + address)
	if err != nil {
		return nil, errors.Wrap(err, "parse ilo address")
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.Logger = nil
	rc.HTTPClient = &http.Client{
		Timeout: 2 * time.Minute,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}

	c := &Client{
		http:     rc,
		base:     base,
		username: username,
		password: password,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Ping probes the Redfish service root. Used as the reachability check after
// a network reconfiguration; any response means the controller is back.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/redfish/v1/", nil, nil)
}

// SetNetwork applies static addressing and the DNS name to the iLO NIC. The
// controller resets its network stack afterwards, so the caller should
// expect a reachability gap.
func (c *Client) SetNetwork(ctx context.Context, cfg NetworkConfig) error {
	body := map[string]interface{}{
		"HostName": cfg.Hostname,
		"DHCPv4":   map[string]interface{}{"DHCPEnabled": false},
		"IPv4StaticAddresses": []map[string]string{{
			"Address":    cfg.Address,
			"SubnetMask": cfg.Netmask,
			"Gateway":    cfg.Gateway,
		}},
		"StaticNameServers": cfg.DNS,
	}
	return errors.Wrap(c.do(ctx, http.MethodPatch, ethernetPath, body, nil), "set network")
}

// FirmwareVersion returns the running iLO firmware version string.
func (c *Client) FirmwareVersion(ctx context.Context) (string, error) {
	var out struct {
		FirmwareVersion string `json:"FirmwareVersion"`
	}
	if err := c.do(ctx, http.MethodGet, managerPath, nil, &out); err != nil {
		return "", errors.Wrap(err, "get firmware version")
	}
	return out.FirmwareVersion, nil
}

// UpdateFirmware flashes the controller from the given image URL. The flash
// runs asynchronously; poll FirmwareVersion for convergence.
func (c *Client) UpdateFirmware(ctx context.Context, imageURI string) error {
	body := map[string]string{"ImageURI": imageURI}
	return errors.Wrap(c.do(ctx, http.MethodPost, updatePath, body, nil), "update firmware")
}

// PowerState returns the server power state, "On" or "Off".
func (c *Client) PowerState(ctx context.Context) (string, error) {
	var out struct {
		PowerState string `json:"PowerState"`
	}
	if err := c.do(ctx, http.MethodGet, systemPath, nil, &out); err != nil {
		return "", errors.Wrap(err, "get power state")
	}
	return out.PowerState, nil
}

// SetPower issues a power reset action.
func (c *Client) SetPower(ctx context.Context, resetType string) error {
	body := map[string]string{"ResetType": resetType}
	return errors.Wrapf(c.do(ctx, http.MethodPost, resetPath, body, nil), "power %s", resetType)
}

// VirtualMediaInserted reports whether an image is mounted in the virtual
// CD/DVD device.
func (c *Client) VirtualMediaInserted(ctx context.Context) (bool, error) {
	var out struct {
		Inserted bool `json:"Inserted"`
	}
	if err := c.do(ctx, http.MethodGet, virtualMediaPath, nil, &out); err != nil {
		return false, errors.Wrap(err, "get virtual media")
	}
	return out.Inserted, nil
}

// InsertVirtualMedia mounts an ISO in the virtual CD/DVD device.
func (c *Client) InsertVirtualMedia(ctx context.Context, imageURL string) error {
	body := map[string]string{"Image": imageURL}
	p := virtualMediaPath + "/Actions/VirtualMedia.InsertMedia"
	return errors.Wrap(c.do(ctx, http.MethodPost, p, body, nil), "insert virtual media")
}

// EjectVirtualMedia unmounts whatever is in the virtual CD/DVD device.
func (c *Client) EjectVirtualMedia(ctx context.Context) error {
	p := virtualMediaPath + "/Actions/VirtualMedia.EjectMedia"
	return errors.Wrap(c.do(ctx, http.MethodPost, p, struct{}{}, nil), "eject virtual media")
}

// SetOneTimeBoot points the next boot at the given target (e.g. "Cd").
func (c *Client) SetOneTimeBoot(ctx context.Context, target string) error {
	body := map[string]interface{}{
		"Boot": map[string]string{
			"BootSourceOverrideTarget":  target,
			"BootSourceOverrideEnabled": "Once",
		},
	}
	return errors.Wrap(c.do(ctx, http.MethodPatch, systemPath, body, nil), "set one-time boot")
}

// SetBootOrder replaces the persistent boot order.
func (c *Client) SetBootOrder(ctx context.Context, order []string) error {
	body := map[string]interface{}{
		"Boot": map[string]interface{}{"BootOrder": order},
	}
	return errors.Wrap(c.do(ctx, http.MethodPatch, systemPath, body, nil), "set boot order")
}

// SetBIOSAttributes stages BIOS settings (applied on next reboot).
func (c *Client) SetBIOSAttributes(ctx context.Context, attrs map[string]interface{}) error {
	body := map[string]interface{}{"Attributes": attrs}
	return errors.Wrap(c.do(ctx, http.MethodPatch, biosSettingsPath, body, nil), "set bios attributes")
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	u := *c.base
	u.Path = path

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "marshal request body")
		}
		body = bytes.NewReader(b)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.username, c.password)

	c.logger.Debug("ilo request", zap.String("method", method), zap.String("path", path))

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(res.Body)
		return errors.Errorf("%s %s: unexpected status %d: %s", method, path, res.StatusCode, string(b))
	}
	if out == nil {
		io.Copy(io.Discard, res.Body)
		return nil
	}
	return errors.Wrapf(json.NewDecoder(res.Body).Decode(out), "decode %s response", path)
}
