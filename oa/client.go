// Package oa is a client for the HP Onboard Administrator management API of
// a BladeSystem enclosure.
package oa

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

// EnclosureInfo is the current identity of the enclosure.
type EnclosureInfo struct {
	Name     string `json:"name"`
	AssetTag string `json:"assetTag"`
	RackName string `json:"rackName"`
}

// AlertmailConfig enables SMTP alert forwarding.
type AlertmailConfig struct {
	Recipient string `json:"recipient"`
	Domain    string `json:"domain"`
}

// NTPConfig sets the time sync sources and the enclosure timezone.
type NTPConfig struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Timezone  string `json:"timezone"`
}

// SNMPConfig enables SNMP with a read community and a trap receiver.
type SNMPConfig struct {
	Community string `json:"community"`
	TrapSink  string `json:"trapSink"`
	Contact   string `json:"contact"`
}

// BayIP is a single EBIPA assignment for an interconnect or device bay.
type BayIP struct {
	Bay     int    `json:"bay"`
	Address string `json:"address"`
	Netmask string `json:"netmask"`
	Gateway string `json:"gateway"`
}

// User is a local OA account.
type User struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// LDAPGroup grants enclosure access to a directory group.
type LDAPGroup struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// Client talks to a single Onboard Administrator module.
type Client struct {
	http     *retryablehttp.Client
	base     *url.URL
	username string
	password string
	logger   *zap.Logger
}

// Option configures a Client during NewClient.
type Option func(*Client)

// Logger sets the logger used for command debug logging.
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

// NewClient returns a client for the OA at address.
func NewClient(address, username, password string, opts ...Option) (*Client, error) {
	base, err := url.Parse("https://" + address)
	if err != nil {
		return nil, errors.Wrap(err, "parse oa address")
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
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

// EnclosureInfo fetches the enclosure's current identity.
func (c *Client) EnclosureInfo(ctx context.Context) (EnclosureInfo, error) {
	var info EnclosureInfo
	if err := c.do(ctx, http.MethodGet, "/api/enclosure", nil, &info); err != nil {
		return EnclosureInfo{}, errors.Wrap(err, "get enclosure info")
	}
	return info, nil
}

// SetEnclosureName renames the enclosure.
func (c *Client) SetEnclosureName(ctx context.Context, name string) error {
	return c.command(ctx, "/api/enclosure/name", map[string]string{"name": name})
}

// SetAssetTag sets the enclosure asset tag.
func (c *Client) SetAssetTag(ctx context.Context, tag string) error {
	return c.command(ctx, "/api/enclosure/assettag", map[string]string{"assetTag": tag})
}

// SetRackName records which rack the enclosure lives in.
func (c *Client) SetRackName(ctx context.Context, rack string) error {
	return c.command(ctx, "/api/enclosure/rackname", map[string]string{"rackName": rack})
}

// SetAlertmail enables SMTP alert forwarding.
func (c *Client) SetAlertmail(ctx context.Context, cfg AlertmailConfig) error {
	return c.command(ctx, "/api/alertmail", cfg)
}

// SetPowerMode sets the enclosure power redundancy mode.
func (c *Client) SetPowerMode(ctx context.Context, mode string) error {
	return c.command(ctx, "/api/power/mode", map[string]string{"mode": mode})
}

// SetNTP configures time sync.
func (c *Client) SetNTP(ctx context.Context, cfg NTPConfig) error {
	return c.command(ctx, "/api/ntp", cfg)
}

// SetNetworkMode switches the OA network stack mode (static/dhcp).
func (c *Client) SetNetworkMode(ctx context.Context, mode string) error {
	return c.command(ctx, "/api/network/mode", map[string]string{"mode": mode})
}

// SetFailover enables or disables automatic OA failover.
func (c *Client) SetFailover(ctx context.Context, enabled bool) error {
	return c.command(ctx, "/api/failover", map[string]bool{"enabled": enabled})
}

// SetSNMP enables SNMP monitoring.
func (c *Client) SetSNMP(ctx context.Context, cfg SNMPConfig) error {
	return c.command(ctx, "/api/snmp", cfg)
}

// SetInterconnectBayIP assigns an EBIPA address to an interconnect bay.
func (c *Client) SetInterconnectBayIP(ctx context.Context, ip BayIP) error {
	return c.command(ctx, "/api/ebipa/interconnect", ip)
}

// SetDeviceBayIP assigns an EBIPA address to a device bay iLO.
func (c *Client) SetDeviceBayIP(ctx context.Context, ip BayIP) error {
	return c.command(ctx, "/api/ebipa/device", ip)
}

// AddUser creates a local OA account.
func (c *Client) AddUser(ctx context.Context, u User) error {
	return c.command(ctx, "/api/users", u)
}

// AddLDAPGroup grants access to a directory group.
func (c *Client) AddLDAPGroup(ctx context.Context, g LDAPGroup) error {
	return c.command(ctx, "/api/ldap/groups", g)
}

// ConfigDump returns the full configuration script of the enclosure, the
// same text SHOW CONFIG prints on the OA CLI.
func (c *Client) ConfigDump(ctx context.Context) (string, error) {
	u := *c.base
	u.Path = "/api/config/script"

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", errors.Wrap(err, "new request")
	}
	req.SetBasicAuth(c.username, c.password)

	res, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "get config dump")
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", errors.Errorf("get config dump: unexpected status %d", res.StatusCode)
	}
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return "", errors.Wrap(err, "read config dump")
	}
	return string(b), nil
}

func (c *Client) command(ctx context.Context, path string, body interface{}) error {
	return errors.Wrapf(c.do(ctx, http.MethodPost, path, body, nil), "POST %s", path)
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

	c.logger.Debug("oa request", zap.String("method", method), zap.String("path", path))

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(res.Body)
		return errors.Errorf("unexpected status %d: %s", res.StatusCode, string(b))
	}
	if out == nil {
		io.Copy(io.Discard, res.Body)
		return nil
	}
	return errors.Wrap(json.NewDecoder(res.Body).Decode(out), "decode response")
}
