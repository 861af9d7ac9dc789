// Package oneview is a minimal REST client for the HPE OneView appliance,
// covering the resources the reports and provisioning procedures consume.
package oneview

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const defaultAPIVersion = 2000

// Client holds an authenticated session against a single appliance.
type Client struct {
	http       *retryablehttp.Client
	base       *url.URL
	logger     *zap.Logger
	apiVersion int
	session    string
}

// The Option type describes functions that operate on Client during NewClient.
type Option func(*Client)

// Logger sets the logger used for request/response debug logging.
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

// APIVersion overrides the X-Api-Version header sent with every request.
func APIVersion(v int) Option {
	return func(c *Client) {
		c.apiVersion = v
	}
}

// NewClient returns a client for the appliance at address. No connection is
// made until Login.
func NewClient(address string, opts ...Option) (*Client, error) {
	base, err := url.Parse("https://" + address)
	if err != nil {
		return nil, errors.Wrap(err, "parse appliance address")
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 1 * time.Second
	rc.RetryWaitMax = 10 * time.Second
	rc.Logger = nil
	rc.HTTPClient = &http.Client{
		Timeout: 5 * time.Minute,
		Transport: &http.Transport{
			// appliances ship self-signed certs
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}

	c := &Client{
		http:       rc,
		base:       base,
		logger:     zap.NewNop(),
		apiVersion: defaultAPIVersion,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SessionID returns the current session token, empty before Login.
func (c *Client) SessionID() string {
	return c.session
}

// Login authenticates against the appliance and stores the session token for
// subsequent requests.
func (c *Client) Login(ctx context.Context, username, password string) error {
	body := map[string]string{
		"userName": username,
		"password": password,
	}
	var out struct {
		SessionID string `json:"sessionID"`
	}
	if err := c.do(ctx, http.MethodPost, "/rest/login-sessions", nil, body, &out); err != nil {
		return errors.Wrap(err, "login")
	}
	if out.SessionID == "" {
		return errors.New("login: no sessionID in response")
	}
	c.session = out.SessionID
	c.logger.Debug("logged in", zap.String("appliance", c.base.Host))
	return nil
}

// Logout invalidates the session on the appliance.
func (c *Client) Logout(ctx context.Context) error {
	if c.session == "" {
		return nil
	}
	err := c.do(ctx, http.MethodDelete, "/rest/login-sessions", nil, nil, nil)
	c.session = ""
	return errors.Wrap(err, "logout")
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, q, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, in, out interface{}) error {
	rel, err := url.Parse(path)
	if err != nil {
		return errors.Wrapf(err, "parse path %q", path)
	}
	u := c.base.ResolveReference(rel)
	if q != nil {
		u.RawQuery = q.Encode()
	}

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
	req.Header.Set("X-Api-Version", fmt.Sprintf("%d", c.apiVersion))
	if c.session != "" {
		req.Header.Set("Auth", c.session)
	}

	c.logger.Debug("request", zap.String("method", method), zap.String("url", u.String()))

	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
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
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s response", path)
	}
	return nil
}

// getPages follows nextPageUri until the collection is exhausted, calling page
// with the raw members of each page.
func (c *Client) getPages(ctx context.Context, path string, q url.Values, page func(members []json.RawMessage) error) error {
	next := path
	query := q
	for next != "" {
		var res struct {
			Members     []json.RawMessage `json:"members"`
			NextPageURI string            `json:"nextPageUri"`
		}
		if err := c.get(ctx, next, query, &res); err != nil {
			return err
		}
		if err := page(res.Members); err != nil {
			return err
		}

		if res.NextPageURI == "" {
			break
		}
		u, err := url.Parse(res.NextPageURI)
		if err != nil {
			return errors.Wrap(err, "parse nextPageUri")
		}
		next = u.Path
		query = u.Query()
	}
	return nil
}
