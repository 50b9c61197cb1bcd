package redash

import (
	"net/http"
	"net/url"
	"time"

	"github.com/manu156/redash-go/errors"
)

// Version is the version of this client. It is sent in the User-Agent header.
const Version = "0.1.0"

const (
	defaultPollInterval    = 5 * time.Second
	defaultMaxPollAttempts = 60
	defaultPingTimeout     = 10 * time.Second
)

// Client is a client to a Redash server. A Client is not safe for concurrent use.
type Client struct {
	cfg          Config
	base         *url.URL
	http         *http.Client
	dataSourceID string
	userAgent    string

	pollInterval    time.Duration
	maxPollAttempts int
}

// Option is an optional argument type for New().
type Option func(c *Client)

// New returns a new Client for the server described by cfg.
func New(cfg *Config, options ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.ES(errors.OpConnect, errors.KConfiguration, "a Config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	base, err := url.Parse(cfg.BaseURL())
	if err != nil {
		return nil, errors.E(errors.OpConnect, errors.KConfiguration, err)
	}

	client := &Client{
		cfg:             *cfg,
		base:            base,
		dataSourceID:    cfg.DataSourceID,
		userAgent:       "redash-go/" + Version,
		pollInterval:    defaultPollInterval,
		maxPollAttempts: defaultMaxPollAttempts,
	}
	for _, o := range options {
		o(client)
	}

	if client.http == nil {
		client.http = &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}

	return client, nil
}

// WithHTTPClient sets the http.Client used to talk to Redash.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.http = client
	}
}

// WithDataSource selects the data source that ad-hoc and EXPLAIN queries run on.
// It takes precedence over Config.DataSourceID.
func WithDataSource(id string) Option {
	return func(c *Client) {
		c.dataSourceID = id
	}
}

// WithUserAgent replaces the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// Endpoint returns the base URL of the Redash API.
func (c *Client) Endpoint() string {
	return c.base.String()
}

// Close releases idle connections. It is safe to call more than once.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
