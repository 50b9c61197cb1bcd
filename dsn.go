package redash

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/manu156/redash-go/errors"
)

const (
	schemeHTTP  = "http"
	schemeHTTPS = "https"

	dsnScheme     = "redash://"
	dsnJDBCPrefix = "jdbc:"

	paramAPIKey       = "apiKey"
	paramDataSourceID = "dataSourceId"
	paramScheme       = "scheme"

	redacted = "REDACTED"
)

// Config holds what is needed to reach a Redash server.
type Config struct {
	// Scheme is "http" or "https". Empty means "http".
	Scheme string
	// Host is the Redash host name or IP address.
	Host string
	// Port is the TCP port. Zero means 80 for http and 443 for https.
	Port int
	// APIKey is a user or query API key. It is sent as "Authorization: Key <APIKey>".
	APIKey string
	// DataSourceID selects the data source that ad-hoc and EXPLAIN queries run on.
	// Empty means the first data source the server lists.
	DataSourceID string
}

// ParseDSN parses a connection string of the form:
//
//	[jdbc:]redash://host[:port][/][?apiKey=KEY&dataSourceId=ID&scheme=https]
//
// The "jdbc:" prefix is accepted so connection strings written for other Redash drivers work unchanged.
// The returned Config is validated, so it always carries a host and an API key.
func ParseDSN(dsn string) (*Config, error) {
	s := strings.TrimSpace(dsn)
	if len(s) >= len(dsnJDBCPrefix) && strings.EqualFold(s[:len(dsnJDBCPrefix)], dsnJDBCPrefix) {
		s = s[len(dsnJDBCPrefix):]
	}
	if len(s) < len(dsnScheme) || !strings.EqualFold(s[:len(dsnScheme)], dsnScheme) {
		return nil, errors.ES(errors.OpConnect, errors.KConfiguration, "invalid Redash DSN %q: must start with %s", redactDSN(dsn), dsnScheme)
	}

	u, err := url.Parse(s)
	if err != nil {
		// url.Error repeats the whole input, key included.
		if ue, ok := err.(*url.Error); ok {
			err = ue.Err
		}
		return nil, errors.ES(errors.OpConnect, errors.KConfiguration, "invalid Redash DSN %q: %s", redactDSN(dsn), err)
	}
	if u.Path != "" && u.Path != "/" {
		return nil, errors.ES(errors.OpConnect, errors.KConfiguration, "invalid Redash DSN %q: unexpected path %q", redactDSN(dsn), u.Path)
	}

	cfg := &Config{Host: u.Hostname()}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, errors.ES(errors.OpConnect, errors.KConfiguration, "invalid Redash DSN %q: bad port %q", redactDSN(dsn), p)
		}
		cfg.Port = port
	}

	q := u.Query()
	cfg.APIKey = q.Get(paramAPIKey)
	cfg.DataSourceID = q.Get(paramDataSourceID)
	cfg.Scheme = strings.ToLower(q.Get(paramScheme))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports a KConfiguration error if c cannot be used to connect.
func (c *Config) Validate() error {
	switch c.Scheme {
	case "", schemeHTTP, schemeHTTPS:
	default:
		return errors.ES(errors.OpConnect, errors.KConfiguration, "scheme must be %s or %s, was %q", schemeHTTP, schemeHTTPS, c.Scheme)
	}
	if strings.TrimSpace(c.Host) == "" {
		return errors.ES(errors.OpConnect, errors.KConfiguration, "a Redash host is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return errors.ES(errors.OpConnect, errors.KConfiguration, "port %d is out of range", c.Port)
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.ES(errors.OpConnect, errors.KConfiguration, "an API key is required for a Redash connection")
	}
	return nil
}

func (c *Config) scheme() string {
	if c.Scheme == "" {
		return schemeHTTP
	}
	return c.Scheme
}

func (c *Config) port() int {
	if c.Port != 0 {
		return c.Port
	}
	if c.scheme() == schemeHTTPS {
		return 443
	}
	return 80
}

// BaseURL returns the root of the Redash REST API, scheme://host:port/api.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("%s://%s/api", c.scheme(), net.JoinHostPort(c.Host, strconv.Itoa(c.port())))
}

// FormatDSN returns a connection string that ParseDSN turns back into c.
func (c *Config) FormatDSN() string {
	return c.format(c.APIKey)
}

// String returns the connection string with the API key redacted.
func (c *Config) String() string {
	key := c.APIKey
	if key != "" {
		key = redacted
	}
	return c.format(key)
}

func (c *Config) format(key string) string {
	host := c.Host
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if c.Port != 0 {
		host = fmt.Sprintf("%s:%d", host, c.Port)
	}

	q := url.Values{}
	if key != "" {
		q.Set(paramAPIKey, key)
	}
	if c.DataSourceID != "" {
		q.Set(paramDataSourceID, c.DataSourceID)
	}
	if c.Scheme != "" {
		q.Set(paramScheme, c.Scheme)
	}

	s := dsnScheme + host + "/"
	if len(q) > 0 {
		s += "?" + q.Encode()
	}
	return s
}

// redactDSN hides the API key of a connection string that could not be parsed.
func redactDSN(dsn string) string {
	i := strings.Index(dsn, paramAPIKey+"=")
	if i < 0 {
		return dsn
	}
	start := i + len(paramAPIKey) + 1
	end := strings.IndexByte(dsn[start:], '&')
	if end < 0 {
		return dsn[:start] + redacted
	}
	return dsn[:start] + redacted + dsn[start+end:]
}
