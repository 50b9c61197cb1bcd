package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserConfigRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := LoadUserConfig()
	require.Error(t, err)

	cfg := newUserConfig()
	cfg.Profiles["default"] = Profile{Host: "redash.example.com", Scheme: "https", APIKey: "abcdefghijklmnop"}
	require.NoError(t, SaveUserConfig(cfg))

	info, err := os.Stat(ConfigPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := LoadUserConfig()
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
	assert.Equal(t, "redash.example.com", got.ActiveProfile("").Host)
	assert.Equal(t, Profile{}, got.ActiveProfile("missing"))
}

func TestMaskConfig(t *testing.T) {
	t.Parallel()

	cfg := newUserConfig()
	cfg.Profiles["a"] = Profile{APIKey: "abcdefghijklmnop"}
	cfg.Profiles["b"] = Profile{APIKey: "short"}

	masked := maskConfig(cfg)
	assert.Equal(t, "abcd****mnop", masked.Profiles["a"].APIKey)
	assert.Equal(t, "****", masked.Profiles["b"].APIKey)
	assert.Equal(t, "abcdefghijklmnop", cfg.Profiles["a"].APIKey)
	assert.Equal(t, "", maskSecret(""))
}

func TestResolvePrecedence(t *testing.T) {
	t.Parallel()

	cfg := newUserConfig()
	cfg.Profiles["default"] = Profile{Host: "profile-host", Port: 8080, APIKey: "profile-key", Output: "yaml"}
	cfg.Profiles["other"] = Profile{Host: "other-host"}

	env := map[string]string{
		"REDASH_API_KEY": "env-key",
		"REDASH_PORT":    "9090",
	}
	getenv := func(k string) string { return env[k] }

	s := &settings{}
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	s.bind(flags)
	require.NoError(t, flags.Parse([]string{"--host", "flag-host"}))

	s.resolve(flags, getenv, cfg)
	assert.Equal(t, "flag-host", s.host)
	assert.Equal(t, "env-key", s.apiKey)
	assert.Equal(t, 9090, s.port)
	assert.Equal(t, "yaml", s.output)
	assert.Equal(t, "http", s.scheme)

	s = &settings{}
	flags = pflag.NewFlagSet("test", pflag.ContinueOnError)
	s.bind(flags)
	require.NoError(t, flags.Parse(nil))
	env["REDASH_PROFILE"] = "other"

	s.resolve(flags, getenv, cfg)
	assert.Equal(t, "other", s.profile)
	assert.Equal(t, "other-host", s.host)
	assert.Equal(t, "table", s.output)
}

func TestSettingsConfig(t *testing.T) {
	t.Parallel()

	s := &settings{host: "h", scheme: "HTTPS", apiKey: "k", dataSource: "3"}
	cfg, err := s.config(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "https", cfg.Scheme)
	assert.Equal(t, "3", cfg.DataSourceID)

	s = &settings{dsn: "redash://dsn-host:5000/?apiKey=k", host: "ignored"}
	cfg, err = s.config(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "dsn-host", cfg.Host)
	assert.Equal(t, 5000, cfg.Port)

	s = &settings{host: "h", scheme: "http"}
	_, err = s.config(nil, nil)
	assert.Error(t, err)
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigCommands(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	_, err := runCLI(t, "config", "set-profile", "dev", "--host", "dev.example.com", "--api-key", "abcdefghijklmnop")
	require.NoError(t, err)
	_, err = runCLI(t, "config", "set-profile", "prod", "--host", "prod.example.com", "--scheme", "https")
	require.NoError(t, err)
	_, err = runCLI(t, "config", "set-profile", "prod", "--data-source", "7")
	require.NoError(t, err)

	cfg, err := LoadUserConfig()
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.CurrentProfile)
	assert.Equal(t, Profile{Host: "prod.example.com", Scheme: "https", DataSource: "7"}, cfg.Profiles["prod"])
	assert.Equal(t, filepath.Join(home, ".redash", "config.yaml"), ConfigPath())

	_, err = runCLI(t, "config", "use", "prod")
	require.NoError(t, err)
	_, err = runCLI(t, "config", "use", "missing")
	assert.Error(t, err)

	out, err := runCLI(t, "config", "view")
	require.NoError(t, err)
	assert.Contains(t, out, "current-profile: prod")
	assert.Contains(t, out, "abcd****mnop")
	assert.NotContains(t, out, "abcdefghijklmnop")

	out, err = runCLI(t, "config", "view", "--reveal")
	require.NoError(t, err)
	assert.Contains(t, out, "abcdefghijklmnop")

	_, err = runCLI(t, "config", "set-profile", "dev", "-o", "csv")
	assert.Error(t, err)
}

func fakeServer(t *testing.T) *url.URL {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Key secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/api/data_sources":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"id": 1, "name": "warehouse", "type": "pg"}, {"id": 2, "name": "events", "type": "mysql"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return u
}

func TestPingCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	u := fakeServer(t)

	out, err := runCLI(t, "ping", "--host", u.Hostname(), "--port", u.Port(), "--api-key", "secret")
	require.NoError(t, err)
	assert.Equal(t, "OK\n", out)

	_, err = runCLI(t, "ping", "--host", u.Hostname(), "--port", u.Port(), "--api-key", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication failed")
}

func TestQueryCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	u := fakeServer(t)

	dsn := "redash://" + u.Host + "/?apiKey=secret"
	out, err := runCLI(t, "query", "--dsn", dsn, "-o", "json", "show databases")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"Database": "warehouse"}, {"Database": "events"}]`, out)

	t.Setenv("REDASH_DSN", dsn)
	out, err = runCLI(t, "query", "SHOW DATABASES")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "Database") && strings.Contains(out, "warehouse"), out)

	_, err = runCLI(t, "query", "drop table x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported query")
}

func TestVersionCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "redash-go "))
}
