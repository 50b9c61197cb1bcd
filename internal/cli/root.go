// Package cli implements the redash command-line tool.
package cli

import (
	"database/sql"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	redash "github.com/manu156/redash-go"
	"github.com/manu156/redash-go/errors"
)

const envPrefix = "REDASH_"

// settings are the connection settings after applying flag > env > profile > default.
type settings struct {
	dsn        string
	host       string
	port       int
	scheme     string
	apiKey     string
	dataSource string
	output     string
	profile    string
	verbose    bool
}

// Execute runs the CLI.
func Execute() int {
	rootCmd, s := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		renderError(os.Stdout, os.Stderr, err, s.output)
		return 1
	}
	return 0
}

// renderError reports err as a JSON object on stdout when the resolved output format is json, and
// as text on stderr otherwise.
func renderError(stdout, stderr io.Writer, err error, output string) {
	if output != "json" {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return
	}

	errObj := map[string]interface{}{"error": err.Error()}
	var e *errors.Error
	if stderrors.As(err, &e) {
		errObj["kind"] = e.Kind.String()
		if e.StatusCode != 0 {
			errObj["http_status"] = e.StatusCode
		}
	}
	_ = printJSON(stdout, errObj)
}

func newRootCmd() *cobra.Command {
	cmd, _ := newRootCommand()
	return cmd
}

// newRootCommand returns the root command and the settings its flags are bound to. The settings
// are resolved once the command runs.
func newRootCommand() (*cobra.Command, *settings) {
	s := &settings{}

	rootCmd := &cobra.Command{
		Use:           "redash",
		Short:         "Redash query CLI",
		Long:          "Command-line interface for running queries against a Redash server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			s.resolve(cmd.Flags(), os.Getenv, loadOrNewUserConfig())
			if err := validateOutputFormat(s.output); err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), s.verbose)
			cmd.SetContext(logger.WithContext(cmd.Context()))
			return nil
		},
	}

	s.bind(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newQueryCmd(s))
	rootCmd.AddCommand(newPingCmd(s))
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd, s
}

func (s *settings) bind(flags *pflag.FlagSet) {
	flags.StringVar(&s.dsn, "dsn", "", "Connection string, redash://host[:port]?apiKey=KEY (overrides the other connection flags)")
	flags.StringVar(&s.host, "host", "localhost", "Redash host")
	flags.IntVar(&s.port, "port", 0, "Redash port (default 80 for http, 443 for https)")
	flags.StringVar(&s.scheme, "scheme", "http", "http or https")
	flags.StringVar(&s.apiKey, "api-key", "", "Redash API key")
	flags.StringVar(&s.dataSource, "data-source", "", "Data source id for ad-hoc queries (default the first one)")
	flags.StringVarP(&s.output, "output", "o", "table", "Output format (table, json, yaml)")
	flags.StringVarP(&s.profile, "profile", "p", "", "Config profile to use")
	flags.BoolVarP(&s.verbose, "verbose", "v", false, "Log requests to stderr")
}

// resolve fills every setting whose flag was not given from the environment, then from the profile.
func (s *settings) resolve(flags *pflag.FlagSet, getenv func(string) string, cfg *UserConfig) {
	if v := getenv(envPrefix + "PROFILE"); v != "" && !flags.Changed("profile") {
		s.profile = v
	}
	p := cfg.ActiveProfile(s.profile)

	str := func(flag, env string, dst *string, fromProfile string) {
		if flags.Changed(flag) {
			return
		}
		if v := getenv(envPrefix + env); v != "" {
			*dst = v
		} else if fromProfile != "" {
			*dst = fromProfile
		}
	}

	str("dsn", "DSN", &s.dsn, "")
	str("host", "HOST", &s.host, p.Host)
	str("scheme", "SCHEME", &s.scheme, p.Scheme)
	str("api-key", "API_KEY", &s.apiKey, p.APIKey)
	str("data-source", "DATA_SOURCE", &s.dataSource, p.DataSource)
	str("output", "OUTPUT", &s.output, p.Output)

	if !flags.Changed("port") {
		if v, err := strconv.Atoi(getenv(envPrefix + "PORT")); err == nil {
			s.port = v
		} else if p.Port != 0 {
			s.port = p.Port
		}
	}
}

// config builds the client configuration. When no API key was given and stdin is a terminal, the
// key is prompted for.
func (s *settings) config(stdin *os.File, prompt io.Writer) (*redash.Config, error) {
	if s.dsn != "" {
		return redash.ParseDSN(s.dsn)
	}

	cfg := &redash.Config{
		Scheme:       strings.ToLower(s.scheme),
		Host:         s.host,
		Port:         s.port,
		APIKey:       s.apiKey,
		DataSourceID: s.dataSource,
	}
	if cfg.APIKey == "" && stdin != nil && term.IsTerminal(int(stdin.Fd())) {
		key, err := readSecret(stdin, prompt, "Redash API key: ")
		if err != nil {
			return nil, err
		}
		cfg.APIKey = key
	}
	return cfg, cfg.Validate()
}

func readSecret(stdin *os.File, prompt io.Writer, label string) (string, error) {
	fmt.Fprint(prompt, label)
	b, err := term.ReadPassword(int(stdin.Fd()))
	fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("read API key: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// openDB returns a *sql.DB over the Redash driver.
func (s *settings) openDB(cmd *cobra.Command) (*sql.DB, error) {
	cfg, err := s.config(os.Stdin, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	connector, err := redash.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	return sql.OpenDB(connector), nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "redash-go %s\n", redash.Version)
			return err
		},
	}
}
