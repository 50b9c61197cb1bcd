package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration profiles",
	}
	cmd.AddCommand(newConfigViewCmd())
	cmd.AddCommand(newConfigSetProfileCmd())
	cmd.AddCommand(newConfigUseCmd())
	return cmd
}

func newConfigViewCmd() *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Print the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := loadOrNewUserConfig()
			if !reveal {
				cfg = maskConfig(cfg)
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().BoolVar(&reveal, "reveal", false, "Show API keys unmasked")
	return cmd
}

func newConfigSetProfileCmd() *cobra.Command {
	var p Profile

	cmd := &cobra.Command{
		Use:   "set-profile NAME",
		Short: "Create or update a profile",
		Example: `  redash config set-profile prod --host redash.example.com --scheme https --api-key KEY
  redash config set-profile prod --data-source 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadOrNewUserConfig()
			name := args[0]

			// Only the given flags are changed on an existing profile.
			existing := cfg.Profiles[name]
			flags := cmd.Flags()
			if flags.Changed("host") {
				existing.Host = p.Host
			}
			if flags.Changed("port") {
				existing.Port = p.Port
			}
			if flags.Changed("scheme") {
				existing.Scheme = p.Scheme
			}
			if flags.Changed("api-key") {
				existing.APIKey = p.APIKey
			}
			if flags.Changed("data-source") {
				existing.DataSource = p.DataSource
			}
			if flags.Changed("output") {
				if err := validateOutputFormat(p.Output); err != nil {
					return err
				}
				existing.Output = p.Output
			}
			cfg.Profiles[name] = existing
			if len(cfg.Profiles) == 1 {
				cfg.CurrentProfile = name
			}

			if err := SaveUserConfig(cfg); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Profile %q saved to %s\n", name, ConfigPath())
			return err
		},
	}

	// Local flags shadow the persistent connection flags of the root command.
	cmd.Flags().StringVar(&p.Host, "host", "", "Redash host")
	cmd.Flags().IntVar(&p.Port, "port", 0, "Redash port")
	cmd.Flags().StringVar(&p.Scheme, "scheme", "", "http or https")
	cmd.Flags().StringVar(&p.APIKey, "api-key", "", "Redash API key")
	cmd.Flags().StringVar(&p.DataSource, "data-source", "", "Data source id for ad-hoc queries")
	cmd.Flags().StringVarP(&p.Output, "output", "o", "", "Default output format (table, json, yaml)")
	return cmd
}

func newConfigUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use NAME",
		Short: "Switch the current profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadOrNewUserConfig()
			name := args[0]
			if _, ok := cfg.Profiles[name]; !ok {
				return fmt.Errorf("profile %q not found", name)
			}
			cfg.CurrentProfile = name
			if err := SaveUserConfig(cfg); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Switched to profile %q\n", name)
			return err
		},
	}
}
