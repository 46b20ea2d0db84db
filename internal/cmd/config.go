package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mastershashi/llm-engineering-usecases/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or initialise amsab configuration",
	Long: `Manage the amsab configuration stored at ~/.amsab/config.yaml.

Every key can also be set from the environment with the AMSAB_ prefix,
for example AMSAB_SERVER_URL or AMSAB_LOG_LEVEL.

Examples:
  # Write a config file with the defaults
  amsab config init

  # Point it at a remote engine
  amsab config init --server https://engine.example.com --force

  # Show the effective configuration
  amsab config show
`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file",
	Long:  `Write the default configuration, with any overrides given as flags, to --config or ~/.amsab/config.yaml.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	Long:  `Display the configuration after defaults, the config file and AMSAB_* overrides are applied. The token is masked.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

func init() {
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
	configInitCmd.Flags().String("server", "", "engine base URL")
	configInitCmd.Flags().String("token", "", "bearer token sent to the engine")
	configInitCmd.Flags().String("metrics-addr", "", "listen address of the watch probe server")

	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return fmt.Errorf("failed to locate home directory: %w", err)
		}
	}

	force, _ := cmd.Flags().GetBool("force")
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg := config.Default()
	if server, _ := cmd.Flags().GetString("server"); server != "" {
		cfg.Server.URL = server
	}
	if token, _ := cmd.Flags().GetString("token"); token != "" {
		cfg.Server.Token = token
	}
	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		cfg.Metrics.Addr = addr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := config.Save(cfg, path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if cfg.Server.Token != "" {
		cfg.Server.Token = "********"
	}

	format, _ := cmd.Flags().GetString("output")
	if format == "" || format == "text" {
		format = "yaml"
	}
	return (&CommandContext{Format: format, Out: cmd.OutOrStdout()}).Print(cfg)
}
