package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/igusev/siterank/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the siterank configuration",
	Long: `Shows the resolved configuration or writes an example file.
The ban list excludes sites from every later sync.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write an example config to ~/.config/siterank/config.yaml.example",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration as YAML",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configBanCmd = &cobra.Command{
	Use:   "ban <domain|glob>",
	Short: "Exclude a site, e.g. scam.onion or '*.spam.i2p'",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigBan,
}

var configUnbanCmd = &cobra.Command{
	Use:   "unban <domain|glob>",
	Short: "Remove a pattern from the ban list",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigUnban,
}

func init() {
	configCmd.AddCommand(configInitCmd, configShowCmd, configBanCmd, configUnbanCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if err := config.CreateExampleConfig(); err != nil {
		return fmt.Errorf("failed to write example config: %w", err)
	}

	printLogo(version)
	printSuccess("Example configuration written to " + config.ExampleConfigPath())
	printMuted(fmt.Sprintf("Copy it to %s and adjust the networks and paths.", config.ConfigPath()))
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return writeYAML(cmd.OutOrStdout(), cfg)
}

// writeYAML prints v as YAML
func writeYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}

func runConfigBan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.AddBan(args[0]); err != nil {
		return err
	}

	printSuccess(fmt.Sprintf("Banned %s (%d patterns)", args[0], len(cfg.BannedSites)))
	printMuted("Run 'siterank sync --full' to drop already indexed pages.")
	return nil
}

func runConfigUnban(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	before := len(cfg.BannedSites)
	if err := cfg.RemoveBan(args[0]); err != nil {
		return err
	}
	if len(cfg.BannedSites) == before {
		printWarning(args[0] + " was not banned")
		return nil
	}

	printSuccess("Unbanned " + args[0])
	return nil
}
