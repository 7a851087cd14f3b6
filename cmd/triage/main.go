package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/guildcare/internal/config"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Support triage and compensation service",
	Long: `triage reads player support messages, detects the issue behind them,
and recommends in-game compensation. Recommendations that need a person
are held for an agent to approve or reject before anything reaches the player.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "triage %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config/config.yaml", "Configuration file path")
	rootCmd.AddCommand(serveCmd, analyzeCmd, versionCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
