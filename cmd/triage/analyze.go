package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guildcare/internal/triage"
)

var (
	analyzeMessage string
	analyzePlayer  string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [message]",
	Short: "Analyze one support message and print the decision",
	Long: `Runs the decision pipeline once and prints the analysis as JSON.
The message comes from the argument, --message, or stdin; the player
context from --player as a JSON object.

Example:
  triage analyze "my purchase never arrived" --player '{"player_id":"p-1","vip_level":6}'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeMessage, "message", "m", "", "Player message")
	analyzeCmd.Flags().StringVarP(&analyzePlayer, "player", "p", `{"player_id":"cli"}`, "Player context as JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	message, err := readMessage(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	var player triage.PlayerContext
	if err := json.Unmarshal([]byte(analyzePlayer), &player); err != nil {
		return fmt.Errorf("failed to parse player context: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c, err := buildComponents(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer c.Close(cmd.Context())

	analysis, err := c.analyzer.Analyze(cmd.Context(), message, player)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(analysis)
}

func readMessage(stdin io.Reader, args []string) (string, error) {
	switch {
	case len(args) == 1:
		return args[0], nil
	case analyzeMessage != "":
		return analyzeMessage, nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read message: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
