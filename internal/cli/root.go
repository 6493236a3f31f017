package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	apiURL     string
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}
	envAPI := os.Getenv("MINDMAZE_API_URL")

	cmd := &cobra.Command{
		Use:   "mindmaze",
		Short: "Realtime multiplayer trivia client for the MindMaze game server",
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.PersistentFlags().StringVar(&apiURL, "api", envAPI, "game server base URL (overrides config)")
	cmd.AddCommand(NewPlayCmd(&configPath, &apiURL))
	cmd.AddCommand(NewLeaderboardCmd(&configPath, &apiURL))
	cmd.AddCommand(NewStatsCmd(&configPath, &apiURL))
	return cmd
}
