package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewStatsCmd prints the server's aggregate counters.
func NewStatsCmd(configPath, apiFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show server statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(*configPath, *apiFlag)
			if err != nil {
				return err
			}

			stats, err := d.api.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("players: %d\nconnected: %d\nactive games: %d\n",
				stats.TotalUsers, stats.ConnectedPlayers, stats.ActiveGames)
			return nil
		},
	}
}
