package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mindmaze-client/internal/config"
	"mindmaze-client/internal/domain"
	redisstore "mindmaze-client/internal/infra/redis"
)

// NewLeaderboardCmd prints the global scoreboard, through the Redis mirror
// when one is configured.
func NewLeaderboardCmd(configPath, apiFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the global leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(*configPath, *apiFlag)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			var entries []domain.LeaderboardEntry
			if d.redis != nil {
				ttl := config.TTLDuration(d.cfg.Leaderboard.TTL, 15*time.Second)
				cache := redisstore.NewLeaderboardCache(d.redis, d.api, ttl)
				entries, err = cache.Leaderboard(ctx)
			} else {
				entries, err = d.api.Leaderboard(ctx)
			}
			if err != nil {
				return err
			}

			for i, entry := range entries {
				fmt.Printf("%2d. %-20s %d\n", i+1, entry.Username, entry.Score)
			}
			return nil
		},
	}
}
