package cli

import (
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"mindmaze-client/internal/config"
	"mindmaze-client/internal/transport/httpapi"
)

// deps bundles the pieces every subcommand needs.
type deps struct {
	cfg   config.Config
	log   zerolog.Logger
	api   *httpapi.Client
	redis *goredis.Client // nil when not configured
}

func buildDeps(configPath, apiFlag string) (deps, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		// A missing config file is fine when the API URL comes from the flag.
		if apiFlag == "" {
			return deps{}, fmt.Errorf("load config %s: %w", configPath, err)
		}
		cfg = config.Config{}
	}
	if apiFlag != "" {
		cfg.Server.APIURL = apiFlag
	}
	if cfg.Server.APIURL == "" {
		return deps{}, fmt.Errorf("no server URL configured; set server.api_url or --api")
	}

	log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

	timeout := config.TTLDuration(cfg.Client.RequestTimeout, 10*time.Second)
	api := httpapi.NewClient(cfg.Server.APIURL, timeout, log)

	var redisClient *goredis.Client
	if cfg.Redis.Addr != "" {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	return deps{cfg: cfg, log: log, api: api, redis: redisClient}, nil
}
