// Command rental-cache runs the cache admin server and offers operator
// commands for inspecting and invalidating cache entries.
package main

import (
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/rental-cache/pkg/cache"
	"github.com/Sternrassler/rental-cache/pkg/config"
	"github.com/Sternrassler/rental-cache/pkg/logging"
)

const serviceName = "rental-cache"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries state shared by all subcommands.
type app struct {
	configFile string
	cfg        config.Config
	logger     zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          serviceName,
		Short:        "Rental platform cache administration",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configFile)
			if err != nil {
				return err
			}
			a.cfg = cfg

			logCfg := cfg.LoggingConfig()
			logCfg.Service = serviceName
			logCfg.Output = cmd.ErrOrStderr()
			a.logger = logging.Setup(logCfg)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (environment variables take precedence)")

	root.AddCommand(
		newServeCmd(a),
		newGetCmd(a),
		newTTLCmd(a),
		newDelCmd(a),
		newInvalidateCmd(a),
	)

	return root
}

// connect opens the Redis client and cache service. Callers close the
// returned client.
func (a *app) connect() (*cache.Service, *redis.Client, error) {
	opt, err := a.cfg.RedisOptions()
	if err != nil {
		return nil, nil, err
	}

	redisClient := redis.NewClient(opt)

	cacheCfg, err := a.cfg.CacheConfig(redisClient, logging.NewLogger("cache"))
	if err != nil {
		redisClient.Close()
		return nil, nil, err
	}

	svc, err := cache.New(cacheCfg)
	if err != nil {
		redisClient.Close()
		return nil, nil, fmt.Errorf("create cache service: %w", err)
	}

	return svc, redisClient, nil
}
