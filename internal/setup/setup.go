package setup

import (
	"context"
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/go-sod/knn/internal/database"
	"github.com/go-sod/knn/internal/dispatcher"
	"github.com/go-sod/knn/internal/logging"
	obsDb "github.com/go-sod/knn/internal/observation/database"
	"github.com/go-sod/knn/internal/observation/redisdb"
	"github.com/go-sod/knn/internal/srvenv"
)

type DatabaseConfigProvider interface {
	DatabaseConfig() *database.Config
}

type RedisConfigProvider interface {
	RedisConfig() *redisdb.Config
}

type DispatcherConfigProvider interface {
	DispatcherConfig() *dispatcher.Config
}

// Setup reads the environment into config and builds the server
// environment for the providers config implements. An enabled Redis
// source takes precedence over the bbolt database.
func Setup(ctx context.Context, config interface{}) (*srvenv.SrvEnv, error) {
	logger := logging.FromContext(ctx)
	if err := envconfig.Process("", config); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	var (
		env    = srvenv.New()
		source dispatcher.Source
	)

	if redisConfigProvider, ok := config.(RedisConfigProvider); ok && redisConfigProvider.RedisConfig().Enabled() {
		logger.Info("Configuring redis source")
		db, err := redisdb.New(ctx, redisConfigProvider.RedisConfig())
		if err != nil {
			return nil, fmt.Errorf("unable to connect to redis: %w", err)
		}
		env = srvenv.WithRedis(db)(env)
		source = db
	} else if dbConfigProvider, ok := config.(DatabaseConfigProvider); ok {
		logger.Info("Configuring db")
		db, err := database.NewFromEnv(ctx, dbConfigProvider.DatabaseConfig())
		if err != nil {
			return nil, fmt.Errorf("unable to connect to database: %w", err)
		}
		env = srvenv.WithDatabase(db)(env)
		source = obsDb.New(db)
	}

	if dispatcherConfigProvider, ok := config.(DispatcherConfigProvider); ok {
		if source == nil {
			_ = env.Close(ctx)
			return nil, fmt.Errorf("dispatcher requires an observation source")
		}
		logger.Info("Configuring dispatcher")
		opts, err := dispatcherConfigProvider.DispatcherConfig().Options()
		if err != nil {
			_ = env.Close(ctx)
			return nil, fmt.Errorf("unable configure dispatcher: %w", err)
		}
		m, err := dispatcher.New(source, opts...)
		if err != nil {
			_ = env.Close(ctx)
			return nil, fmt.Errorf("unable create dispatcher: %w", err)
		}
		env = srvenv.WithDispatcher(m)(env)
	}

	return env, nil
}
