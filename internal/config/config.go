package config

import (
	"github.com/go-sod/knn/internal/classify"
	"github.com/go-sod/knn/internal/database"
	"github.com/go-sod/knn/internal/dispatcher"
	"github.com/go-sod/knn/internal/observation/redisdb"
	"github.com/go-sod/knn/internal/setup"
)

var (
	_ setup.DatabaseConfigProvider   = (*Config)(nil)
	_ setup.RedisConfigProvider      = (*Config)(nil)
	_ setup.DispatcherConfigProvider = (*Config)(nil)
)

type Config struct {
	SrvAddr          string  `envconfig:"KNN_ADDR" default:":8787"`
	GRPCAddr         string  `envconfig:"KNN_GRPC_ADDR" default:":8788"`
	MaxConns         int     `envconfig:"KNN_MAX_CONNS" default:"1024"`
	MetricsNamespace string  `envconfig:"KNN_METRICS_NAMESPACE" default:"knn"`
	RateLimit        float64 `envconfig:"KNN_RATE_LIMIT" default:"0"`
	RateBurst        int     `envconfig:"KNN_RATE_BURST" default:"100"`
	Dispatcher       dispatcher.Config
	Classify         classify.Config
	Database         database.Config
	Redis            redisdb.Config
}

func (c *Config) DispatcherConfig() *dispatcher.Config {
	return &c.Dispatcher
}

func (c *Config) ClassifyConfig() *classify.Config {
	return &c.Classify
}

func (c *Config) DatabaseConfig() *database.Config {
	return &c.Database
}

func (c *Config) RedisConfig() *redisdb.Config {
	return &c.Redis
}
