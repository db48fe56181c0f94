package dispatcher

import (
	"time"

	"github.com/go-sod/knn/internal/geom"
)

type Config struct {
	Shards         int             `envconfig:"KNN_SHARDS" default:"4"`
	Metric         geom.MetricType `envconfig:"KNN_METRIC" default:"EUCLIDEAN"`
	ReloadInterval time.Duration   `envconfig:"KNN_RELOAD_INTERVAL" default:"1m"`
	MaxItemsStored int             `envconfig:"KNN_MAX_ITEMS_STORED" default:"0"`
	MaxStorageTime time.Duration   `envconfig:"KNN_MAX_STORAGE_TIME" default:"0s"`
}

// Options converts the configuration into manager options.
func (c *Config) Options() ([]Option, error) {
	metric, err := geom.MetricFor(c.Metric)
	if err != nil {
		return nil, err
	}
	return []Option{
		WithShards(c.Shards),
		WithMetric(metric),
		WithReloadInterval(c.ReloadInterval),
		WithMaxItemsStored(c.MaxItemsStored),
		WithMaxStorageTime(c.MaxStorageTime),
	}, nil
}
