package classify

import "time"

type Config struct {
	RequestTimeout time.Duration `envconfig:"KNN_CLASSIFY_REQUEST_TIMEOUT" default:"30s"`
	MaxQueriesLen  int           `envconfig:"KNN_CLASSIFY_MAX_QUERIES_LEN" default:"64"`
	MaxImportLen   int           `envconfig:"KNN_CLASSIFY_MAX_IMPORT_LEN" default:"10000"`
	DefaultK       int           `envconfig:"KNN_K" default:"10"`
}
