package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type SkyPortal struct {
	URL         string        `env:"URL"`
	Token       string        `env:"TOKEN"`
	Whitelisted bool          `env:"WHITELISTED, default=false"`
	Timeout     time.Duration `env:"TIMEOUT, default=60s"`
}

type Pacing struct {
	Every int           `env:"EVERY, default=10"`
	Pause time.Duration `env:"PAUSE, default=1s"`
}

type S3 struct {
	Bucket          string `env:"BUCKET"`
	Region          string `env:"REGION, default=us-east-1"`
	Endpoint        string `env:"ENDPOINT"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
	SessionToken    string `env:"SESSION_TOKEN"`
	PathStyle       bool   `env:"PATH_STYLE, default=false"`
}

type Blob struct {
	// fs or s3
	Driver string `env:"DRIVER, default=fs"`
	S3     S3     `env:",prefix=S3_"`
}

// Query holds the per-run selection parameters. Pointer fields are
// absent unless set by a flag or the config file.
type Query struct {
	LocalizationDateobs string
	LocalizationName    string
	StartDate           string
	EndDate             string
	LocalizationCumprob *float64
	NumberDetections    *int
	InstrumentID        *int
	AllocationID        *int
	SourceID            string
	Service             string
	OutputFormat        string
}

type Config struct {
	SkyPortal  SkyPortal `env:",prefix=SKYDUMP_SKYPORTAL_"`
	Pacing     Pacing    `env:",prefix=SKYDUMP_PACING_"`
	Blob       Blob      `env:",prefix=SKYDUMP_BLOB_"`
	NumPerPage int       `env:"SKYDUMP_NUM_PER_PAGE, default=100"`
	Directory  string    `env:"SKYDUMP_DIRECTORY"`
	Verbose    bool      `env:"SKYDUMP_VERBOSE, default=false"`
	// off, file or otlp
	Tracing string `env:"SKYDUMP_TRACING, default=off"`

	// not read from the environment
	Query Query
}

func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads the environment through l, tests pass a
// envconfig.MapLookuper.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	})
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
