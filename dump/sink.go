package dump

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skyportal/dump/blob"
	"github.com/skyportal/dump/blob/fs"
	"github.com/skyportal/dump/blob/memory"
	"github.com/skyportal/dump/blob/s3"
	"github.com/skyportal/dump/config"
)

// ResultsDir holds one directory per run unless --directory is given.
const ResultsDir = "results"

const stampLayout = "2006-01-02_15-04-05"

// TimeStamp names a run after its start time.
func TimeStamp(now time.Time) string {
	return now.Format(stampLayout)
}

// RandomStamp names a run with a fresh UUID.
func RandomStamp() string {
	return uuid.NewString()
}

// RunDirectory returns base/stamp, or base/stamp_N with the smallest N
// starting at 1 for which exists reports false.
func RunDirectory(base, stamp string, exists func(string) bool) string {
	dir := path.Join(base, stamp)
	if !exists(dir) {
		return dir
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s_%d", dir, n)
		if !exists(candidate) {
			return candidate
		}
	}
}

func dirExists(dir string) bool {
	_, err := os.Stat(filepath.FromSlash(dir))
	return err == nil
}

// OpenStore opens the run's blob store for the configured driver. The run
// directory is cfg.Directory when set, else a fresh directory under
// results/ named after stamp.
func OpenStore(ctx context.Context, cfg *config.Config, stamp string) (blob.Store, error) {
	driver, err := blob.ParseDriver(cfg.Blob.Driver)
	if err != nil {
		return nil, err
	}

	switch driver {
	case blob.DriverMemory:
		return memory.New(), nil

	case blob.DriverS3:
		prefix := cfg.Directory
		if prefix == "" {
			prefix = path.Join(ResultsDir, stamp)
		}
		c := cfg.Blob.S3
		return s3.New(ctx, s3.Config{
			Region:          c.Region,
			Bucket:          c.Bucket,
			Prefix:          strings.Trim(prefix, "/"),
			Endpoint:        c.Endpoint,
			AccessKeyID:     c.AccessKeyID,
			SecretAccessKey: c.SecretAccessKey,
			SessionToken:    c.SessionToken,
			PathStyle:       c.PathStyle,
		})
	}

	dir := cfg.Directory
	if dir == "" {
		dir = RunDirectory(ResultsDir, stamp, dirExists)
	}
	return fs.New(filepath.FromSlash(dir))
}
