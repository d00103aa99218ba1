// Package blob defines where a bundle's files go. Keys are paths relative
// to the bundle root, such as "data.yaml" or "photometry/ZTF21abc_ZTF.csv".
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
	DriverMemory     Driver = "memory"
)

func ParseDriver(s string) (Driver, error) {
	switch d := Driver(strings.ToLower(s)); d {
	case DriverFilesystem, DriverS3, DriverMemory:
		return d, nil
	case "":
		return DriverFilesystem, nil
	}
	return "", fmt.Errorf("unknown blob driver %q", s)
}

type PutOptions struct {
	ContentType string
}

// Info describes a written file.
type Info struct {
	Key  string
	Size int64
	// Location is where the file ended up: an absolute path for the
	// filesystem driver, an s3:// URL for S3.
	Location string
}

// Store receives bundle files. Writing a key twice replaces the first
// write.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Driver() Driver
}

var ErrInvalidKey = errors.New("invalid blob key")

// CleanKey normalizes key and rejects keys that would leave the bundle root.
func CleanKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q is absolute", ErrInvalidKey, key)
	}
	clean := path.Clean(strings.ReplaceAll(key, "\\", "/"))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q escapes the bundle", ErrInvalidKey, key)
	}
	return clean, nil
}
