package fs

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/skyportal/dump/blob"
)

// Store writes bundle files under a run directory.
type Store struct {
	root string
}

// New returns a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: abs}, nil
}

func (s *Store) Driver() blob.Driver { return blob.DriverFilesystem }

// Root is the absolute run directory.
func (s *Store) Root() string { return s.root }

func (s *Store) Put(ctx context.Context, key string, r io.Reader, _ blob.PutOptions) (blob.Info, error) {
	k, err := blob.CleanKey(key)
	if err != nil {
		return blob.Info{}, err
	}
	if err := ctx.Err(); err != nil {
		return blob.Info{}, err
	}

	dst := filepath.Join(s.root, filepath.FromSlash(k))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return blob.Info{}, err
	}

	// stream to a temp file so a failed write never leaves a truncated file
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return blob.Info{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	size, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		return blob.Info{}, err
	}
	if err := tmp.Close(); err != nil {
		return blob.Info{}, err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return blob.Info{}, err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return blob.Info{}, err
	}

	return blob.Info{Key: k, Size: size, Location: dst}, nil
}
