// Package memory implements an in-memory blob Store for tests.
package memory

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/skyportal/dump/blob"
)

type Store struct {
	mu   sync.RWMutex
	objs map[string][]byte
}

func New() *Store { return &Store{objs: make(map[string][]byte)} }

func (s *Store) Driver() blob.Driver { return blob.DriverMemory }

func (s *Store) Put(_ context.Context, key string, r io.Reader, _ blob.PutOptions) (blob.Info, error) {
	k, err := blob.CleanKey(key)
	if err != nil {
		return blob.Info{}, err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return blob.Info{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objs[k] = b
	return blob.Info{Key: k, Size: int64(len(b)), Location: "memory://" + k}, nil
}

// Get returns a copy of the bytes stored under key.
func (s *Store) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.objs[key]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", key)
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// Keys lists stored keys in lexical order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objs))
	for k := range s.objs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
