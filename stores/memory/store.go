package memory

import (
	"context"
	"strings"
	"sync"

	"codearena-realtime/core"
)

// memStore keeps every blob in a plain map. It exists so the server
// can run without storage credentials; nothing survives a restart.
type memStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewStore creates a new in-memory store.
func NewStore() *memStore {
	return &memStore{blobs: make(map[string][]byte)}
}

func (s *memStore) Upload(ctx context.Context, key string, content []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, len(content))
	copy(buf, content)
	s.blobs[key] = buf
	return nil
}

func (s *memStore) Download(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	content, ok := s.blobs[key]
	if !ok {
		return nil, core.ErrKeyNotFound
	}
	buf := make([]byte, len(content))
	copy(buf, content)
	return buf, nil
}

func (s *memStore) List(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := []string{}
	for key := range s.blobs {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, strings.TrimPrefix(key, prefix))
		}
	}
	return keys, nil
}

func (s *memStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.blobs, key)
	return nil
}

func (s *memStore) DeleteFolder(ctx context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.blobs {
		if strings.HasPrefix(key, prefix) {
			delete(s.blobs, key)
		}
	}
	return nil
}
