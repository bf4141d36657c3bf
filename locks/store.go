package locks

import (
	"sync"

	"codearena-realtime/core"
)

type (
	// Store holds the authoritative lock table. The in-process
	// implementation below assumes a single hub instance owns every
	// lock decision for a workspace (sticky routing). A multi-instance
	// deployment replaces it with a centrally-owned compare-and-swap
	// store implementing the same methods.
	Store interface {
		Get(workspaceID, filePath string) (core.FileLock, bool)
		Put(workspaceID, filePath string, lock core.FileLock)
		Delete(workspaceID, filePath string)
		ListWorkspace(workspaceID string) []core.FileLock
		Workspaces() []string
	}

	memoryStore struct {
		mu    sync.RWMutex
		locks map[string]map[string]core.FileLock
	}
)

// NewMemoryStore creates the in-process lock table.
func NewMemoryStore() Store {
	return &memoryStore{locks: make(map[string]map[string]core.FileLock)}
}

func (s *memoryStore) Get(workspaceID, filePath string) (core.FileLock, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lock, ok := s.locks[workspaceID][filePath]
	return lock, ok
}

func (s *memoryStore) Put(workspaceID, filePath string, lock core.FileLock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.locks[workspaceID]
	if !ok {
		ws = make(map[string]core.FileLock)
		s.locks[workspaceID] = ws
	}
	ws[filePath] = lock
}

func (s *memoryStore) Delete(workspaceID, filePath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.locks[workspaceID]
	if !ok {
		return
	}
	delete(ws, filePath)
	if len(ws) == 0 {
		delete(s.locks, workspaceID)
	}
}

func (s *memoryStore) Workspaces() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.locks))
	for workspaceID := range s.locks {
		out = append(out, workspaceID)
	}
	return out
}

func (s *memoryStore) ListWorkspace(workspaceID string) []core.FileLock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ws := s.locks[workspaceID]
	out := make([]core.FileLock, 0, len(ws))
	for _, lock := range ws {
		out = append(out, lock)
	}
	return out
}
