package locks

import (
	"sync"
	"time"

	"codearena-realtime/core"

	"github.com/sirupsen/logrus"
)

// DefaultTimeout is how long a lease survives without re-affirmation
// from its owner before being force-released.
const DefaultTimeout = 5 * time.Minute

type (
	// Notifier receives lock state transitions for fan-out to room
	// members. The hub implements it; the manager stays transport-free.
	Notifier interface {
		FileLocked(workspaceID string, lock core.FileLock)
		FileUnlocked(workspaceID, filePath string)
	}

	// Result is the answer to a lock request. Denials carry the
	// current holder so callers can show "locked by X" instead of
	// guessing; contention is not an error.
	Result struct {
		Granted   bool
		OwnerID   string
		OwnerName string
	}

	// Manager enforces at most one lease per (workspace, path) and
	// owns the expiry timers. Every mutation of the table and its
	// timer happens under mu, so renewal can never leave two timers
	// racing for the same path.
	Manager struct {
		mu       sync.Mutex
		store    Store
		notifier Notifier
		timeout  time.Duration
		timers   map[string]*time.Timer
	}
)

// NewManager creates a Manager over the given table. A zero timeout
// selects DefaultTimeout.
func NewManager(store Store, notifier Notifier, timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Manager{
		store:    store,
		notifier: notifier,
		timeout:  timeout,
		timers:   make(map[string]*time.Timer),
	}
}

func timerKey(workspaceID, filePath string) string {
	return workspaceID + "\x00" + filePath
}

// Request grants the lease if the path is free, treats a re-request by
// the current owner as a keep-alive, and denies otherwise.
func (m *Manager) Request(workspaceID, filePath string, identity core.Identity) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if existing, ok := m.store.Get(workspaceID, filePath); ok {
		if existing.OwnerID != identity.UserID {
			return Result{Granted: false, OwnerID: existing.OwnerID, OwnerName: existing.OwnerName}
		}
		// Keep-alive: refresh activity and rearm the timer, no broadcast.
		existing.LastActivityAt = now
		m.store.Put(workspaceID, filePath, existing)
		m.armLocked(workspaceID, filePath)
		return Result{Granted: true, OwnerID: identity.UserID, OwnerName: identity.Username}
	}

	lock := core.FileLock{
		FilePath:       filePath,
		OwnerID:        identity.UserID,
		OwnerName:      identity.Username,
		GrantedAt:      now,
		LastActivityAt: now,
	}
	m.store.Put(workspaceID, filePath, lock)
	m.armLocked(workspaceID, filePath)

	logrus.WithFields(logrus.Fields{
		"workspaceId": workspaceID,
		"filePath":    filePath,
		"owner":       identity.UserID,
	}).Debug("File lock granted")
	m.notifier.FileLocked(workspaceID, lock)
	return Result{Granted: true, OwnerID: identity.UserID, OwnerName: identity.Username}
}

// Release deletes the lease if identity holds it. Releasing an unheld
// or foreign lock is a no-op so a timeout racing an explicit release
// stays harmless.
func (m *Manager) Release(workspaceID, filePath string, identity core.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.store.Get(workspaceID, filePath)
	if !ok || existing.OwnerID != identity.UserID {
		return
	}
	m.releaseLocked(workspaceID, filePath)
}

// ReleaseAllOwnedBy releases every lease identity holds in the
// workspace, one file-unlocked broadcast per path. This is the
// leave-workspace path; a member who leaves the room keeps no leases
// behind.
func (m *Manager) ReleaseAllOwnedBy(workspaceID string, identity core.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseAllOwnedByLocked(workspaceID, identity)
}

// ReleaseAllHeldBy releases every lease identity holds in any
// workspace. Ownership outlives room membership, so the disconnect
// path must sweep the whole table rather than the rooms the socket
// happened to still be in; no orphaned lease survives a disconnect.
func (m *Manager) ReleaseAllHeldBy(identity core.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, workspaceID := range m.store.Workspaces() {
		m.releaseAllOwnedByLocked(workspaceID, identity)
	}
}

// releaseAllOwnedByLocked releases identity's leases in one workspace.
// Caller holds mu.
func (m *Manager) releaseAllOwnedByLocked(workspaceID string, identity core.Identity) {
	for _, lock := range m.store.ListWorkspace(workspaceID) {
		if lock.OwnerID == identity.UserID {
			m.releaseLocked(workspaceID, lock.FilePath)
		}
	}
}

// Snapshot returns the current lock table of a workspace, for the
// file-locks-state payload sent to a joining member.
func (m *Manager) Snapshot(workspaceID string) []core.FileLock {
	return m.store.ListWorkspace(workspaceID)
}

// releaseLocked deletes the lease, stops its timer and broadcasts.
// Caller holds mu.
func (m *Manager) releaseLocked(workspaceID, filePath string) {
	key := timerKey(workspaceID, filePath)
	if timer, ok := m.timers[key]; ok {
		timer.Stop()
		delete(m.timers, key)
	}
	m.store.Delete(workspaceID, filePath)
	logrus.WithFields(logrus.Fields{
		"workspaceId": workspaceID,
		"filePath":    filePath,
	}).Debug("File lock released")
	m.notifier.FileUnlocked(workspaceID, filePath)
}

// armLocked cancels any previous timer for the path and schedules a
// fresh expiry. Caller holds mu.
func (m *Manager) armLocked(workspaceID, filePath string) {
	key := timerKey(workspaceID, filePath)
	if timer, ok := m.timers[key]; ok {
		timer.Stop()
	}
	m.timers[key] = time.AfterFunc(m.timeout, func() {
		m.expire(workspaceID, filePath)
	})
}

// expire force-releases a lease whose countdown ran out. Expiry is a
// state transition announced as a normal file-unlocked, not an error.
func (m *Manager) expire(workspaceID, filePath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.store.Get(workspaceID, filePath)
	if !ok {
		// Released before the timer fired.
		return
	}
	if time.Since(lock.LastActivityAt) < m.timeout {
		// A renewal rearmed the countdown while this callback was
		// already in flight; the stale timer must not win.
		return
	}
	logrus.WithFields(logrus.Fields{
		"workspaceId": workspaceID,
		"filePath":    filePath,
	}).Info("File lock expired")
	m.releaseLocked(workspaceID, filePath)
}
