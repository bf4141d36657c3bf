package locks

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"codearena-realtime/core"
)

type recordingNotifier struct {
	mu       sync.Mutex
	locked   []string
	unlocked []string
}

func (n *recordingNotifier) FileLocked(workspaceID string, lock core.FileLock) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.locked = append(n.locked, workspaceID+":"+lock.FilePath)
}

func (n *recordingNotifier) FileUnlocked(workspaceID, filePath string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.unlocked = append(n.unlocked, workspaceID+":"+filePath)
}

func (n *recordingNotifier) lockedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.locked)
}

func (n *recordingNotifier) unlockedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.unlocked)
}

var (
	alice = core.Identity{UserID: "alice", Username: "Alice"}
	bob   = core.Identity{UserID: "bob", Username: "Bob"}
)

func TestLockContentionScenario(t *testing.T) {
	notifier := &recordingNotifier{}
	manager := NewManager(NewMemoryStore(), notifier, time.Minute)

	if result := manager.Request("42", "/src/a.ts", alice); !result.Granted {
		t.Fatal("expected alice's request to be granted")
	}

	result := manager.Request("42", "/src/a.ts", bob)
	if result.Granted {
		t.Fatal("expected bob's request to be denied")
	}
	if result.OwnerID != "alice" {
		t.Fatalf("expected denial to name alice, got %q", result.OwnerID)
	}

	// A foreign release must not disturb the lease.
	manager.Release("42", "/src/a.ts", bob)
	if locks := manager.Snapshot("42"); len(locks) != 1 || locks[0].OwnerID != "alice" {
		t.Fatalf("expected alice to still hold the lock, got %+v", locks)
	}

	manager.Release("42", "/src/a.ts", alice)
	if locks := manager.Snapshot("42"); len(locks) != 0 {
		t.Fatalf("expected empty lock table, got %+v", locks)
	}

	if result := manager.Request("42", "/src/a.ts", bob); !result.Granted {
		t.Fatal("expected bob's request to be granted after release")
	}
}

func TestKeepAliveDoesNotRebroadcast(t *testing.T) {
	notifier := &recordingNotifier{}
	manager := NewManager(NewMemoryStore(), notifier, time.Minute)

	manager.Request("7", "/main.go", alice)
	if got := notifier.lockedCount(); got != 1 {
		t.Fatalf("expected 1 file-locked broadcast, got %d", got)
	}

	before, _ := manager.store.Get("7", "/main.go")
	time.Sleep(5 * time.Millisecond)

	if result := manager.Request("7", "/main.go", alice); !result.Granted {
		t.Fatal("expected keep-alive to be granted")
	}
	if got := notifier.lockedCount(); got != 1 {
		t.Fatalf("keep-alive must not rebroadcast, got %d broadcasts", got)
	}

	after, _ := manager.store.Get("7", "/main.go")
	if !after.LastActivityAt.After(before.LastActivityAt) {
		t.Fatal("expected keep-alive to refresh LastActivityAt")
	}
	if !after.GrantedAt.Equal(before.GrantedAt) {
		t.Fatal("keep-alive must not change GrantedAt")
	}
}

func TestDisconnectReleasesEveryHeldLock(t *testing.T) {
	notifier := &recordingNotifier{}
	manager := NewManager(NewMemoryStore(), notifier, time.Minute)

	paths := []string{"/a.go", "/b.go", "/c.go"}
	for _, p := range paths {
		manager.Request("9", p, alice)
	}
	manager.Request("9", "/d.go", bob)

	manager.ReleaseAllOwnedBy("9", alice)

	if got := notifier.unlockedCount(); got != len(paths) {
		t.Fatalf("expected exactly %d file-unlocked broadcasts, got %d", len(paths), got)
	}
	locks := manager.Snapshot("9")
	if len(locks) != 1 || locks[0].OwnerID != "bob" {
		t.Fatalf("expected only bob's lock to survive, got %+v", locks)
	}
}

func TestDisconnectSweepCoversLeftWorkspaces(t *testing.T) {
	notifier := &recordingNotifier{}
	manager := NewManager(NewMemoryStore(), notifier, time.Minute)

	// Alice grabs leases in two workspaces, bob in one of them.
	manager.Request("9", "/a.go", alice)
	manager.Request("14", "/b.go", alice)
	manager.Request("9", "/d.go", bob)

	// Her socket already left room 9 before the connection dropped,
	// so the disconnect sweep cannot rely on room membership.
	manager.ReleaseAllHeldBy(alice)

	if got := notifier.unlockedCount(); got != 2 {
		t.Fatalf("expected exactly 2 file-unlocked broadcasts, got %d", got)
	}
	if locks := manager.Snapshot("14"); len(locks) != 0 {
		t.Fatalf("expected workspace 14 lock table to be empty, got %+v", locks)
	}
	locks := manager.Snapshot("9")
	if len(locks) != 1 || locks[0].OwnerID != "bob" {
		t.Fatalf("expected only bob's lock to survive, got %+v", locks)
	}
}

func TestLockExpiresWithoutRenewal(t *testing.T) {
	notifier := &recordingNotifier{}
	manager := NewManager(NewMemoryStore(), notifier, 30*time.Millisecond)

	manager.Request("3", "/x.py", alice)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(manager.Snapshot("3")) == 0 {
			if got := notifier.unlockedCount(); got != 1 {
				t.Fatalf("expected exactly 1 file-unlocked on expiry, got %d", got)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("lock did not expire within deadline")
}

func TestRenewalResetsExpiry(t *testing.T) {
	notifier := &recordingNotifier{}
	manager := NewManager(NewMemoryStore(), notifier, 60*time.Millisecond)

	manager.Request("3", "/y.py", alice)

	// Keep re-affirming past several timeout windows.
	for i := 0; i < 6; i++ {
		time.Sleep(20 * time.Millisecond)
		if result := manager.Request("3", "/y.py", alice); !result.Granted {
			t.Fatal("expected keep-alive to be granted")
		}
	}
	if len(manager.Snapshot("3")) != 1 {
		t.Fatal("expected renewed lock to still be held")
	}
	if got := notifier.unlockedCount(); got != 0 {
		t.Fatalf("expected no expiry while renewed, got %d unlocks", got)
	}
}

func TestMutualExclusionUnderConcurrency(t *testing.T) {
	notifier := &recordingNotifier{}
	manager := NewManager(NewMemoryStore(), notifier, time.Minute)

	const contenders = 32
	granted := make(chan string, contenders)
	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := core.Identity{UserID: fmt.Sprintf("user-%d", i), Username: fmt.Sprintf("User %d", i)}
			if result := manager.Request("11", "/shared.ts", id); result.Granted {
				granted <- id.UserID
			}
		}(i)
	}
	wg.Wait()
	close(granted)

	winners := []string{}
	for w := range granted {
		winners = append(winners, w)
	}
	if len(winners) != 1 {
		t.Fatalf("expected exactly one grant, got %d: %v", len(winners), winners)
	}
	locks := manager.Snapshot("11")
	if len(locks) != 1 || locks[0].OwnerID != winners[0] {
		t.Fatalf("lock table disagrees with the grant: %+v", locks)
	}
}
