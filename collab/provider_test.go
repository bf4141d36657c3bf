package collab

import (
	"testing"
)

func TestSharedTextFansOutUpdates(t *testing.T) {
	provider := NewMemoryProvider()
	text, err := provider.SharedText("ws-1/src/main.go")
	if err != nil {
		t.Fatal(err)
	}

	received := [][]byte{}
	unsubscribe := text.OnUpdate(func(update []byte) {
		received = append(received, update)
	})

	if err := text.Apply([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	if len(received) != 1 || string(received[0]) != "hello" {
		t.Fatalf("expected one update, got %v", received)
	}
	if string(text.Snapshot()) != "hello" {
		t.Fatalf("unexpected snapshot %q", text.Snapshot())
	}

	unsubscribe()
	if err := text.Apply([]byte("after")); err != nil {
		t.Fatal(err)
	}
	if len(received) != 1 {
		t.Fatal("expected no delivery after unsubscribe")
	}
}

func TestApplyRejectsNilUpdate(t *testing.T) {
	provider := NewMemoryProvider()
	text, _ := provider.SharedText("ws-1/a.txt")
	if err := text.Apply(nil); err != ErrNilUpdate {
		t.Fatalf("expected ErrNilUpdate, got %v", err)
	}
}

func TestSharedTextIsStablePerPath(t *testing.T) {
	provider := NewMemoryProvider()
	a, _ := provider.SharedText("ws-1/a.txt")
	b, _ := provider.SharedText("ws-1/a.txt")
	if a != b {
		t.Fatal("expected the same buffer for the same path")
	}
	other, _ := provider.SharedText("ws-1/b.txt")
	if a == other {
		t.Fatal("expected distinct buffers per path")
	}
}

func TestAwarenessSubscription(t *testing.T) {
	provider := NewMemoryProvider()

	var seen []AwarenessUpdate
	unsubscribe := provider.OnAwarenessChange(func(update AwarenessUpdate) {
		seen = append(seen, update)
	})

	provider.PublishAwareness(AwarenessUpdate{FilePath: "a.txt", UserID: "ada", Present: true})
	if len(seen) != 1 || seen[0].UserID != "ada" {
		t.Fatalf("expected ada's presence, got %+v", seen)
	}

	unsubscribe()
	provider.PublishAwareness(AwarenessUpdate{FilePath: "a.txt", UserID: "ada", Present: false})
	if len(seen) != 1 {
		t.Fatal("expected no delivery after unsubscribe")
	}
}
