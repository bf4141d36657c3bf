package collab

import (
	"errors"
	"sync"
)

// ErrNilUpdate is returned when an update payload is missing.
var ErrNilUpdate = errors.New("collab: nil update")

type (
	// AwarenessUpdate announces who is present on which file. States
	// are opaque to the server; clients agree on their meaning.
	AwarenessUpdate struct {
		FilePath string
		UserID   string
		Username string
		Present  bool
	}

	// SharedText is one mergeable text buffer. Updates are opaque byte
	// payloads owned by the merge engine; the server applies and fans
	// them out without interpreting them.
	SharedText interface {
		Apply(update []byte) error
		Snapshot() []byte
		OnUpdate(fn func(update []byte)) (unsubscribe func())
	}

	// TextProvider hands out shared buffers per file path and exposes
	// presence changes. The concrete merge engine (Yjs or otherwise)
	// lives behind this contract and is swappable without touching the
	// hub or the lock manager.
	TextProvider interface {
		SharedText(filePath string) (SharedText, error)
		PublishAwareness(update AwarenessUpdate)
		OnAwarenessChange(fn func(AwarenessUpdate)) (unsubscribe func())
	}
)

// memoryProvider is the engine-less default: it relays updates between
// subscribers in arrival order and keeps the latest payload as the
// snapshot. Real merging happens client-side.
type memoryProvider struct {
	mu        sync.Mutex
	texts     map[string]*memoryText
	nextSub   int64
	awareness map[int64]func(AwarenessUpdate)
}

type memoryText struct {
	mu          sync.Mutex
	latest      []byte
	nextSub     int64
	subscribers map[int64]func([]byte)
}

// NewMemoryProvider creates the in-process relay provider.
func NewMemoryProvider() TextProvider {
	return &memoryProvider{
		texts:     make(map[string]*memoryText),
		awareness: make(map[int64]func(AwarenessUpdate)),
	}
}

func (p *memoryProvider) SharedText(filePath string) (SharedText, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	text, ok := p.texts[filePath]
	if !ok {
		text = &memoryText{subscribers: make(map[int64]func([]byte))}
		p.texts[filePath] = text
	}
	return text, nil
}

func (p *memoryProvider) PublishAwareness(update AwarenessUpdate) {
	p.mu.Lock()
	subscribers := make([]func(AwarenessUpdate), 0, len(p.awareness))
	for _, fn := range p.awareness {
		subscribers = append(subscribers, fn)
	}
	p.mu.Unlock()
	for _, fn := range subscribers {
		fn(update)
	}
}

func (p *memoryProvider) OnAwarenessChange(fn func(AwarenessUpdate)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextSub++
	id := p.nextSub
	p.awareness[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.awareness, id)
	}
}

func (t *memoryText) Apply(update []byte) error {
	if update == nil {
		return ErrNilUpdate
	}
	t.mu.Lock()
	t.latest = append([]byte(nil), update...)
	subscribers := make([]func([]byte), 0, len(t.subscribers))
	for _, fn := range t.subscribers {
		subscribers = append(subscribers, fn)
	}
	t.mu.Unlock()
	for _, fn := range subscribers {
		fn(update)
	}
	return nil
}

func (t *memoryText) Snapshot() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]byte(nil), t.latest...)
}

func (t *memoryText) OnUpdate(fn func(update []byte)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextSub++
	id := t.nextSub
	t.subscribers[id] = fn
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.subscribers, id)
	}
}
