package loader

import (
	"math"
	"sync"

	"go.uber.org/atomic"

	"preload/pkg/common"
	"preload/pkg/events"
)

// Base is the lifecycle surface shared by every loader variant. It owns no
// I/O: Load and Close are no-ops that variants override.
//
// The send* primitives are the single place that enforces "no notifications
// after cancel": a canceled loader, or one whose session has been closed,
// emits nothing. A loader emits at most one terminal notification.
type Base struct {
	owner    Loader
	session  *Session
	notifier *events.Notifier
	canceled *atomic.Bool

	mu         sync.RWMutex
	item       *common.Item
	started    bool
	loaded     bool
	terminated bool
	progress   float64
	raw        any
	result     any
}

var _ Loader = (*Base)(nil)

// Init stores the item descriptor and resets state. owner is the loader
// reported as the Target of every event; a nil owner reports the Base itself.
func (b *Base) Init(owner Loader, session *Session, item common.Item) {
	if owner == nil {
		owner = b
	}
	b.owner = owner
	b.session = session
	b.notifier = events.NewNotifier()
	b.canceled = atomic.NewBool(false)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.item = &item
	b.started = false
	b.loaded = false
	b.terminated = false
	b.progress = 0
	b.raw = nil
	b.result = nil
}

// Item returns the stored descriptor.
func (b *Base) Item() *common.Item {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.item
}

// Load is a no-op.
func (b *Base) Load() {}

// Close is a no-op.
func (b *Base) Close() {}

// Cancel marks the loader canceled. The flag is permanent.
func (b *Base) Cancel() {
	b.canceled.Store(true)
}

// Canceled reports whether Cancel was called.
func (b *Base) Canceled() bool {
	return b.canceled.Load()
}

// Loaded reports whether a response has been accepted for processing.
func (b *Base) Loaded() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loaded
}

// Progress returns the last normalized progress.
func (b *Base) Progress() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.progress
}

// Result returns the materialized result, or the raw payload when raw is true.
func (b *Base) Result(raw bool) any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if raw {
		return b.raw
	}
	return b.result
}

// Subscribe registers fn for every notification the loader emits.
func (b *Base) Subscribe(fn events.Subscriber) events.Unsubscribe {
	return b.notifier.Subscribe(fn)
}

// isCanceled treats a closed session as an implicit cancellation.
func (b *Base) isCanceled() bool {
	if b.canceled.Load() {
		return true
	}
	return b.session != nil && !b.session.Alive()
}

// isSettled reports whether the loader was canceled or already emitted its
// terminal notification.
func (b *Base) isSettled() bool {
	if b.isCanceled() {
		return true
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.terminated
}

// markStarted returns false if the loader was already started.
func (b *Base) markStarted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return false
	}
	b.started = true
	return true
}

// markLoaded returns false if the loader was already marked loaded.
func (b *Base) markLoaded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loaded {
		return false
	}
	b.loaded = true
	return true
}

// setResult stores the raw payload and the materialized result. It has no
// effect before the loader is marked loaded.
func (b *Base) setResult(raw, result any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.loaded {
		return
	}
	b.raw = raw
	b.result = result
}

// terminate claims the single terminal notification slot.
func (b *Base) terminate() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.terminated {
		return false
	}
	b.terminated = true
	return true
}

func (b *Base) sendLoadStart() {
	if b.isCanceled() {
		return
	}
	b.notifier.Publish(events.Event{Type: events.LoadStart, Target: b.owner})
}

// sendProgress normalizes a loaded/total pair and dispatches it.
func (b *Base) sendProgress(loaded, total int64) {
	if b.isCanceled() {
		return
	}
	p := NormalizeProgress(float64(loaded), float64(total))
	b.mu.Lock()
	b.progress = p
	b.mu.Unlock()
	b.notifier.Publish(events.Event{
		Type:     events.Progress,
		Target:   b.owner,
		Loaded:   loaded,
		Total:    total,
		Progress: p,
	})
}

// sendProgressFraction dispatches a progress value given directly as a
// fraction, for loader variants whose source reports no byte counts.
// NetworkLoader always has counts and uses sendProgress.
func (b *Base) sendProgressFraction(f float64) {
	if b.isCanceled() {
		return
	}
	p := NormalizeProgress(f, 1)
	b.mu.Lock()
	b.progress = p
	b.mu.Unlock()
	b.notifier.Publish(events.Event{Type: events.Progress, Target: b.owner, Progress: p})
}

func (b *Base) sendComplete() {
	if b.isCanceled() || !b.terminate() {
		return
	}
	b.notifier.Publish(events.Event{Type: events.Complete, Target: b.owner})
}

func (b *Base) sendError(err error) {
	if b.isCanceled() || !b.terminate() {
		return
	}
	b.notifier.Publish(events.Event{Type: events.Error, Target: b.owner, Source: err})
}

// NormalizeProgress returns loaded/total, or 0 when the ratio is not a
// finite number. The result is capped at 1.
func NormalizeProgress(loaded, total float64) float64 {
	p := loaded / total
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	if p > 1 {
		return 1
	}
	if p < 0 {
		return 0
	}
	return p
}
