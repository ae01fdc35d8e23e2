// Package loader implements the single-item loading lifecycle: a Base that
// every loader variant shares (state flags, progress normalization, guarded
// notification dispatch) and a NetworkLoader that fetches one item over a
// transport handle and materializes its result by type.
package loader

import (
	"errors"
	"fmt"

	"preload/pkg/common"
	"preload/pkg/events"
)

var (
	// ErrStatus is wrapped by StatusError.
	ErrStatus = errors.New("bad status")
	// ErrMissingTag is reported when a tag-producing item has no usable tag.
	ErrMissingTag = errors.New("item has no usable tag")
)

// Loader is the lifecycle contract every loader variant satisfies.
// All outcomes of Load are delivered asynchronously to subscribers.
type Loader interface {
	// Load begins loading. Calling it more than once has no effect.
	Load()
	// Cancel stops the load and suppresses all further notifications. Idempotent.
	Cancel()
	// Close stops an in-progress operation without cancel semantics.
	Close()
	// Result returns the materialized result, or the raw payload when raw is true.
	// It returns nil before the item has loaded.
	Result(raw bool) any
	// Item returns the descriptor the loader was constructed with.
	Item() *common.Item
	// Progress returns the last normalized progress in [0,1].
	Progress() float64
	// Loaded reports whether a response has been received and accepted for processing.
	Loaded() bool
	// Canceled reports whether Cancel was called.
	Canceled() bool
	// Subscribe registers fn for every notification the loader emits.
	Subscribe(fn events.Subscriber) events.Unsubscribe
}

// StatusError reports a completed request with a failure status code.
type StatusError struct {
	Code int
	Src  string
}

func (e *StatusError) Error() string {
	if e.Code == 0 {
		return fmt.Sprintf("%s: no response loading %s", ErrStatus, e.Src)
	}
	return fmt.Sprintf("%s: %d loading %s", ErrStatus, e.Code, e.Src)
}

func (e *StatusError) Unwrap() error {
	return ErrStatus
}
