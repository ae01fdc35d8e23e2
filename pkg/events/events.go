// Package events provides the notification surface of a loader: the event
// values it emits and a subscriber registry that delivers them.
package events

import "fmt"

// Type identifies a lifecycle notification.
type Type string

const (
	// LoadStart fires once, before the first byte is requested.
	LoadStart Type = "loadstart"
	// Progress carries loaded/total byte counts and the normalized progress.
	Progress Type = "progress"
	// Complete fires once, only on success.
	Complete Type = "complete"
	// Error fires at most once per failed attempt.
	Error Type = "error"
)

// Event is a single notification. Target is the loader that emitted it.
type Event struct {
	Type   Type
	Target any

	// Loaded and Total are byte counts for Progress events.
	Loaded int64
	Total  int64
	// Progress is the normalized progress in [0,1].
	Progress float64

	// Source is the triggering error for Error events, when known.
	Source error
}

func (e Event) String() string {
	switch e.Type {
	case Progress:
		return fmt.Sprintf("%s %d/%d (%.2f)", e.Type, e.Loaded, e.Total, e.Progress)
	case Error:
		if e.Source != nil {
			return fmt.Sprintf("%s: %v", e.Type, e.Source)
		}
	}
	return string(e.Type)
}

// Subscriber receives events.
type Subscriber func(evt Event)

// Unsubscribe removes a subscriber. Calling it more than once is a no-op.
type Unsubscribe func()
