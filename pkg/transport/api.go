// Package transport provides the network request handles a loader drives.
// Several request variants exist with different capabilities (typed
// responses, native timeouts, cross-origin support, event coverage); an
// Environment picks the most capable one available for a target.
package transport

import (
	"context"
	"errors"
	"net/url"
	"time"
)

var (
	// ErrNoTransport is returned when no factory could construct a handle.
	ErrNoTransport = errors.New("no transport available")
	// ErrUnavailable is returned by a factory that does not exist in the environment.
	ErrUnavailable = errors.New("transport unavailable")
	// ErrAborted is the cause recorded when a request is aborted.
	ErrAborted = errors.New("request aborted")
	// ErrTimeout is the cause recorded when a request exceeds its timeout.
	ErrTimeout = errors.New("request timed out")
	// ErrCrossOrigin is reported when a cross-origin response is not shared with the origin.
	ErrCrossOrigin = errors.New("cross-origin response blocked")
	// ErrInvalidState is returned when an operation does not apply to the handle's state.
	ErrInvalidState = errors.New("invalid state")
	// ErrUnsupportedScheme is returned by Open for non-HTTP targets.
	ErrUnsupportedScheme = errors.New("unsupported scheme")
)

// ReadyState mirrors the progress of a request through its lifecycle.
type ReadyState int

const (
	Unsent ReadyState = iota
	Opened
	HeadersReceived
	Loading
	Done
)

func (s ReadyState) String() string {
	switch s {
	case Unsent:
		return "UNSENT"
	case Opened:
		return "OPENED"
	case HeadersReceived:
		return "HEADERS_RECEIVED"
	case Loading:
		return "LOADING"
	case Done:
		return "DONE"
	}
	return "UNKNOWN"
}

// ResponseType selects the representation returned by TypedResponder.Response.
type ResponseType string

const (
	ResponseTypeText        ResponseType = "text"
	ResponseTypeArrayBuffer ResponseType = "arraybuffer"
)

// Level classifies a handle's capabilities.
// Level 2 handles expose typed responses and native timeouts; level 1 handles do not.
type Level int

const (
	Level1 Level = 1
	Level2 Level = 2
)

// Hooks are the lifecycle callbacks a handle invokes. Nil hooks are skipped.
// Hooks are invoked from the handle's own goroutine.
type Hooks struct {
	LoadStart        func()
	Progress         func(loaded, total int64)
	Abort            func(err error)
	Error            func(err error)
	Timeout          func(err error)
	Load             func()
	ReadyStateChange func(state ReadyState)
}

// Handle is a single active request. It is owned by exactly one loader.
type Handle interface {
	// Open prepares a request for the given method and target.
	Open(method string, target *url.URL) error
	// Bind installs the lifecycle hooks, replacing any previous ones.
	Bind(h Hooks)
	// Clear removes all hooks. It waits for a hook call in progress, so no
	// hook fires after Clear returns. Hooks must not call Clear themselves.
	Clear()
	// Send issues the request asynchronously. ctx bounds the whole transfer.
	Send(ctx context.Context) error
	// Abort stops an in-flight request.
	Abort()
	// Status returns the HTTP status code, or 0 when none was received.
	Status() int
	// ReadyState returns the current lifecycle state.
	ReadyState() ReadyState
	// ResponseText returns the decoded response body.
	ResponseText() (string, error)
}

// TypedResponder is implemented by level 2 handles.
type TypedResponder interface {
	SetResponseType(t ResponseType) error
	Response() (any, error)
}

// TimeoutSetter is implemented by handles with a native timeout event.
type TimeoutSetter interface {
	SetTimeout(d time.Duration)
}

// MIMEOverrider is implemented by handles that can reinterpret the response MIME type.
type MIMEOverrider interface {
	OverrideMIMEType(mime string) error
}

// HeaderSetter is implemented by handles that accept explicit request headers.
type HeaderSetter interface {
	SetRequestHeader(key, value string) error
}

// XMLResponder is implemented by handles exposing an XML response field.
type XMLResponder interface {
	ResponseXML() (any, error)
}

// LevelOf classifies h by whether it exposes a typed response.
func LevelOf(h Handle) Level {
	if _, ok := h.(TypedResponder); ok {
		return Level2
	}
	return Level1
}
