package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

type eventSet uint8

const (
	evLoadStart eventSet = 1 << iota
	evProgress
	evReadyState
	evLoad
	evError
	evAbort
	evTimeout

	allEvents = evLoadStart | evProgress | evReadyState | evLoad | evError | evAbort | evTimeout
)

// request is the HTTP-backed core shared by every handle variant.
// Variants differ in which events they fire and which capabilities they expose.
// Mutable
type request struct {
	env    *Environment
	events eventSet
	// cors enables Origin/Access-Control-Allow-Origin checks on cross-origin targets.
	cors bool
	// statusless variants fail on HTTP error codes and report 200 on success.
	statusless bool

	// callMu is held while a hook runs, so Clear waits out a call in progress.
	callMu sync.Mutex

	mu           sync.Mutex
	hooks        Hooks
	method       string
	target       *url.URL
	header       http.Header
	state        ReadyState
	status       int
	contentType  string
	body         []byte
	succeeded    bool
	responseType ResponseType
	mimeOverride string
	timeout      time.Duration
	cancel       context.CancelCauseFunc
	sent         bool
	aborted      bool
}

func newRequest(env *Environment, events eventSet, cors bool) *request {
	return &request{
		env:          env,
		events:       events,
		cors:         cors,
		header:       make(http.Header),
		responseType: ResponseTypeText,
	}
}

func (r *request) Open(method string, target *url.URL) error {
	if target == nil {
		return fmt.Errorf("%w: no target", ErrInvalidState)
	}
	switch strings.ToLower(target.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedScheme, target.Scheme)
	}

	r.mu.Lock()
	if r.sent {
		r.mu.Unlock()
		return fmt.Errorf("%w: request already sent", ErrInvalidState)
	}
	r.method = method
	r.target = target
	r.state = Opened
	r.mu.Unlock()

	r.fireReadyState(Opened)
	return nil
}

func (r *request) Bind(h Hooks) {
	r.mu.Lock()
	r.hooks = h
	r.mu.Unlock()
}

func (r *request) Clear() {
	r.callMu.Lock()
	defer r.callMu.Unlock()
	r.mu.Lock()
	r.hooks = Hooks{}
	r.mu.Unlock()
}

func (r *request) Send(ctx context.Context) error {
	r.mu.Lock()
	if r.state != Opened || r.sent {
		r.mu.Unlock()
		return fmt.Errorf("%w: send requires an opened request", ErrInvalidState)
	}

	ctx, cancel := context.WithCancelCause(ctx)
	stop := context.CancelFunc(func() {})
	if r.timeout > 0 {
		ctx, stop = context.WithTimeoutCause(ctx, r.timeout, ErrTimeout)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.target.String(), nil)
	if err != nil {
		r.mu.Unlock()
		stop()
		cancel(err)
		return fmt.Errorf("setting up request: %w", err)
	}
	req.Header = r.header.Clone()
	if r.env.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", r.env.UserAgent)
	}
	req.Header.Set("Accept-Encoding", acceptEncoding)
	if r.crossOriginLocked() {
		req.Header.Set("Origin", OriginString(r.env.Origin))
	}

	r.sent = true
	r.cancel = cancel
	r.mu.Unlock()

	go func() {
		defer cancel(nil)
		defer stop()
		r.run(ctx, req)
	}()
	return nil
}

func (r *request) Abort() {
	r.mu.Lock()
	cancel := r.cancel
	if r.sent {
		r.aborted = true
	} else {
		r.state = Unsent
	}
	r.mu.Unlock()

	if cancel != nil {
		cancel(ErrAborted)
	}
}

func (r *request) Status() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.statusless {
		if r.succeeded {
			return http.StatusOK
		}
		return 0
	}
	return r.status
}

func (r *request) ReadyState() ReadyState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *request) ResponseText() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.responseType == ResponseTypeArrayBuffer {
		return "", fmt.Errorf("%w: text is unavailable for %s responses", ErrInvalidState, r.responseType)
	}
	if r.state != Done {
		return "", nil
	}
	return decodeText(r.body, r.contentType, r.mimeOverride)
}

func (r *request) crossOriginLocked() bool {
	return r.cors && r.env.Origin != nil && IsCrossDomain(r.env.Origin, r.target)
}

func (r *request) run(ctx context.Context, req *http.Request) {
	r.fire(evLoadStart, func(h Hooks) {
		if h.LoadStart != nil {
			h.LoadStart()
		}
	})

	resp, err := r.env.client().Do(req)
	if err != nil {
		r.fail(ctx, err)
		return
	}
	defer resp.Body.Close()

	r.mu.Lock()
	crossOrigin := r.crossOriginLocked()
	r.mu.Unlock()
	if crossOrigin && !allowsOrigin(resp.Header, r.env.Origin) {
		r.fail(ctx, fmt.Errorf("%w: %s", ErrCrossOrigin, req.URL.Redacted()))
		return
	}
	if r.statusless && resp.StatusCode >= http.StatusBadRequest {
		r.fail(ctx, fmt.Errorf("bad status: %s", resp.Status))
		return
	}

	r.mu.Lock()
	r.status = resp.StatusCode
	r.contentType = resp.Header.Get("Content-Type")
	r.state = HeadersReceived
	r.mu.Unlock()
	r.fireReadyState(HeadersReceived)

	total := resp.ContentLength
	if total < 0 {
		total = 0
	}
	buf := &bytes.Buffer{}
	pw := &progressWriter{req: r, total: total}
	if _, err := io.Copy(io.MultiWriter(buf, pw), resp.Body); err != nil {
		r.fail(ctx, err)
		return
	}

	body, err := decodeContent(resp.Header.Get("Content-Encoding"), buf.Bytes())
	if err != nil {
		r.fail(ctx, err)
		return
	}

	r.mu.Lock()
	r.body = body
	r.succeeded = true
	r.state = Done
	r.mu.Unlock()

	r.fireReadyState(Done)
	r.fire(evLoad, func(h Hooks) {
		if h.Load != nil {
			h.Load()
		}
	})
}

// fail ends the request with status 0 and routes err to the abort, timeout
// or error hook depending on why the request context ended. The cause hook
// fires before ready-state DONE so listeners of both see the cause first.
func (r *request) fail(ctx context.Context, err error) {
	cause := context.Cause(ctx)

	r.mu.Lock()
	aborted := r.aborted
	r.status = 0
	r.body = nil
	r.succeeded = false
	r.state = Done
	r.mu.Unlock()

	switch {
	case aborted || errors.Is(cause, ErrAborted):
		r.fire(evAbort, func(h Hooks) {
			if h.Abort != nil {
				h.Abort(ErrAborted)
			}
		})
	case errors.Is(cause, ErrTimeout):
		r.fire(evTimeout, func(h Hooks) {
			if h.Timeout != nil {
				h.Timeout(ErrTimeout)
			}
		})
	default:
		r.fire(evError, func(h Hooks) {
			if h.Error != nil {
				h.Error(err)
			}
		})
	}

	r.fireReadyState(Done)
}

func (r *request) fire(ev eventSet, call func(h Hooks)) {
	if r.events&ev == 0 {
		return
	}
	r.callMu.Lock()
	defer r.callMu.Unlock()
	r.mu.Lock()
	h := r.hooks
	r.mu.Unlock()
	call(h)
}

func (r *request) fireReadyState(s ReadyState) {
	r.fire(evReadyState, func(h Hooks) {
		if h.ReadyStateChange != nil {
			h.ReadyStateChange(s)
		}
	})
}

func (r *request) fireProgress(loaded, total int64) {
	r.fire(evProgress, func(h Hooks) {
		if h.Progress != nil {
			h.Progress(loaded, total)
		}
	})
}

// Mutable
type progressWriter struct {
	req     *request
	total   int64
	written int64
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	if n == 0 {
		return 0, nil
	}
	if pw.written == 0 {
		pw.req.mu.Lock()
		pw.req.state = Loading
		pw.req.mu.Unlock()
		pw.req.fireReadyState(Loading)
	}
	pw.written += int64(n)
	pw.req.fireProgress(pw.written, pw.total)
	return n, nil
}
