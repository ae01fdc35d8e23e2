package loader

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"preload/pkg/common"
	"preload/pkg/transport"
)

// DefaultTimeout bounds a load. Level 2 handles enforce it natively; level 1
// handles get a manual timer of the same duration.
const DefaultTimeout = 8 * time.Second

// textMIMEOverride keeps text payloads byte-for-byte as fetched.
const textMIMEOverride = "text/plain; charset=x-user-defined"

// NetworkLoader fetches one item over a transport handle and materializes
// its result according to the item type.
type NetworkLoader struct {
	*Base

	env           *transport.Environment
	ctx           context.Context
	timeout       time.Duration
	manualTimeout time.Duration

	handle      transport.Handle
	factory     transport.Factory
	level       transport.Level
	crossDomain bool
	initErr     error

	releaseOnce sync.Once
	timerMu     sync.Mutex
	timer       *time.Timer
}

var _ Loader = (*NetworkLoader)(nil)

// Option configures a NetworkLoader.
type Option func(*NetworkLoader)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(l *NetworkLoader) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithManualTimeout sets the timer used for level 1 handles, which have no
// native timeout. It defaults to the load timeout.
func WithManualTimeout(d time.Duration) Option {
	return func(l *NetworkLoader) {
		if d > 0 {
			l.manualTimeout = d
		}
	}
}

// WithContext bounds the underlying request with ctx.
func WithContext(ctx context.Context) Option {
	return func(l *NetworkLoader) {
		if ctx != nil {
			l.ctx = ctx
		}
	}
}

// NewNetworkLoader constructs a loader for item and selects its transport.
// Construction never fails: if no request can be prepared, the failure is
// reported as an error notification when Load is called.
func NewNetworkLoader(session *Session, env *transport.Environment, item common.Item, opts ...Option) *NetworkLoader {
	l := &NetworkLoader{
		Base:    &Base{},
		env:     env,
		ctx:     context.Background(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.manualTimeout == 0 {
		l.manualTimeout = l.timeout
	}
	l.Base.Init(l, session, item)

	if err := l.createRequest(); err != nil {
		l.initErr = err
		slog.Debug("Could not prepare request", "src", item.Src, "type", item.Type, "error", err)
	}
	return l
}

// Transport returns the name of the selected handle variant, or "" if none.
func (l *NetworkLoader) Transport() string {
	return l.factory.Name
}

// Level returns the capability level of the selected handle.
func (l *NetworkLoader) Level() transport.Level {
	return l.level
}

// CrossDomain reports whether the item is on a different origin than the environment.
func (l *NetworkLoader) CrossDomain() bool {
	return l.crossDomain
}

func (l *NetworkLoader) createRequest() error {
	if l.env == nil {
		return transport.ErrNoTransport
	}
	item := l.Item()
	target, err := url.Parse(item.Src)
	if err != nil {
		return fmt.Errorf("invalid src %q: %w", item.Src, err)
	}
	if l.env.Origin != nil {
		target = l.env.Origin.ResolveReference(target)
	}

	h, f, err := l.env.Select(target)
	if err != nil {
		return err
	}
	l.factory = f
	l.level = transport.LevelOf(h)
	l.crossDomain = transport.IsCrossDomain(l.env.Origin, target)

	if err := h.Open(http.MethodGet, target); err != nil {
		return fmt.Errorf("opening request: %w", err)
	}

	if item.Type == common.TypeText {
		if mo, ok := h.(transport.MIMEOverrider); ok {
			if err := mo.OverrideMIMEType(textMIMEOverride); err != nil {
				slog.Debug("MIME override rejected", "src", item.Src, "error", err)
			}
		}
	}
	if l.level == transport.Level2 {
		if tr, ok := h.(transport.TypedResponder); ok && isBinary(item.Type) {
			if err := tr.SetResponseType(transport.ResponseTypeArrayBuffer); err != nil {
				return fmt.Errorf("requesting binary response: %w", err)
			}
		}
		if ts, ok := h.(transport.TimeoutSetter); ok {
			ts.SetTimeout(l.timeout)
		}
	}
	if l.crossDomain && l.level == transport.Level1 {
		if hs, ok := h.(transport.HeaderSetter); ok {
			if err := hs.SetRequestHeader("Origin", transport.OriginString(l.env.Origin)); err != nil {
				slog.Debug("Origin header rejected", "src", item.Src, "error", err)
			}
		}
	}

	slog.Debug("Selected transport", "src", item.Src, "transport", f.Name, "level", int(l.level), "cross_domain", l.crossDomain)
	l.handle = h
	return nil
}

// Load issues the request. Every outcome, including a failure to issue
// the request, is delivered as a notification.
func (l *NetworkLoader) Load() {
	if l.Canceled() || !l.markStarted() {
		return
	}
	if l.handle == nil {
		err := l.initErr
		if err == nil {
			err = transport.ErrNoTransport
		}
		l.post(func() { l.handleError(err) })
		return
	}

	l.handle.Bind(l.hooks())
	if l.level == transport.Level1 {
		l.startTimer()
	}
	if err := l.handle.Send(l.ctx); err != nil {
		l.post(func() { l.handleError(fmt.Errorf("sending request: %w", err)) })
	}
}

// Cancel suppresses further notifications, releases the handle and aborts it.
func (l *NetworkLoader) Cancel() {
	l.Base.Cancel()
	l.release()
	if l.handle != nil {
		l.handle.Abort()
	}
}

func (l *NetworkLoader) post(fn func()) {
	l.session.Post(fn)
}

func (l *NetworkLoader) hooks() transport.Hooks {
	return transport.Hooks{
		LoadStart: func() { l.post(l.handleLoadStart) },
		Progress: func(loaded, total int64) {
			l.post(func() { l.handleProgress(loaded, total) })
		},
		Abort:   func(err error) { l.post(func() { l.handleError(err) }) },
		Error:   func(err error) { l.post(func() { l.handleError(err) }) },
		Timeout: func(err error) { l.post(func() { l.handleTimeout(err) }) },
		Load:    func() { l.post(l.handleLoad) },
		ReadyStateChange: func(s transport.ReadyState) {
			if s == transport.Done {
				l.post(l.handleLoad)
			}
		},
	}
}

func (l *NetworkLoader) handleLoadStart() {
	if l.isSettled() {
		return
	}
	l.sendLoadStart()
}

func (l *NetworkLoader) handleProgress(loaded, total int64) {
	if l.isSettled() || l.Loaded() {
		return
	}
	// A positive count against a zero total means the total is unreliable.
	if loaded > 0 && total == 0 {
		return
	}
	l.sendProgress(loaded, total)
}

func (l *NetworkLoader) handleError(err error) {
	if l.isSettled() {
		return
	}
	l.release()
	slog.Debug("Load failed", "src", l.Item().Src, "error", err)
	l.sendError(err)
}

func (l *NetworkLoader) handleTimeout(err error) {
	if l.isSettled() {
		return
	}
	if err == nil {
		err = transport.ErrTimeout
	}
	l.release()
	l.handle.Abort()
	slog.Debug("Load timed out", "src", l.Item().Src)
	l.sendError(err)
}

// handleLoad is reached through both the load event and ready-state DONE;
// only the first call is honored.
func (l *NetworkLoader) handleLoad() {
	if l.isSettled() || !l.markLoaded() {
		return
	}
	item := l.Item()

	status := l.handle.Status()
	if status == http.StatusNotFound || status == 0 {
		l.handleError(&StatusError{Code: status, Src: item.Src})
		return
	}

	raw := l.extractResponse()
	l.release()

	done, err := l.materialize(item, raw)
	if err != nil {
		slog.Debug("Load failed", "src", item.Src, "error", err)
		l.sendError(err)
		return
	}
	if done {
		slog.Debug("Load complete", "src", item.Src, "type", item.Type, "status", status)
		l.sendComplete()
	}
}

func (l *NetworkLoader) handleTagLoad() {
	if l.isSettled() {
		return
	}
	slog.Debug("Load complete", "src", l.Item().Src, "type", l.Item().Type)
	l.sendComplete()
}

func (l *NetworkLoader) handleTagError(err error) {
	if l.isSettled() {
		return
	}
	l.sendError(err)
}

// release clears every hook binding and stops the manual timer, once.
func (l *NetworkLoader) release() {
	l.releaseOnce.Do(func() {
		l.stopTimer()
		if l.handle != nil {
			l.handle.Clear()
		}
	})
}

func (l *NetworkLoader) startTimer() {
	l.timerMu.Lock()
	defer l.timerMu.Unlock()
	l.timer = time.AfterFunc(l.manualTimeout, func() {
		l.post(func() { l.handleTimeout(transport.ErrTimeout) })
	})
}

func (l *NetworkLoader) stopTimer() {
	l.timerMu.Lock()
	defer l.timerMu.Unlock()
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}
