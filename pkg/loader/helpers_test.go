package loader

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"preload/pkg/events"
	"preload/pkg/transport"
)

// collector records every event a loader emits.
type collector struct {
	mu   sync.Mutex
	evts []events.Event
	ch   chan events.Event
}

func collect(l Loader) *collector {
	c := &collector{ch: make(chan events.Event, 256)}
	l.Subscribe(func(evt events.Event) {
		c.mu.Lock()
		c.evts = append(c.evts, evt)
		c.mu.Unlock()
		c.ch <- evt
	})
	return c
}

// waitFor returns the first event of one of the given types.
func (c *collector) waitFor(t *testing.T, types ...events.Type) events.Event {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case evt := <-c.ch:
			for _, typ := range types {
				if evt.Type == typ {
					return evt
				}
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %v", types)
			return events.Event{}
		}
	}
}

func (c *collector) types() []events.Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]events.Type, 0, len(c.evts))
	for _, e := range c.evts {
		out = append(out, e.Type)
	}
	return out
}

func (c *collector) count(typ events.Type) int {
	n := 0
	for _, got := range c.types() {
		if got == typ {
			n++
		}
	}
	return n
}

func (c *collector) progress() []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []events.Event
	for _, e := range c.evts {
		if e.Type == events.Progress {
			out = append(out, e)
		}
	}
	return out
}

// flush waits until every callback already queued on s has run.
func flush(t *testing.T, s *Session) {
	t.Helper()
	done := make(chan struct{})
	require.True(t, s.Post(func() { close(done) }))
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("session did not drain")
	}
}

// fakeHandle is a scripted level 1 transport handle.
type fakeHandle struct {
	mu      sync.Mutex
	hooks   transport.Hooks
	target  *url.URL
	headers map[string]string
	status  int
	text    string
	textErr error
	sendErr error
	sent    int
	aborted int
	cleared int
}

func (f *fakeHandle) Open(method string, target *url.URL) error {
	f.target = target
	return nil
}

func (f *fakeHandle) Bind(h transport.Hooks) {
	f.mu.Lock()
	f.hooks = h
	f.mu.Unlock()
}

func (f *fakeHandle) Clear() {
	f.mu.Lock()
	f.hooks = transport.Hooks{}
	f.cleared++
	f.mu.Unlock()
}

func (f *fakeHandle) Send(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent++
	return f.sendErr
}

func (f *fakeHandle) Abort() {
	f.mu.Lock()
	f.aborted++
	f.mu.Unlock()
}

func (f *fakeHandle) Status() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeHandle) ReadyState() transport.ReadyState {
	return transport.Done
}

func (f *fakeHandle) ResponseText() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text, f.textErr
}

func (f *fakeHandle) SetRequestHeader(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.headers == nil {
		f.headers = make(map[string]string)
	}
	f.headers[key] = value
	return nil
}

func (f *fakeHandle) bound() transport.Hooks {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hooks
}

func (f *fakeHandle) loadStart() {
	if h := f.bound(); h.LoadStart != nil {
		h.LoadStart()
	}
}

func (f *fakeHandle) progress(loaded, total int64) {
	if h := f.bound(); h.Progress != nil {
		h.Progress(loaded, total)
	}
}

func (f *fakeHandle) load() {
	if h := f.bound(); h.Load != nil {
		h.Load()
	}
}

func (f *fakeHandle) readyStateDone() {
	if h := f.bound(); h.ReadyStateChange != nil {
		h.ReadyStateChange(transport.Done)
	}
}

func (f *fakeHandle) fail(err error) {
	if h := f.bound(); h.Error != nil {
		h.Error(err)
	}
}

func (f *fakeHandle) timeout(err error) {
	if h := f.bound(); h.Timeout != nil {
		h.Timeout(err)
	}
}

func (f *fakeHandle) counts() (sent, aborted, cleared int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent, f.aborted, f.cleared
}

// typedFake is a scripted level 2 handle.
type typedFake struct {
	*fakeHandle
	responseType  transport.ResponseType
	response      any
	responseErr   error
	nativeTimeout time.Duration
	mimeOverride  string
}

func (f *typedFake) SetResponseType(t transport.ResponseType) error {
	f.responseType = t
	return nil
}

func (f *typedFake) Response() (any, error) {
	return f.response, f.responseErr
}

func (f *typedFake) SetTimeout(d time.Duration) {
	f.nativeTimeout = d
}

func (f *typedFake) OverrideMIMEType(m string) error {
	f.mimeOverride = m
	return nil
}

// xmlFake is a level 1 handle with an XML response field.
type xmlFake struct {
	*fakeHandle
	xml any
}

func (f *xmlFake) ResponseXML() (any, error) {
	return f.xml, nil
}

func fakeEnv(origin *url.URL, h transport.Handle) *transport.Environment {
	return &transport.Environment{
		Origin: origin,
		Factories: []transport.Factory{{
			Name: "fake",
			Kind: transport.KindStandard,
			New:  func(*transport.Environment) (transport.Handle, error) { return h, nil },
		}},
	}
}
