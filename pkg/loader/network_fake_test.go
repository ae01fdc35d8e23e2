package loader

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"preload/pkg/common"
	"preload/pkg/events"
	"preload/pkg/transport"
)

func newFakeLoader(t *testing.T, h transport.Handle, item common.Item, opts ...Option) (*NetworkLoader, *Session, *collector) {
	t.Helper()
	s := NewSession()
	t.Cleanup(s.Close)
	l := NewNetworkLoader(s, fakeEnv(nil, h), item, opts...)
	return l, s, collect(l)
}

func textItem() common.Item {
	return common.Item{Src: "http://example.com/notes.txt", Type: common.TypeText}
}

func TestLoadCompletesOnce(t *testing.T) {
	f := &fakeHandle{status: 200, text: "hello"}
	l, s, c := newFakeLoader(t, f, textItem())
	require.Equal(t, "fake", l.Transport())
	require.Equal(t, transport.Level1, l.Level())

	l.Load()
	f.loadStart()
	f.progress(5, 10)
	f.load()
	f.readyStateDone()
	flush(t, s)

	require.Equal(t, []events.Type{events.LoadStart, events.Progress, events.Complete}, c.types())
	require.True(t, l.Loaded())
	require.Equal(t, "hello", l.Result(true))
	require.Equal(t, "hello", l.Result(false))

	_, _, cleared := f.counts()
	require.Equal(t, 1, cleared)
}

func TestLoadIsStartedOnce(t *testing.T) {
	f := &fakeHandle{status: 200}
	l, _, _ := newFakeLoader(t, f, textItem())
	l.Load()
	l.Load()
	sent, _, _ := f.counts()
	require.Equal(t, 1, sent)
}

func TestNotFoundThenReadyState(t *testing.T) {
	f := &fakeHandle{status: 404, text: "missing"}
	l, s, c := newFakeLoader(t, f, textItem())
	l.Load()
	f.load()
	f.readyStateDone()
	flush(t, s)

	require.Equal(t, []events.Type{events.Error}, c.types())
	evt := c.waitFor(t, events.Error)
	var se *StatusError
	require.ErrorAs(t, evt.Source, &se)
	require.Equal(t, 404, se.Code)
	require.ErrorIs(t, evt.Source, ErrStatus)
	require.Nil(t, l.Result(false))
}

func TestStatusZeroIsError(t *testing.T) {
	f := &fakeHandle{status: 0}
	l, s, c := newFakeLoader(t, f, textItem())
	l.Load()
	f.readyStateDone()
	flush(t, s)

	require.Equal(t, []events.Type{events.Error}, c.types())
	require.ErrorIs(t, c.waitFor(t, events.Error).Source, ErrStatus)
}

func TestCancelAfterLoadStart(t *testing.T) {
	f := &fakeHandle{status: 200, text: "late"}
	l, s, c := newFakeLoader(t, f, textItem())
	l.Load()
	f.loadStart()
	flush(t, s)

	l.Cancel()
	l.Cancel()
	require.True(t, l.Canceled())

	f.progress(1, 2)
	f.load()
	f.fail(errors.New("boom"))
	flush(t, s)

	require.Equal(t, []events.Type{events.LoadStart}, c.types())
	_, aborted, cleared := f.counts()
	require.Equal(t, 2, aborted)
	require.Equal(t, 1, cleared)
}

func TestCancelSuppressesQueuedEvents(t *testing.T) {
	f := &fakeHandle{status: 200, text: "late"}
	l, s, c := newFakeLoader(t, f, textItem())

	// Hold the event loop so the transport events queue up behind it.
	gate := make(chan struct{})
	require.True(t, s.Post(func() { <-gate }))
	l.Load()
	f.loadStart()
	f.load()
	l.Cancel()
	close(gate)
	flush(t, s)

	require.Empty(t, c.types())
}

func TestCancelBeforeLoad(t *testing.T) {
	f := &fakeHandle{status: 200}
	l, s, c := newFakeLoader(t, f, textItem())
	l.Cancel()
	l.Load()
	flush(t, s)
	require.Empty(t, c.types())
	sent, _, _ := f.counts()
	require.Zero(t, sent)
}

func TestProgressFiltering(t *testing.T) {
	f := &fakeHandle{status: 200, text: "x"}
	l, s, c := newFakeLoader(t, f, textItem())
	l.Load()
	f.progress(0, 0)
	f.progress(10, 0)
	f.progress(5, 10)
	f.progress(20, 10)
	f.load()
	f.progress(10, 10)
	flush(t, s)

	var got []float64
	for _, evt := range c.progress() {
		got = append(got, evt.Progress)
	}
	require.Equal(t, []float64{0, 0.5, 1}, got)
	require.Equal(t, 1.0, l.Progress())
}

func TestErrorHookIsTerminal(t *testing.T) {
	f := &fakeHandle{status: 200}
	l, s, c := newFakeLoader(t, f, textItem())
	l.Load()
	f.fail(errors.New("connection reset"))
	f.load()
	flush(t, s)

	require.Equal(t, []events.Type{events.Error}, c.types())
	require.EqualError(t, c.waitFor(t, events.Error).Source, "connection reset")
	require.False(t, l.Loaded())
}

func TestManualTimeout(t *testing.T) {
	f := &fakeHandle{status: 200}
	l, s, c := newFakeLoader(t, f, textItem(), WithTimeout(30*time.Millisecond))
	l.Load()

	evt := c.waitFor(t, events.Error)
	require.ErrorIs(t, evt.Source, transport.ErrTimeout)

	f.load()
	flush(t, s)
	require.Equal(t, []events.Type{events.Error}, c.types())
	_, aborted, cleared := f.counts()
	require.Equal(t, 1, aborted)
	require.Equal(t, 1, cleared)
}

func TestManualTimerStoppedOnLoad(t *testing.T) {
	f := &fakeHandle{status: 200, text: "fast"}
	l, s, c := newFakeLoader(t, f, textItem(), WithTimeout(30*time.Millisecond))
	l.Load()
	f.load()
	c.waitFor(t, events.Complete)

	time.Sleep(80 * time.Millisecond)
	flush(t, s)
	require.Equal(t, []events.Type{events.Complete}, c.types())
}

func TestLevel2Setup(t *testing.T) {
	f := &typedFake{fakeHandle: &fakeHandle{status: 200}, response: []byte{1, 2, 3}}
	l, s, c := newFakeLoader(t, f, common.Item{Src: "http://example.com/blob.bin", Type: common.TypeBinary}, WithTimeout(20*time.Millisecond))
	require.Equal(t, transport.Level2, l.Level())
	require.Equal(t, transport.ResponseTypeArrayBuffer, f.responseType)
	require.Equal(t, 20*time.Millisecond, f.nativeTimeout)

	l.Load()
	// Level 2 handles time out natively, so no manual timer fires.
	time.Sleep(60 * time.Millisecond)
	flush(t, s)
	require.Empty(t, c.types())

	f.load()
	c.waitFor(t, events.Complete)
	require.Equal(t, []byte{1, 2, 3}, l.Result(true))
	require.Equal(t, []byte{1, 2, 3}, l.Result(false))
}

func TestNativeTimeoutHook(t *testing.T) {
	f := &typedFake{fakeHandle: &fakeHandle{status: 200}}
	l, _, c := newFakeLoader(t, f, textItem())
	l.Load()
	f.timeout(transport.ErrTimeout)
	require.ErrorIs(t, c.waitFor(t, events.Error).Source, transport.ErrTimeout)
}

func TestTextOverridesMIMEType(t *testing.T) {
	f := &typedFake{fakeHandle: &fakeHandle{status: 200}}
	newFakeLoader(t, f, textItem())
	require.Equal(t, textMIMEOverride, f.mimeOverride)
	require.Empty(t, f.responseType)
}

func TestExtractionFallsBackToText(t *testing.T) {
	f := &typedFake{
		fakeHandle:  &fakeHandle{status: 200, text: "fallback"},
		responseErr: transport.ErrInvalidState,
	}
	l, _, c := newFakeLoader(t, f, textItem())
	l.Load()
	f.load()
	c.waitFor(t, events.Complete)
	require.Equal(t, "fallback", l.Result(true))
}

func TestExtractionFallsBackToXML(t *testing.T) {
	f := &xmlFake{
		fakeHandle: &fakeHandle{status: 200, textErr: transport.ErrInvalidState},
		xml:        []byte("<a/>"),
	}
	l, _, c := newFakeLoader(t, f, textItem())
	l.Load()
	f.readyStateDone()
	c.waitFor(t, events.Complete)
	require.Equal(t, []byte("<a/>"), l.Result(true))
}

func TestCrossDomainLevel1SetsOrigin(t *testing.T) {
	origin, err := url.Parse("http://app.example")
	require.NoError(t, err)
	f := &fakeHandle{status: 200}
	s := NewSession()
	defer s.Close()

	l := NewNetworkLoader(s, fakeEnv(origin, f), common.Item{Src: "https://cdn.example/a.txt", Type: common.TypeText})
	require.True(t, l.CrossDomain())
	require.Equal(t, "http://app.example", f.headers["Origin"])

	l2 := NewNetworkLoader(s, fakeEnv(origin, &fakeHandle{}), common.Item{Src: "/a.txt", Type: common.TypeText})
	require.False(t, l2.CrossDomain())
}

func TestRelativeSrcResolvesAgainstOrigin(t *testing.T) {
	origin, err := url.Parse("http://app.example/pages/")
	require.NoError(t, err)
	f := &fakeHandle{status: 200}
	s := NewSession()
	defer s.Close()

	NewNetworkLoader(s, fakeEnv(origin, f), common.Item{Src: "img/a.png", Type: common.TypeImage})
	require.Equal(t, "http://app.example/pages/img/a.png", f.target.String())
}

func TestNoTransport(t *testing.T) {
	s := NewSession()
	defer s.Close()

	for name, env := range map[string]*transport.Environment{
		"nil environment": nil,
		"no factories":    {},
	} {
		t.Run(name, func(t *testing.T) {
			l := NewNetworkLoader(s, env, textItem())
			require.Empty(t, l.Transport())
			c := collect(l)
			l.Load()
			require.ErrorIs(t, c.waitFor(t, events.Error).Source, transport.ErrNoTransport)
		})
	}
}

func TestFactoryFailure(t *testing.T) {
	s := NewSession()
	defer s.Close()
	env := &transport.Environment{Factories: []transport.Factory{{
		Name: "broken",
		Kind: transport.KindStandard,
		New: func(*transport.Environment) (transport.Handle, error) {
			return nil, transport.ErrUnavailable
		},
	}}}

	l := NewNetworkLoader(s, env, textItem())
	c := collect(l)
	l.Load()
	err := c.waitFor(t, events.Error).Source
	require.ErrorIs(t, err, transport.ErrNoTransport)
	require.ErrorIs(t, err, transport.ErrUnavailable)
}

func TestMalformedSrc(t *testing.T) {
	l, s, c := newFakeLoader(t, &fakeHandle{}, common.Item{Src: "http://[::1", Type: common.TypeText})
	l.Load()
	c.waitFor(t, events.Error)
	flush(t, s)
	require.Equal(t, []events.Type{events.Error}, c.types())
}

func TestSendFailure(t *testing.T) {
	f := &fakeHandle{sendErr: transport.ErrInvalidState}
	l, _, c := newFakeLoader(t, f, textItem())
	l.Load()
	require.ErrorIs(t, c.waitFor(t, events.Error).Source, transport.ErrInvalidState)
}

func TestClosedSessionDeliversNothing(t *testing.T) {
	f := &fakeHandle{status: 200, text: "x"}
	l, s, c := newFakeLoader(t, f, textItem())
	l.Load()
	f.loadStart()
	flush(t, s)
	s.Close()

	f.load()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, []events.Type{events.LoadStart}, c.types())
}

func TestMissingTag(t *testing.T) {
	for _, typ := range []common.ItemType{common.TypeImage, common.TypeCSS, common.TypeSVG} {
		t.Run(typ.String(), func(t *testing.T) {
			f := &fakeHandle{status: 200, text: "x"}
			l, _, c := newFakeLoader(t, f, common.Item{Src: "http://example.com/a", Type: typ})
			l.Load()
			f.load()
			require.ErrorIs(t, c.waitFor(t, events.Error).Source, ErrMissingTag)
		})
	}
}

func TestInvalidJSONKeepsText(t *testing.T) {
	f := &fakeHandle{status: 200, text: "{not valid json"}
	l, _, c := newFakeLoader(t, f, common.Item{Src: "http://example.com/a.json", Type: common.TypeJSON})
	l.Load()
	f.load()
	c.waitFor(t, events.Complete)
	require.Equal(t, "{not valid json", l.Result(false))
	require.Equal(t, "{not valid json", l.Result(true))
}

func TestInvalidXMLIsError(t *testing.T) {
	f := &fakeHandle{status: 200, text: "<a><b></a>"}
	l, _, c := newFakeLoader(t, f, common.Item{Src: "http://example.com/a.xml", Type: common.TypeXML})
	l.Load()
	f.load()
	c.waitFor(t, events.Error)
	require.Zero(t, c.count(events.Complete))
}
