package cli

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"preload/pkg/common"
	"preload/pkg/config"
	"preload/pkg/display"
	"preload/pkg/dom"
	"preload/pkg/events"
	"preload/pkg/loader"
	"preload/pkg/query"
	"preload/pkg/transport"
)

// Engine loads a batch of items with bounded concurrency.
type Engine struct {
	Config  config.ReadOnly
	Display display.Display

	// Client defaults to http.DefaultClient.
	Client *http.Client

	// Factories overrides the environment's handle variants when non-nil.
	Factories []transport.Factory

	// Filter, when set, runs against every completed JSON result.
	Filter *query.Filter

	// Document receives style and SVG tags. A blank document is used when nil.
	Document *dom.Document
}

// outcome is the final state of one item.
type outcome struct {
	item   common.Item
	status string
	err    error
	result any
	raw    any
	size   int
}

// Run loads items and returns the summary. It returns once every item has
// completed, failed or been canceled through ctx.
func (e *Engine) Run(ctx context.Context, items []common.Item) *common.ExecutionResult {
	session := loader.NewSession()
	defer session.Close()

	env := transport.NewEnvironment(e.Config.GetOrigin(), e.Client)
	env.UserAgent = e.Config.GetUserAgent()
	if e.Factories != nil {
		env.Factories = e.Factories
	}
	doc := e.Document
	if doc == nil {
		doc = dom.NewDocument()
	}

	// Tags are attached to doc before any load can mutate it.
	items = slices.Clone(items)
	for i := range items {
		if items[i].Tag == nil {
			items[i].Tag = prepareTag(doc, items[i].Type)
		}
	}

	outcomes := make([]outcome, len(items))
	var g errgroup.Group
	g.SetLimit(max(1, e.Config.GetConcurrency()))
	for i, item := range items {
		g.Go(func() error {
			outcomes[i] = e.load(ctx, session, env, item)
			return nil
		})
	}
	_ = g.Wait()

	return e.report(ctx, outcomes)
}

func (e *Engine) load(ctx context.Context, session *loader.Session, env *transport.Environment, item common.Item) outcome {
	out := outcome{item: item}
	if ctx.Err() != nil {
		out.status = display.StatusCanceled
		out.err = ctx.Err()
		return out
	}
	l := loader.NewNetworkLoader(session, env, item,
		loader.WithTimeout(e.Config.GetTimeout()),
		loader.WithManualTimeout(e.Config.GetLegacyTimeout()),
		loader.WithContext(ctx),
	)
	task := e.Display.StartTask(taskName(item))
	tracker := display.NewTracker(task, item.Src)

	var (
		mu       sync.Mutex
		loadErr  error
		failed   bool
		once     sync.Once
		finished = make(chan struct{})
	)
	unsubscribe := l.Subscribe(func(evt events.Event) {
		tracker.Handle(evt)
		switch evt.Type {
		case events.Complete:
			once.Do(func() { close(finished) })
		case events.Error:
			mu.Lock()
			failed, loadErr = true, evt.Source
			mu.Unlock()
			once.Do(func() { close(finished) })
		}
	})
	defer unsubscribe()

	slog.Debug("Loading item", "src", item.Src, "type", item.Type, "transport", l.Transport())
	l.Load()

	select {
	case <-finished:
	case <-ctx.Done():
		select {
		case <-finished:
		default:
			l.Cancel()
			task.Fail(ctx.Err())
			out.status = display.StatusCanceled
			out.err = ctx.Err()
			return out
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if failed && ctx.Err() != nil {
		// The request was cut short by ctx before Cancel ran.
		out.status = display.StatusCanceled
		out.err = ctx.Err()
		return out
	}
	if failed || !l.Loaded() {
		out.status = display.StatusFailed
		out.err = loadErr
		return out
	}
	out.status = display.StatusOK
	out.result = l.Result(false)
	out.raw = l.Result(true)
	out.size = payloadSize(out.raw)
	return out
}

// prepareTag builds the placeholder a tag-producing type is loaded into.
func prepareTag(doc *dom.Document, t common.ItemType) any {
	switch t {
	case common.TypeImage:
		return dom.NewImageTag()
	case common.TypeCSS:
		return doc.CreateStyle()
	case common.TypeSVG:
		tag := dom.NewSVGTag(doc)
		doc.AppendChild(doc.Body(), tag.Node)
		return tag
	}
	return nil
}

func taskName(item common.Item) string {
	if item.ID != "" {
		return item.ID
	}
	if u, err := url.Parse(item.Src); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" {
			return base
		}
	}
	return item.Src
}

func payloadSize(raw any) int {
	switch v := raw.(type) {
	case string:
		return len(v)
	case []byte:
		return len(v)
	}
	return 0
}
