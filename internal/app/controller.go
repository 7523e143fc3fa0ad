// Package app wires the viewer's components into one Controller. The
// Controller's mutex plays the part of the UI event thread: every event
// handler and every simulation tick runs with it held, and network calls
// release it until their response is applied.
package app

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/matsen/citegraph/internal/events"
	"github.com/matsen/citegraph/internal/forms"
	"github.com/matsen/citegraph/internal/graph"
	"github.com/matsen/citegraph/internal/interact"
	"github.com/matsen/citegraph/internal/notify"
	"github.com/matsen/citegraph/internal/query"
	"github.com/matsen/citegraph/internal/scene"
	"github.com/matsen/citegraph/internal/state"
	"github.com/matsen/citegraph/internal/viewport"
	"github.com/matsen/citegraph/internal/viz"
)

// DefaultFrame is the animation tick interval.
const DefaultFrame = time.Second / 60

// Backend is the REST API the viewer talks to. *api.Client satisfies it.
type Backend interface {
	state.Fetcher
	forms.PaperSubmitter
	forms.Uploader
	query.Querier
}

// Options configures a Controller.
type Options struct {
	Width      float64
	Height     float64
	Layout     state.Layout
	ShowLabels bool
	Sink       state.SnapshotSink
	Notifier   *notify.Notifier
	Logger     *zap.Logger
}

// DefaultOptions returns an 800x550 force layout with labels shown.
func DefaultOptions() Options {
	return Options{
		Width:      state.DefaultWidth,
		Height:     state.DefaultHeight,
		Layout:     state.LayoutForce,
		ShowLabels: true,
	}
}

// Controller owns all viewer state.
type Controller struct {
	mu     sync.Mutex
	logger *zap.Logger

	store    *state.Store
	scene    *scene.Scene
	view     *viewport.Viewport
	interact *interact.Controller
	notifier *notify.Notifier
	loading  *notify.Loading
	panel    *query.Panel
	papers   *forms.Papers
	upload   *forms.Upload
	bus      *events.Bus

	transition viewport.Transition
	tabs       map[TabGroup]string
	closed     bool
}

// New builds a Controller around backend. The graph starts empty; call
// Reload to fetch it.
func New(backend Backend, opts Options) (*Controller, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = state.DefaultWidth, state.DefaultHeight
	}
	if opts.Layout == "" {
		opts.Layout = state.LayoutForce
	}
	if _, err := state.ParseLayout(string(opts.Layout)); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.New(notify.WithLogger(logger))
	}

	c := &Controller{
		logger:   logger,
		scene:    scene.New(logger.Named("scene")),
		view:     viewport.New(opts.Width, opts.Height),
		notifier: notifier,
		loading:  &notify.Loading{},
		bus:      events.NewBus(),
		tabs:     defaultTabs(),
	}

	storeOpts := []state.Option{
		state.WithLocker(&c.mu),
		state.WithRenderer(sceneRenderer{c}),
		state.WithNotifier(notifier),
		state.WithLoading(c.loading),
		state.WithLogger(logger.Named("state")),
		state.WithSize(opts.Width, opts.Height),
	}
	if opts.Sink != nil {
		storeOpts = append(storeOpts, state.WithSnapshotSink(opts.Sink))
	}
	c.store = state.New(backend, storeOpts...)
	c.interact = interact.New(c.scene, c.store, c.store.Simulation(), logger.Named("interact"))

	if err := c.store.SetLayout(opts.Layout); err != nil {
		return nil, err
	}
	c.store.SetLabelsVisible(opts.ShowLabels)

	c.panel = query.NewPanel(backend, notifier, logger.Named("query"))
	c.papers = forms.NewPapers(backend, notifier, c.Reload, logger.Named("forms"))
	c.upload = forms.NewUpload(backend, notifier, c.loading, c.Reload, logger.Named("forms"))

	c.registerHandlers()
	return c, nil
}

// sceneRenderer forwards store updates to the scene and drops interaction
// state that referred to the old elements.
type sceneRenderer struct{ c *Controller }

func (r sceneRenderer) Rebuild(nodes []*graph.Node, links []*graph.Link, showLabels bool) {
	r.c.scene.Rebuild(nodes, links, showLabels)
	if r.c.interact != nil {
		r.c.interact.Reset()
	}
}

func (r sceneRenderer) Tick()                         { r.c.scene.Tick() }
func (r sceneRenderer) SetLabelsVisible(visible bool) { r.c.scene.SetLabelsVisible(visible) }

// Reload fetches the graph and applies it. A reload superseded by a newer
// one is not an error.
func (c *Controller) Reload(ctx context.Context) error {
	err := c.store.Reload(ctx)
	if errors.Is(err, state.ErrStaleReload) {
		return nil
	}
	return err
}

// Load replaces the graph with already-fetched data.
func (c *Controller) Load(data *graph.Data) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Load(data)
}

// Handle dispatches a UI event to its registered handlers.
func (c *Controller) Handle(ctx context.Context, ev events.Event) error {
	return c.bus.Emit(ctx, ev)
}

// Events lists the event names the controller handles.
func (c *Controller) Events() []events.Name {
	return c.bus.Names()
}

// Step advances the simulation by one tick if it is running and reports
// whether it is still running.
func (c *Controller) Step() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Simulation().Step()
}

// Settle runs the simulation until it cools or max ticks have run, without
// waiting between ticks. It returns the number of ticks run.
func (c *Controller) Settle(max int) int {
	n := 0
	for n < max && c.Step() {
		n++
	}
	return n
}

// Animate ticks the simulation once per frame until it cools or ctx ends.
func (c *Controller) Animate(ctx context.Context, frame time.Duration) error {
	if frame <= 0 {
		frame = DefaultFrame
	}
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !c.Step() {
				return nil
			}
		}
	}
}

// Stats returns the current graph statistics.
func (c *Controller) Stats() graph.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Stats()
}

// Data returns a copy of the current graph.
func (c *Controller) Data() *graph.Data {
	c.mu.Lock()
	defer c.mu.Unlock()
	return (&graph.Data{Nodes: c.store.Nodes(), Links: c.store.Links()}).Clone()
}

// Transform returns the tracked zoom/pan transform.
func (c *Controller) Transform() viewport.Transform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view.Transform()
}

// Transition returns the last animated view change.
func (c *Controller) Transition() viewport.Transition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transition
}

// Notification returns the current notification.
func (c *Controller) Notification() notify.Notification {
	return c.notifier.Current()
}

// Loading reports whether the loading indicator is shown.
func (c *Controller) Loading() bool {
	return c.loading.Visible()
}

// Result returns a query panel's results area.
func (c *Controller) Result(kind query.Kind) query.Result {
	return c.panel.Result(kind)
}

// UploadState returns what the upload area shows.
func (c *Controller) UploadState() forms.UploadState {
	return c.upload.State()
}

// Details returns the node selected by the last click, if any.
func (c *Controller) Details() *graph.Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interact.Details()
}

// SVG serializes the scene under the tracked transform.
func (c *Controller) SVG() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var buf bytes.Buffer
	if err := c.writeSVG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Controller) writeSVG(buf *bytes.Buffer) error {
	w, h := c.store.Size()
	t := c.view.Transform()
	return c.scene.WriteSVG(buf, scene.SVGOptions{
		Width: w, Height: h,
		TranslateX: t.X, TranslateY: t.Y, Scale: t.K,
	})
}

// Page snapshots everything the viewer page shows.
func (c *Controller) Page(interactive bool) (*viz.Page, error) {
	c.mu.Lock()
	page := &viz.Page{
		Graph:          (&graph.Data{Nodes: c.store.Nodes(), Links: c.store.Links()}).Clone(),
		Stats:          c.store.Stats(),
		Layout:         string(c.store.Layout()),
		LabelsVisible:  c.store.LabelsVisible(),
		Scale:          c.view.Scale(),
		ActiveTab:      c.tabs[TabGroupMain],
		ActiveQueryTab: c.tabs[TabGroupQuery],
		Interactive:    interactive,
	}
	if len(c.store.Nodes()) > 0 {
		var buf bytes.Buffer
		if err := c.writeSVG(&buf); err != nil {
			c.mu.Unlock()
			return nil, err
		}
		page.SVG = template.HTML(buf.String())
	}
	tip := c.interact.Tooltip()
	page.TooltipHTML, page.TooltipLeft, page.TooltipTop, page.TooltipOpacity = tip.HTML, tip.Left, tip.Top, tip.Opacity
	if d := c.interact.Details(); d != nil {
		copied := *d
		page.Details = &copied
	}
	c.mu.Unlock()

	page.Notification = c.notifier.Current()
	page.Loading = c.loading.Visible()
	page.Upload = c.upload.State()
	page.Paper = c.papers.Form()
	page.Results = make(map[query.Kind]query.Result, len(query.Kinds))
	for _, kind := range query.Kinds {
		page.Results[kind] = c.panel.Result(kind)
	}
	return page, nil
}

// Close stops the simulation and any pending notification timer. The
// Controller must not be used afterwards.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.store.Simulation().Stop()
	c.notifier.Stop()
	c.logger.Debug("controller closed")
	return nil
}
