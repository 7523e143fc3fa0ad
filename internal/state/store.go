// Package state owns the viewer's graph data: the node and link slices,
// the force simulation over them, the active layout and the label flag.
//
// Reload takes the store's lock itself so the network call can run
// without it. Every other method expects the caller to hold that lock.
package state

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/matsen/citegraph/internal/api"
	"github.com/matsen/citegraph/internal/force"
	"github.com/matsen/citegraph/internal/graph"
)

// Default viewport size.
const (
	DefaultWidth  = 800.0
	DefaultHeight = 550.0
)

// ReloadFailedMessage is shown when a reload fails without a server message.
const ReloadFailedMessage = "Error loading graph data"

// ErrStaleReload is returned by a reload superseded by a newer one. Its
// result is discarded and no notification is shown.
var ErrStaleReload = errors.New("reload superseded by a newer reload")

// Fetcher loads the complete graph. *api.Client satisfies it.
type Fetcher interface {
	Graph(ctx context.Context) (*graph.Data, error)
}

// Renderer keeps a visual representation in sync with the store.
// *scene.Scene satisfies it.
type Renderer interface {
	Rebuild(nodes []*graph.Node, links []*graph.Link, showLabels bool)
	Tick()
	SetLabelsVisible(visible bool)
}

// SnapshotSink receives a copy of every graph applied by a reload.
type SnapshotSink interface {
	SaveSnapshot(ctx context.Context, data *graph.Data) (string, error)
}

// Notifier shows error notifications. *notify.Notifier satisfies it.
type Notifier interface {
	Error(message string)
}

// Loader tracks long-running operations. *notify.Loading satisfies it.
type Loader interface {
	Begin()
	End()
}

// Store is the single owner of graph state.
type Store struct {
	lock     sync.Locker
	fetcher  Fetcher
	renderer Renderer
	sink     SnapshotSink
	notifier Notifier
	loading  Loader
	logger   *zap.Logger

	sim        *force.Simulation
	nodes      []*graph.Node
	links      []*graph.Link
	layout     Layout
	showLabels bool
	width      float64
	height     float64

	generation int
	cancel     context.CancelFunc
}

// Option configures a Store.
type Option func(*Store)

// WithLocker sets the lock Reload acquires to apply its result.
func WithLocker(l sync.Locker) Option {
	return func(s *Store) {
		s.lock = l
	}
}

// WithRenderer sets the view kept in sync with the store.
func WithRenderer(r Renderer) Option {
	return func(s *Store) {
		s.renderer = r
	}
}

// WithSnapshotSink sets where applied graphs are saved.
func WithSnapshotSink(sink SnapshotSink) Option {
	return func(s *Store) {
		s.sink = sink
	}
}

// WithNotifier sets where reload failures are reported.
func WithNotifier(n Notifier) Option {
	return func(s *Store) {
		s.notifier = n
	}
}

// WithLoading sets the loading indicator shown during reloads.
func WithLoading(l Loader) Option {
	return func(s *Store) {
		s.loading = l
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSize sets the viewport size used by the layouts.
func WithSize(width, height float64) Option {
	return func(s *Store) {
		s.width, s.height = width, height
	}
}

type nopRenderer struct{}

func (nopRenderer) Rebuild([]*graph.Node, []*graph.Link, bool) {}
func (nopRenderer) Tick()                                      {}
func (nopRenderer) SetLabelsVisible(bool)                      {}

type nopNotifier struct{}

func (nopNotifier) Error(string) {}

type nopLoader struct{}

func (nopLoader) Begin() {}
func (nopLoader) End()   {}

// New creates an empty store with the force layout and labels shown.
func New(fetcher Fetcher, opts ...Option) *Store {
	s := &Store{
		lock:       &sync.Mutex{},
		fetcher:    fetcher,
		renderer:   nopRenderer{},
		notifier:   nopNotifier{},
		loading:    nopLoader{},
		logger:     zap.NewNop(),
		layout:     LayoutForce,
		showLabels: true,
		width:      DefaultWidth,
		height:     DefaultHeight,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sim = force.New(nil)
	s.sim.OnTick(func() { s.renderer.Tick() })
	s.rebuild()
	return s
}

// Reload fetches the graph and, if no newer reload has started meanwhile,
// replaces the store's nodes and links and rebuilds the view. A reload
// still in flight when a new one starts is cancelled. On failure the user
// is notified and the previous state is kept.
func (s *Store) Reload(ctx context.Context) error {
	s.lock.Lock()
	s.generation++
	gen := s.generation
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.lock.Unlock()
	defer cancel()

	s.loading.Begin()
	defer s.loading.End()

	data, fetchErr := s.fetcher.Graph(ctx)
	var bindErr error
	if fetchErr == nil {
		bindErr = graph.Bind(data.Nodes, data.Links)
	}

	s.lock.Lock()
	if gen != s.generation {
		s.lock.Unlock()
		s.logger.Debug("discarding stale reload", zap.Int("generation", gen))
		return ErrStaleReload
	}
	s.cancel = nil

	switch {
	case fetchErr != nil:
		s.lock.Unlock()
		s.notifier.Error(api.UserMessage(fetchErr, ReloadFailedMessage))
		return fmt.Errorf("fetching graph: %w", fetchErr)
	case bindErr != nil:
		s.lock.Unlock()
		s.logger.Warn("graph data rejected", zap.Error(bindErr))
		s.notifier.Error(ReloadFailedMessage)
		return fmt.Errorf("binding graph: %w", bindErr)
	}

	s.nodes, s.links = data.Nodes, data.Links
	s.rebuild()
	var snapshot *graph.Data
	if s.sink != nil {
		snapshot = (&graph.Data{Nodes: s.nodes, Links: s.links}).Clone()
	}
	s.lock.Unlock()

	s.logger.Debug("graph reloaded",
		zap.Int("generation", gen),
		zap.Int("nodes", len(data.Nodes)),
		zap.Int("links", len(data.Links)),
	)

	if snapshot != nil {
		if _, err := s.sink.SaveSnapshot(context.WithoutCancel(ctx), snapshot); err != nil {
			s.logger.Warn("saving snapshot", zap.Error(err))
		}
	}
	return nil
}

// Load replaces the graph with already-fetched data, as a successful reload
// would. It is used to render cached snapshots offline.
func (s *Store) Load(data *graph.Data) error {
	if err := graph.Bind(data.Nodes, data.Links); err != nil {
		return fmt.Errorf("binding graph: %w", err)
	}
	s.nodes, s.links = data.Nodes, data.Links
	s.rebuild()
	return nil
}

// SetLayout switches layouts, rebuilds the view and restarts the simulation.
func (s *Store) SetLayout(layout Layout) error {
	if _, err := ParseLayout(string(layout)); err != nil {
		return err
	}
	s.layout = layout
	s.rebuild()
	return nil
}

// ToggleLabels flips label visibility and returns the new value.
func (s *Store) ToggleLabels() bool {
	s.SetLabelsVisible(!s.showLabels)
	return s.showLabels
}

// SetLabelsVisible shows or hides labels without touching the data.
func (s *Store) SetLabelsVisible(visible bool) {
	s.showLabels = visible
	s.renderer.SetLabelsVisible(visible)
}

// SetSize changes the viewport size and re-runs the current layout.
func (s *Store) SetSize(width, height float64) {
	s.width, s.height = width, height
	s.rebuild()
}

// rebuild hands the current data to the simulation and the view, applies
// the layout and restarts the simulation at full heat.
func (s *Store) rebuild() {
	s.sim.SetNodes(s.nodes)
	switch s.layout {
	case LayoutCircular:
		applyCircularLayout(s.sim, s.nodes, s.width, s.height)
	default:
		applyForceLayout(s.sim, s.nodes, s.links, s.width, s.height)
	}
	s.renderer.Rebuild(s.nodes, s.links, s.showLabels)
	s.sim.SetAlpha(1)
	s.sim.Restart()
}

// Stats counts the current nodes by type and the citation links.
func (s *Store) Stats() graph.Stats {
	return graph.ComputeStats(s.nodes, s.links)
}

// Nodes returns the current nodes.
func (s *Store) Nodes() []*graph.Node { return s.nodes }

// Links returns the current links.
func (s *Store) Links() []*graph.Link { return s.links }

// Node returns the node with the given id, or nil.
func (s *Store) Node(id string) *graph.Node {
	for _, n := range s.nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Layout returns the active layout.
func (s *Store) Layout() Layout { return s.layout }

// LabelsVisible reports whether labels are shown.
func (s *Store) LabelsVisible() bool { return s.showLabels }

// Size returns the viewport size.
func (s *Store) Size() (width, height float64) { return s.width, s.height }

// Simulation returns the force simulation over the store's nodes.
func (s *Store) Simulation() *force.Simulation { return s.sim }

// Generation returns the number of reloads started so far.
func (s *Store) Generation() int { return s.generation }
