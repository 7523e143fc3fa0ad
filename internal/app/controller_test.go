package app

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matsen/citegraph/internal/api"
	"github.com/matsen/citegraph/internal/events"
	"github.com/matsen/citegraph/internal/forms"
	"github.com/matsen/citegraph/internal/graph"
	"github.com/matsen/citegraph/internal/interact"
	"github.com/matsen/citegraph/internal/notify"
	"github.com/matsen/citegraph/internal/query"
	"github.com/matsen/citegraph/internal/state"
	"github.com/matsen/citegraph/internal/viewport"
	"github.com/matsen/citegraph/internal/viz"
)

// fakeBackend serves a fixed graph and records mutations.
type fakeBackend struct {
	mu       sync.Mutex
	data     *graph.Data
	graphErr error
	graphs   int
	papers   []api.PaperRequest
	uploads  []string
	authors  []string
}

func (b *fakeBackend) Graph(ctx context.Context) (*graph.Data, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.graphs++
	if b.graphErr != nil {
		return nil, b.graphErr
	}
	return b.data.Clone(), nil
}

func (b *fakeBackend) AddPaper(ctx context.Context, req api.PaperRequest) (*api.MessageResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.papers = append(b.papers, req)
	b.data.Nodes = append(b.data.Nodes, &graph.Node{ID: "new", Type: graph.NodeTypePaper, Title: req.Title})
	return &api.MessageResponse{Success: true, Message: "Paper added successfully"}, nil
}

func (b *fakeBackend) Upload(ctx context.Context, filename string, r io.Reader) (*api.MessageResponse, error) {
	if _, err := io.ReadAll(r); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploads = append(b.uploads, filename)
	return &api.MessageResponse{Success: true, Message: "Imported 3 papers"}, nil
}

func (b *fakeBackend) PapersByAuthor(ctx context.Context, name string) (*api.AuthorResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.authors = append(b.authors, name)
	return &api.AuthorResult{Author: name, Count: 1, Papers: []api.PaperSummary{{Title: "Deep Learning"}}}, nil
}

func (b *fakeBackend) Citations(ctx context.Context, title string) (*api.CitationResult, error) {
	return &api.CitationResult{Paper: title}, nil
}

func (b *fakeBackend) Influential(ctx context.Context) ([]api.InfluentialPaper, error) {
	return nil, &api.APIError{StatusCode: 500, Message: "ranking unavailable"}
}

func (b *fakeBackend) graphCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.graphs
}

func sampleGraph() *graph.Data {
	return &graph.Data{
		Nodes: []*graph.Node{
			{ID: "p1", Type: graph.NodeTypePaper, Title: "Deep Learning", Year: "2015"},
			{ID: "p2", Type: graph.NodeTypePaper, Title: "Backprop"},
			{ID: "a1", Type: graph.NodeTypeAuthor, Name: "Hinton"},
			{ID: "j1", Type: graph.NodeTypeJournal, Name: "Nature"},
		},
		Links: []*graph.Link{
			{Source: graph.NodeRef{ID: "p1"}, Target: graph.NodeRef{ID: "p2"}, Type: graph.LinkCites},
			{Source: graph.NodeRef{ID: "a1"}, Target: graph.NodeRef{ID: "p1"}, Type: graph.LinkWrote},
			{Source: graph.NodeRef{ID: "p1"}, Target: graph.NodeRef{ID: "j1"}, Type: graph.LinkPublishedIn},
		},
	}
}

func newController(t *testing.T) (*Controller, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{data: sampleGraph()}
	opts := DefaultOptions()
	opts.Notifier = notify.New(notify.WithDismissAfter(time.Hour))
	c, err := New(backend, opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	if err := c.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	return c, backend
}

func emit(t *testing.T, c *Controller, ev events.Event) {
	t.Helper()
	if err := c.Handle(context.Background(), ev); err != nil {
		t.Fatalf("Handle(%s) error = %v", ev.Name, err)
	}
}

func TestNew_RejectsUnknownLayout(t *testing.T) {
	opts := DefaultOptions()
	opts.Layout = "radial"
	if _, err := New(&fakeBackend{data: &graph.Data{}}, opts); !errors.Is(err, state.ErrUnknownLayout) {
		t.Errorf("New() error = %v, want ErrUnknownLayout", err)
	}
}

func TestReload_PopulatesStatsAndPage(t *testing.T) {
	c, _ := newController(t)

	stats := c.Stats()
	if stats.Papers != 2 || stats.Authors != 1 || stats.Journals != 1 || stats.Citations != 1 {
		t.Errorf("Stats() = %+v", stats)
	}

	page, err := c.Page(true)
	if err != nil {
		t.Fatalf("Page() error = %v", err)
	}
	if !strings.Contains(string(page.SVG), `class="node paper"`) {
		t.Error("page SVG missing paper nodes")
	}
	if page.ActiveTab != viz.TabAddPaper || page.ActiveQueryTab != viz.QueryTabAuthor {
		t.Errorf("default tabs = %q, %q", page.ActiveTab, page.ActiveQueryTab)
	}
	if !page.LabelsVisible || page.Layout != "force" || page.Scale != 1 {
		t.Errorf("page = %+v", page)
	}
	if _, err := viz.GenerateHTML(page); err != nil {
		t.Errorf("GenerateHTML() error = %v", err)
	}
}

func TestReload_FailureKeepsGraph(t *testing.T) {
	c, backend := newController(t)

	backend.mu.Lock()
	backend.graphErr = &api.APIError{StatusCode: 500, Message: "database offline"}
	backend.mu.Unlock()

	err := c.Handle(context.Background(), events.Event{Name: events.Reload})
	if err == nil {
		t.Fatal("reload should fail")
	}
	if got := c.Stats().Nodes; got != 4 {
		t.Errorf("nodes after failed reload = %d, want 4", got)
	}
	if n := c.Notification(); n.Message != "database offline" || n.Kind != notify.KindError {
		t.Errorf("Notification() = %+v", n)
	}
	if c.Loading() {
		t.Error("loading indicator left on")
	}
}

func TestZoomEvents(t *testing.T) {
	c, _ := newController(t)

	emit(t, c, events.Event{Name: events.ZoomIn})
	if k := c.Transform().K; math.Abs(k-1.2) > 1e-9 {
		t.Errorf("scale after zoom-in = %v, want 1.2", k)
	}
	if d := c.Transition().Duration; d != viewport.ZoomDuration {
		t.Errorf("zoom transition = %v", d)
	}

	emit(t, c, events.Event{Name: events.ZoomOut})
	if k := c.Transform().K; math.Abs(k-0.96) > 1e-9 {
		t.Errorf("scale after zoom-out = %v, want 0.96", k)
	}

	emit(t, c, events.Event{Name: events.Zoom, X: 10, Y: 10})
	if k := c.Transform().K; math.Abs(k-0.96) > 1e-9 {
		t.Errorf("scale after zoom without factor = %v, want 0.96", k)
	}

	emit(t, c, events.Event{Name: events.Pan, X: 10, Y: -5})
	emit(t, c, events.Event{Name: events.ResetView})
	if got := c.Transform(); got != viewport.Identity {
		t.Errorf("transform after reset = %+v", got)
	}
	if d := c.Transition().Duration; d != viewport.ResetDuration {
		t.Errorf("reset transition = %v", d)
	}
}

func TestToggleLabelsAndLayout(t *testing.T) {
	c, _ := newController(t)

	emit(t, c, events.Event{Name: events.ToggleLabels})
	page, _ := c.Page(false)
	if page.LabelsVisible {
		t.Error("labels still visible after toggle")
	}
	if page.Stats.Nodes != 4 {
		t.Error("toggle should not touch the data")
	}

	emit(t, c, events.Event{Name: events.LayoutCircular})
	data := c.Data()
	for i, n := range data.Nodes {
		x, y := state.CirclePosition(i, len(data.Nodes), state.DefaultWidth, state.DefaultHeight)
		if !n.Pinned() || math.Abs(*n.FX-x) > 1e-9 || math.Abs(*n.FY-y) > 1e-9 {
			t.Errorf("node %s at (%v, %v), want pinned at (%v, %v)", n.ID, n.FX, n.FY, x, y)
		}
	}

	emit(t, c, events.Event{Name: events.LayoutForce})
	for _, n := range c.Data().Nodes {
		if n.Pinned() {
			t.Errorf("node %s still pinned in force layout", n.ID)
		}
	}
}

func TestNodeClickAndHover(t *testing.T) {
	c, _ := newController(t)

	emit(t, c, events.Event{Name: events.NodeClick, NodeID: "p1"})
	if d := c.Details(); d == nil || d.ID != "p1" {
		t.Fatalf("Details() = %+v", d)
	}

	err := c.Handle(context.Background(), events.Event{Name: events.NodeClick, NodeID: "nope"})
	if !errors.Is(err, interact.ErrUnknownNode) {
		t.Errorf("click unknown node error = %v", err)
	}

	emit(t, c, events.Event{Name: events.NodeMouseOver, NodeID: "p1", X: 100, Y: 100})
	page, _ := c.Page(false)
	if !strings.Contains(page.TooltipHTML, "Deep Learning") || page.TooltipLeft != 110 || page.TooltipTop != 72 {
		t.Errorf("tooltip = %q at (%v, %v)", page.TooltipHTML, page.TooltipLeft, page.TooltipTop)
	}

	emit(t, c, events.Event{Name: events.NodeMouseOut})
	page, _ = c.Page(false)
	if page.TooltipOpacity != 0 {
		t.Errorf("tooltip opacity after mouseout = %v", page.TooltipOpacity)
	}
}

func TestDragPinsNode(t *testing.T) {
	c, _ := newController(t)

	emit(t, c, events.Event{Name: events.DragStart, NodeID: "a1"})
	emit(t, c, events.Event{Name: events.Drag, NodeID: "a1", X: 42, Y: 24})

	var pinned *graph.Node
	for _, n := range c.Data().Nodes {
		if n.ID == "a1" {
			pinned = n
		}
	}
	if pinned == nil || !pinned.Pinned() || *pinned.FX != 42 || *pinned.FY != 24 {
		t.Fatalf("dragged node = %+v", pinned)
	}

	emit(t, c, events.Event{Name: events.DragEnd, NodeID: "a1"})
	for _, n := range c.Data().Nodes {
		if n.ID == "a1" && n.Pinned() {
			t.Error("node still pinned after drag end")
		}
	}
}

func TestTabs(t *testing.T) {
	c, _ := newController(t)

	emit(t, c, events.Event{Name: events.Tab, Target: viz.TabUploadData})
	emit(t, c, events.Event{Name: events.QueryTab, Target: viz.QueryTabInfluential})
	if got := c.ActiveTab(TabGroupMain); got != viz.TabUploadData {
		t.Errorf("main tab = %q", got)
	}
	if got := c.ActiveTab(TabGroupQuery); got != viz.QueryTabInfluential {
		t.Errorf("query tab = %q", got)
	}

	tests := []struct {
		group TabGroup
		id    string
	}{
		{TabGroupMain, viz.QueryTabAuthor},
		{TabGroupQuery, viz.TabAddPaper},
		{"sidebar", viz.TabAddPaper},
	}
	for _, tt := range tests {
		if err := c.ShowTab(tt.group, tt.id); !errors.Is(err, ErrUnknownTab) {
			t.Errorf("ShowTab(%s, %s) error = %v", tt.group, tt.id, err)
		}
	}
	if got := c.ActiveTab(TabGroupMain); got != viz.TabUploadData {
		t.Errorf("rejected tab changed the active tab to %q", got)
	}
}

func TestSubmitPaper(t *testing.T) {
	c, backend := newController(t)
	before := backend.graphCalls()

	emit(t, c, events.Event{Name: events.SubmitPaper, Values: map[string]string{
		"title":   "  Attention Is All You Need ",
		"authors": "Vaswani, Shazeer",
		"year":    "2017",
	}})

	if len(backend.papers) != 1 || backend.papers[0].Title != "Attention Is All You Need" {
		t.Fatalf("backend received %+v", backend.papers)
	}
	if backend.graphCalls() != before+1 {
		t.Error("graph not reloaded after adding a paper")
	}
	if c.Stats().Papers != 3 {
		t.Errorf("papers after add = %d, want 3", c.Stats().Papers)
	}
	if n := c.Notification(); n.Message != forms.MsgPaperAdded {
		t.Errorf("Notification() = %+v", n)
	}
}

func TestSubmitPaper_MissingTitle(t *testing.T) {
	c, backend := newController(t)

	err := c.Handle(context.Background(), events.Event{Name: events.SubmitPaper, Values: map[string]string{"title": "  "}})
	if !errors.Is(err, forms.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
	if len(backend.papers) != 0 {
		t.Error("invalid form reached the backend")
	}
	if n := c.Notification(); n.Message != forms.MsgTitleRequired {
		t.Errorf("Notification() = %+v", n)
	}
}

func TestUploadFlow(t *testing.T) {
	c, backend := newController(t)
	before := backend.graphCalls()

	err := c.Handle(context.Background(), events.Event{Name: events.FileSelect,
		Files: []forms.File{{Name: "notes.txt", MIMEType: "text/plain"}}})
	if !errors.Is(err, forms.ErrUnsupportedFile) {
		t.Errorf("select txt error = %v", err)
	}

	emit(t, c, events.Event{Name: events.FileDragOver})
	if !c.UploadState().DragOver {
		t.Error("drag-over not shown")
	}
	emit(t, c, events.Event{Name: events.FileDrop,
		Files: []forms.File{{Name: "refs.csv", MIMEType: "text/csv", Data: []byte("title\nA\n")}}})
	st := c.UploadState()
	if st.DragOver || st.Prompt != "Selected: refs.csv" || !st.ButtonVisible {
		t.Errorf("UploadState() = %+v", st)
	}

	emit(t, c, events.Event{Name: events.Upload})
	if len(backend.uploads) != 1 || backend.uploads[0] != "refs.csv" {
		t.Errorf("uploads = %v", backend.uploads)
	}
	if backend.graphCalls() != before+1 {
		t.Error("graph not reloaded after upload")
	}
	if st := c.UploadState(); st.ButtonVisible || st.Prompt != forms.DefaultPrompt {
		t.Errorf("UploadState() after upload = %+v", st)
	}
	if n := c.Notification(); n.Message != "Imported 3 papers" || n.Kind != notify.KindSuccess {
		t.Errorf("Notification() = %+v", n)
	}
}

func TestQueries(t *testing.T) {
	c, backend := newController(t)

	emit(t, c, events.Event{Name: events.QueryAuthor, Value: "Hinton"})
	if len(backend.authors) != 1 || backend.authors[0] != "Hinton" {
		t.Errorf("author queries = %v", backend.authors)
	}
	if r := c.Result(query.KindAuthor); !r.Visible || !strings.Contains(string(r.HTML), "Papers by Hinton (1 found)") {
		t.Errorf("author result = %+v", r)
	}

	err := c.Handle(context.Background(), events.Event{Name: events.QueryAuthor, Value: " "})
	if !errors.Is(err, query.ErrEmptyQuery) {
		t.Errorf("empty author error = %v", err)
	}

	err = c.Handle(context.Background(), events.Event{Name: events.QueryInfluential})
	if !api.IsAPIError(err) {
		t.Errorf("influential error = %v", err)
	}
	if r := c.Result(query.KindInfluential); !strings.Contains(string(r.HTML), "ranking unavailable") {
		t.Errorf("influential result = %+v", r)
	}
}

func TestEvents_AllRegistered(t *testing.T) {
	c, _ := newController(t)

	want := []events.Name{
		events.ZoomIn, events.ZoomOut, events.ResetView, events.ToggleLabels,
		events.LayoutForce, events.LayoutCircular, events.Reload, events.Zoom, events.Pan,
		events.NodeClick, events.NodeMouseOver, events.NodeMouseOut,
		events.DragStart, events.Drag, events.DragEnd,
		events.Tab, events.QueryTab, events.SubmitPaper,
		events.FileDragOver, events.FileDrop, events.FileSelect, events.Upload,
		events.QueryAuthor, events.QueryCitations, events.QueryInfluential,
	}
	got := c.Events()
	if len(got) != len(want) {
		t.Errorf("Events() has %d names, want %d", len(got), len(want))
	}
	for _, name := range want {
		if !c.bus.Handles(name) {
			t.Errorf("no handler for %s", name)
		}
	}
}

func TestSettleAndAnimate(t *testing.T) {
	c, _ := newController(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Animate(ctx, time.Millisecond); !errors.Is(err, context.Canceled) {
		t.Errorf("Animate(canceled) = %v", err)
	}

	ticks := c.Settle(10000)
	if ticks == 0 || ticks == 10000 {
		t.Errorf("Settle() ran %d ticks", ticks)
	}
	if c.Step() {
		t.Error("simulation still running after settling")
	}
	if err := c.Animate(context.Background(), time.Millisecond); err != nil {
		t.Errorf("Animate() on a cooled simulation = %v", err)
	}
}

func TestConcurrentEventsAndTicks(t *testing.T) {
	c, _ := newController(t)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for range 50 {
			c.Step()
		}
	}()
	go func() {
		defer wg.Done()
		for range 50 {
			_ = c.Handle(context.Background(), events.Event{Name: events.ZoomIn})
			_ = c.Handle(context.Background(), events.Event{Name: events.NodeClick, NodeID: "p1"})
		}
	}()
	go func() {
		defer wg.Done()
		for range 5 {
			_ = c.Reload(context.Background())
			if _, err := c.Page(true); err != nil {
				t.Error(err)
			}
		}
	}()
	wg.Wait()

	if c.Transform().K != viewport.MaxScale {
		t.Errorf("scale = %v, want clamped to %v", c.Transform().K, viewport.MaxScale)
	}
}

func TestClose_Idempotent(t *testing.T) {
	c, _ := newController(t)
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
}
