// Package events routes named UI events to their handlers. Handlers get
// everything they act on in the Event itself (node id, tab id, coordinates,
// form values) rather than reading it from shared state.
package events

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/matsen/citegraph/internal/forms"
)

// Name identifies a UI event.
type Name string

// Graph controls.
const (
	ZoomIn         Name = "zoom-in"
	ZoomOut        Name = "zoom-out"
	ResetView      Name = "reset-view"
	ToggleLabels   Name = "toggle-labels"
	LayoutForce    Name = "layout-force"
	LayoutCircular Name = "layout-circular"
	Reload         Name = "reload"
	Zoom           Name = "zoom"
	Pan            Name = "pan"
)

// Node gestures.
const (
	NodeClick     Name = "node-click"
	NodeMouseOver Name = "node-mouseover"
	NodeMouseOut  Name = "node-mouseout"
	DragStart     Name = "drag-start"
	Drag          Name = "drag"
	DragEnd       Name = "drag-end"
)

// Panels and forms.
const (
	Tab              Name = "tab"
	QueryTab         Name = "query-tab"
	SubmitPaper      Name = "submit-paper"
	FileDragOver     Name = "file-dragover"
	FileDrop         Name = "file-drop"
	FileSelect       Name = "file-select"
	Upload           Name = "upload"
	QueryAuthor      Name = "query-author"
	QueryCitations   Name = "query-citations"
	QueryInfluential Name = "query-influential"
)

// ErrNoHandler is returned by Emit for an event nobody listens to.
var ErrNoHandler = errors.New("no handler for event")

// Event is one UI event and its explicit targets.
type Event struct {
	Name   Name              `json:"name"`
	Target string            `json:"target,omitempty"` // tab id or element id
	NodeID string            `json:"nodeId,omitempty"`
	Value  string            `json:"value,omitempty"` // single text input
	Values map[string]string `json:"values,omitempty"`
	X      float64           `json:"x,omitempty"`
	Y      float64           `json:"y,omitempty"`
	Factor float64           `json:"factor,omitempty"`
	Files  []forms.File      `json:"-"`
}

// Handler reacts to an event.
type Handler func(ctx context.Context, ev Event) error

// Bus is a registry of handlers by event name. It is safe for concurrent use.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Name][]Handler
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Name][]Handler)}
}

// On registers h for events named name. Handlers run in registration order.
func (b *Bus) On(name Name, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Emit runs every handler registered for ev.Name and joins their errors.
func (b *Bus) Emit(ctx context.Context, ev Event) error {
	b.mu.RLock()
	hs := slices.Clone(b.handlers[ev.Name])
	b.mu.RUnlock()

	if len(hs) == 0 {
		return fmt.Errorf("%w: %q", ErrNoHandler, ev.Name)
	}
	var errs []error
	for _, h := range hs {
		if err := h(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Handles reports whether any handler is registered for name.
func (b *Bus) Handles(name Name) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name]) > 0
}

// Names returns the registered event names, sorted.
func (b *Bus) Names() []Name {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]Name, 0, len(b.handlers))
	for n := range b.handlers {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
