// Package scene keeps a renderable scene graph in sync with the graph
// store: one line per link, one circle and one text label per node.
package scene

import (
	"go.uber.org/zap"

	"github.com/matsen/citegraph/internal/graph"
)

// LinkStrokeWidth is the stroke width of every link line.
const LinkStrokeWidth = 2.0

// LabelOffsetY is how far below the node center its label baseline sits.
const LabelOffsetY = 3.0

// Label display values.
const (
	DisplayBlock = "block"
	DisplayNone  = "none"
)

// LinkElement draws one link.
type LinkElement struct {
	Link        *graph.Link
	Class       string
	StrokeWidth float64
	X1, Y1      float64
	X2, Y2      float64
	Highlighted bool
}

// NodeElement draws one node as a circle.
type NodeElement struct {
	Node     *graph.Node
	Class    string
	R        float64
	CX, CY   float64
	Selected bool
}

// LabelElement draws one node's label.
type LabelElement struct {
	Node    *graph.Node
	Text    string
	X, Y    float64
	Display string
}

// Scene is the rendered view. It points at the store's nodes and links and
// never adds or removes data.
type Scene struct {
	Links  []*LinkElement
	Nodes  []*NodeElement
	Labels []*LabelElement

	labelsVisible bool
	selected      string
	logger        *zap.Logger
}

// New creates an empty scene. A nil logger disables logging.
func New(logger *zap.Logger) *Scene {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scene{labelsVisible: true, logger: logger}
}

// Rebuild discards every element and recreates them from nodes and links.
// Selection and highlighting are cleared.
func (s *Scene) Rebuild(nodes []*graph.Node, links []*graph.Link, showLabels bool) {
	s.Links = make([]*LinkElement, 0, len(links))
	s.Nodes = make([]*NodeElement, 0, len(nodes))
	s.Labels = make([]*LabelElement, 0, len(nodes))
	s.selected = ""

	for _, l := range links {
		s.Links = append(s.Links, &LinkElement{
			Link:        l,
			Class:       "link " + string(l.Type),
			StrokeWidth: LinkStrokeWidth,
		})
	}
	for _, n := range nodes {
		s.Nodes = append(s.Nodes, &NodeElement{
			Node:  n,
			Class: "node " + string(n.Type),
			R:     n.Radius(),
		})
		s.Labels = append(s.Labels, &LabelElement{
			Node: n,
			Text: n.Label(),
		})
	}

	s.SetLabelsVisible(showLabels)
	s.Tick()
	s.logger.Debug("scene rebuilt", zap.Int("nodes", len(s.Nodes)), zap.Int("links", len(s.Links)))
}

// Tick copies current simulation positions into every element.
func (s *Scene) Tick() {
	for _, e := range s.Links {
		if src := e.Link.Source.Node; src != nil {
			e.X1, e.Y1 = src.X, src.Y
		}
		if dst := e.Link.Target.Node; dst != nil {
			e.X2, e.Y2 = dst.X, dst.Y
		}
	}
	for _, e := range s.Nodes {
		e.CX, e.CY = e.Node.X, e.Node.Y
	}
	for _, e := range s.Labels {
		e.X, e.Y = e.Node.X, e.Node.Y+LabelOffsetY
	}
}

// SetLabelsVisible shows or hides every label.
func (s *Scene) SetLabelsVisible(visible bool) {
	s.labelsVisible = visible
	display := DisplayNone
	if visible {
		display = DisplayBlock
	}
	for _, e := range s.Labels {
		e.Display = display
	}
}

// LabelsVisible reports whether labels are shown.
func (s *Scene) LabelsVisible() bool {
	return s.labelsVisible
}

// ClearSelection deselects every node and unhighlights every link.
func (s *Scene) ClearSelection() {
	s.selected = ""
	for _, e := range s.Nodes {
		e.Selected = false
	}
	for _, e := range s.Links {
		e.Highlighted = false
	}
}

// Select clears any previous selection, selects the node with the given id
// and highlights the links touching it. It reports whether the node exists.
func (s *Scene) Select(id string) bool {
	s.ClearSelection()
	el := s.Node(id)
	if el == nil {
		return false
	}
	el.Selected = true
	s.selected = id
	for _, e := range s.Links {
		if e.Link.Touches(id) {
			e.Highlighted = true
		}
	}
	return true
}

// Selected returns the id of the selected node, or "".
func (s *Scene) Selected() string {
	return s.selected
}

// Node returns the element drawing the node with the given id, or nil.
func (s *Scene) Node(id string) *NodeElement {
	for _, e := range s.Nodes {
		if e.Node.ID == id {
			return e
		}
	}
	return nil
}

// HighlightedLinks returns the highlighted link elements.
func (s *Scene) HighlightedLinks() []*LinkElement {
	var out []*LinkElement
	for _, e := range s.Links {
		if e.Highlighted {
			out = append(out, e)
		}
	}
	return out
}
