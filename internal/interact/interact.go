// Package interact handles pointer interaction with graph nodes: click
// selection, hover tooltips and drag pinning.
package interact

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/matsen/citegraph/internal/graph"
	"github.com/matsen/citegraph/internal/scene"
)

// Tooltip placement and fades.
const (
	TooltipOffsetX  = 10.0
	TooltipOffsetY  = -28.0
	TooltipOpacity  = 0.9
	TooltipFadeIn   = 200 * time.Millisecond
	TooltipFadeOut  = 500 * time.Millisecond
	DragAlphaTarget = 0.3
)

// ErrUnknownNode is returned for an interaction with a node id not in the graph.
var ErrUnknownNode = errors.New("unknown node")

// Simulator is the part of the force simulation that dragging drives.
// *force.Simulation satisfies it.
type Simulator interface {
	SetAlphaTarget(t float64)
	Restart()
}

// NodeLookup finds nodes by id. *state.Store satisfies it.
type NodeLookup interface {
	Node(id string) *graph.Node
}

// Tooltip is the hover tooltip. Opacity is the value being faded to over
// Fade.
type Tooltip struct {
	HTML    string        `json:"html"`
	Left    float64       `json:"left"`
	Top     float64       `json:"top"`
	Opacity float64       `json:"opacity"`
	Fade    time.Duration `json:"fade"`
}

// Controller routes node gestures to the scene and the simulation.
type Controller struct {
	scene   *scene.Scene
	nodes   NodeLookup
	sim     Simulator
	logger  *zap.Logger
	tooltip Tooltip
	details *graph.Node
	drags   map[string]bool
}

// New creates a Controller. A nil logger disables logging.
func New(sc *scene.Scene, nodes NodeLookup, sim Simulator, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		scene:  sc,
		nodes:  nodes,
		sim:    sim,
		logger: logger,
		drags:  make(map[string]bool),
	}
}

// Click selects the node, highlights its links and shows its details.
func (c *Controller) Click(id string) (*graph.Node, error) {
	n := c.nodes.Node(id)
	if n == nil || !c.scene.Select(id) {
		c.scene.ClearSelection()
		c.details = nil
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	c.details = n
	c.logger.Debug("node details",
		zap.String("id", n.ID),
		zap.String("type", string(n.Type)),
		zap.String("name", n.DisplayName()),
	)
	return n, nil
}

// Details returns the node shown in the details view, or nil.
func (c *Controller) Details() *graph.Node {
	return c.details
}

// MouseOver shows the tooltip for a node next to the pointer.
func (c *Controller) MouseOver(id string, pageX, pageY float64) (Tooltip, error) {
	n := c.nodes.Node(id)
	if n == nil {
		return c.tooltip, fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	c.tooltip = Tooltip{
		HTML:    TooltipHTML(n),
		Left:    pageX + TooltipOffsetX,
		Top:     pageY + TooltipOffsetY,
		Opacity: TooltipOpacity,
		Fade:    TooltipFadeIn,
	}
	return c.tooltip, nil
}

// MouseOut fades the tooltip out. Its content and position are kept.
func (c *Controller) MouseOut() Tooltip {
	c.tooltip.Opacity = 0
	c.tooltip.Fade = TooltipFadeOut
	return c.tooltip
}

// Tooltip returns the current tooltip.
func (c *Controller) Tooltip() Tooltip {
	return c.tooltip
}

// TooltipHTML builds the tooltip body for a node. Every value is escaped.
func TooltipHTML(n *graph.Node) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<strong>%s</strong><br/>", html.EscapeString(n.DisplayName()))
	fmt.Fprintf(&b, "Type: %s<br/>", html.EscapeString(string(n.Type)))
	if n.Type != graph.NodeTypePaper {
		return b.String()
	}
	if y := n.Year.String(); y != "" {
		fmt.Fprintf(&b, "Year: %s<br/>", html.EscapeString(y))
	}
	if n.Journal != "" {
		fmt.Fprintf(&b, "Journal: %s<br/>", html.EscapeString(n.Journal))
	}
	if len(n.Authors) > 0 {
		fmt.Fprintf(&b, "Authors: %s", html.EscapeString(n.Authors.Join()))
	}
	return b.String()
}

// DragStart pins the node at its current position. The first concurrent
// drag warms the simulation up.
func (c *Controller) DragStart(id string) error {
	n := c.nodes.Node(id)
	if n == nil {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	if len(c.drags) == 0 {
		c.sim.SetAlphaTarget(DragAlphaTarget)
		c.sim.Restart()
	}
	c.drags[id] = true
	n.Pin(n.X, n.Y)
	return nil
}

// Drag moves the node's pin to (x, y) in graph coordinates.
func (c *Controller) Drag(id string, x, y float64) error {
	n := c.nodes.Node(id)
	if n == nil {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	n.Pin(x, y)
	return nil
}

// DragEnd releases the node. When no drag remains active the simulation
// is allowed to cool.
func (c *Controller) DragEnd(id string) error {
	n := c.nodes.Node(id)
	delete(c.drags, id)
	if len(c.drags) == 0 {
		c.sim.SetAlphaTarget(0)
	}
	if n == nil {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	n.Unpin()
	return nil
}

// ActiveDrags returns the number of drags in progress.
func (c *Controller) ActiveDrags() int {
	return len(c.drags)
}

// Reset drops selection, details, tooltip and drag state. It is called
// after the scene is rebuilt.
func (c *Controller) Reset() {
	c.details = nil
	c.tooltip = Tooltip{}
	if len(c.drags) > 0 {
		clear(c.drags)
		c.sim.SetAlphaTarget(0)
	}
}
