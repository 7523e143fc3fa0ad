package state

import (
	"errors"
	"fmt"
	"math"

	"github.com/matsen/citegraph/internal/force"
	"github.com/matsen/citegraph/internal/graph"
)

// Layout selects how node positions are produced.
type Layout string

// Supported layouts.
const (
	LayoutForce    Layout = "force"
	LayoutCircular Layout = "circular"
)

// Force names and parameters of the force layout.
const (
	ForceLink      = "link"
	ForceCharge    = "charge"
	ForceCenter    = "center"
	ForceCollision = "collision"

	LinkDistance    = 100.0
	ChargeStrength  = -300.0
	CollisionRadius = 20.0

	// CircleMargin is subtracted from half the smaller viewport side to get
	// the circular layout radius.
	CircleMargin = 50.0
)

// ErrUnknownLayout is returned for a layout name other than force or circular.
var ErrUnknownLayout = errors.New("unknown layout")

// ParseLayout converts a layout name to a Layout.
func ParseLayout(name string) (Layout, error) {
	switch Layout(name) {
	case LayoutForce, LayoutCircular:
		return Layout(name), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLayout, name)
}

// CirclePosition returns where node i of n sits in the circular layout of a
// width x height viewport.
func CirclePosition(i, n int, width, height float64) (x, y float64) {
	r := math.Min(width, height)/2 - CircleMargin
	angle := float64(i) * 2 * math.Pi / float64(n)
	return width/2 + r*math.Cos(angle), height/2 + r*math.Sin(angle)
}

// applyForceLayout installs the four forces and releases every pinned node.
func applyForceLayout(sim *force.Simulation, nodes []*graph.Node, links []*graph.Link, width, height float64) {
	for _, n := range nodes {
		n.Unpin()
	}
	sim.SetForce(ForceLink, force.NewLink(links, LinkDistance))
	sim.SetForce(ForceCharge, force.NewManyBody(ChargeStrength))
	sim.SetForce(ForceCenter, force.NewCenter(width/2, height/2))
	sim.SetForce(ForceCollision, force.NewCollide(CollisionRadius))
}

// applyCircularLayout removes the link, charge and collision forces and
// pins every node on a circle in input order.
func applyCircularLayout(sim *force.Simulation, nodes []*graph.Node, width, height float64) {
	sim.SetForce(ForceLink, nil)
	sim.SetForce(ForceCharge, nil)
	sim.SetForce(ForceCollision, nil)
	if sim.Force(ForceCenter) == nil {
		sim.SetForce(ForceCenter, force.NewCenter(width/2, height/2))
	}
	for i, n := range nodes {
		x, y := CirclePosition(i, len(nodes), width, height)
		n.Pin(x, y)
		n.X, n.Y = x, y
	}
}
