// Package force provides a small force-directed layout simulation modeled
// on d3-force: named forces, a cooling alpha with a target, and fixed
// (pinned) node positions. It is not safe for concurrent use; callers
// serialize access the same way they serialize access to the nodes.
package force

import (
	"math"
	"math/rand/v2"

	"github.com/matsen/citegraph/internal/graph"
)

// Default simulation parameters, matching d3-force.
const (
	DefaultAlphaMin      = 0.001
	DefaultVelocityDecay = 0.4

	initialRadius = 10.0
)

var (
	defaultAlphaDecay = 1 - math.Pow(DefaultAlphaMin, 1.0/300)
	initialAngle      = math.Pi * (3 - math.Sqrt(5))
)

// Force is applied once per tick with the current alpha.
type Force interface {
	// Initialize is called whenever the simulation's node set changes.
	Initialize(nodes []*graph.Node, random func() float64)
	// Apply adjusts node velocities (or positions) for one tick.
	Apply(alpha float64)
}

// Simulation advances node positions one tick at a time.
type Simulation struct {
	nodes  []*graph.Node
	forces map[string]Force
	order  []string

	alpha         float64
	alphaMin      float64
	alphaDecay    float64
	alphaTarget   float64
	velocityDecay float64

	random    *rand.Rand
	listeners []func()
	running   bool
}

// New creates a simulation over the given nodes with alpha 1.
func New(nodes []*graph.Node) *Simulation {
	s := &Simulation{
		forces:        make(map[string]Force),
		alpha:         1,
		alphaMin:      DefaultAlphaMin,
		alphaDecay:    defaultAlphaDecay,
		velocityDecay: 1 - DefaultVelocityDecay,
		random:        rand.New(rand.NewPCG(1, 2)),
		running:       true,
	}
	s.SetNodes(nodes)
	return s
}

// SetNodes replaces the simulated nodes, places any node without a
// position on a phyllotaxis spiral, and reinitializes every force.
func (s *Simulation) SetNodes(nodes []*graph.Node) {
	s.nodes = nodes
	for i, n := range nodes {
		n.Index = i
		if n.FX != nil {
			n.X = *n.FX
		}
		if n.FY != nil {
			n.Y = *n.FY
		}
		if n.X == 0 && n.Y == 0 && !n.Pinned() {
			radius := initialRadius * math.Sqrt(0.5+float64(i))
			angle := float64(i) * initialAngle
			n.X = radius * math.Cos(angle)
			n.Y = radius * math.Sin(angle)
		}
		if math.IsNaN(n.VX) || math.IsNaN(n.VY) {
			n.VX, n.VY = 0, 0
		}
	}
	for _, name := range s.order {
		s.forces[name].Initialize(nodes, s.random.Float64)
	}
}

// Nodes returns the simulated nodes.
func (s *Simulation) Nodes() []*graph.Node {
	return s.nodes
}

// SetForce installs a named force, replacing any force with the same name.
// A nil force removes it.
func (s *Simulation) SetForce(name string, f Force) {
	if f == nil {
		if _, ok := s.forces[name]; ok {
			delete(s.forces, name)
			for i, n := range s.order {
				if n == name {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		}
		return
	}
	if _, ok := s.forces[name]; !ok {
		s.order = append(s.order, name)
	}
	s.forces[name] = f
	f.Initialize(s.nodes, s.random.Float64)
}

// Force returns the named force, or nil.
func (s *Simulation) Force(name string) Force {
	return s.forces[name]
}

// ForceNames returns the installed force names in application order.
func (s *Simulation) ForceNames() []string {
	return append([]string(nil), s.order...)
}

// Alpha returns the current alpha.
func (s *Simulation) Alpha() float64 { return s.alpha }

// SetAlpha sets the current alpha.
func (s *Simulation) SetAlpha(a float64) { s.alpha = a }

// AlphaMin returns the alpha below which the simulation stops.
func (s *Simulation) AlphaMin() float64 { return s.alphaMin }

// AlphaTarget returns the value alpha decays toward.
func (s *Simulation) AlphaTarget() float64 { return s.alphaTarget }

// SetAlphaTarget sets the value alpha decays toward.
func (s *Simulation) SetAlphaTarget(t float64) { s.alphaTarget = t }

// Restart marks the simulation as running.
func (s *Simulation) Restart() { s.running = true }

// Stop halts the simulation until the next Restart.
func (s *Simulation) Stop() { s.running = false }

// Running reports whether Step will advance the simulation.
func (s *Simulation) Running() bool { return s.running }

// OnTick registers a listener called after every Step.
func (s *Simulation) OnTick(fn func()) {
	s.listeners = append(s.listeners, fn)
}

// ClearListeners removes all tick listeners.
func (s *Simulation) ClearListeners() {
	s.listeners = nil
}

// Tick advances the simulation once without notifying listeners.
func (s *Simulation) Tick() {
	s.alpha += (s.alphaTarget - s.alpha) * s.alphaDecay

	for _, name := range s.order {
		s.forces[name].Apply(s.alpha)
	}

	for _, n := range s.nodes {
		if n.FX == nil {
			n.VX *= s.velocityDecay
			n.X += n.VX
		} else {
			n.X = *n.FX
			n.VX = 0
		}
		if n.FY == nil {
			n.VY *= s.velocityDecay
			n.Y += n.VY
		} else {
			n.Y = *n.FY
			n.VY = 0
		}
	}
}

// Step runs one animation frame: a tick followed by the tick listeners.
// It returns false, without ticking, once the simulation has stopped or
// cooled below AlphaMin.
func (s *Simulation) Step() bool {
	if !s.running {
		return false
	}
	s.Tick()
	for _, fn := range s.listeners {
		fn()
	}
	if s.alpha < s.alphaMin {
		s.running = false
	}
	return true
}
