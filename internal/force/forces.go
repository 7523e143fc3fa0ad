package force

import (
	"math"

	"github.com/matsen/citegraph/internal/graph"
)

// jiggle returns a tiny random offset used to separate coincident nodes.
func jiggle(random func() float64) float64 {
	return (random() - 0.5) * 1e-6
}

// Link pulls linked nodes toward a fixed distance.
type Link struct {
	Distance float64

	links    []*graph.Link
	strength []float64
	bias     []float64
	random   func() float64
}

// NewLink creates a link force over the given (bound) links.
func NewLink(links []*graph.Link, distance float64) *Link {
	return &Link{Distance: distance, links: links}
}

// Links returns the links the force acts on.
func (f *Link) Links() []*graph.Link {
	return f.links
}

// SetLinks replaces the links and recomputes per-link strength and bias.
func (f *Link) SetLinks(links []*graph.Link) {
	f.links = links
	f.prepare()
}

func (f *Link) Initialize(nodes []*graph.Node, random func() float64) {
	f.random = random
	f.prepare()
}

// prepare computes d3's default strength 1/min(degree) and degree-based bias.
func (f *Link) prepare() {
	count := make(map[*graph.Node]int)
	for _, l := range f.links {
		count[l.Source.Node]++
		count[l.Target.Node]++
	}

	f.strength = make([]float64, len(f.links))
	f.bias = make([]float64, len(f.links))
	for i, l := range f.links {
		cs, ct := count[l.Source.Node], count[l.Target.Node]
		f.strength[i] = 1 / float64(max(1, min(cs, ct)))
		f.bias[i] = float64(cs) / float64(max(1, cs+ct))
	}
}

func (f *Link) Apply(alpha float64) {
	for i, l := range f.links {
		source, target := l.Source.Node, l.Target.Node
		if source == nil || target == nil || source == target {
			continue
		}
		x := target.X + target.VX - source.X - source.VX
		y := target.Y + target.VY - source.Y - source.VY
		if x == 0 {
			x = jiggle(f.random)
		}
		if y == 0 {
			y = jiggle(f.random)
		}
		d := math.Sqrt(x*x + y*y)
		d = (d - f.Distance) / d * alpha * f.strength[i]
		x *= d
		y *= d
		b := f.bias[i]
		target.VX -= x * b
		target.VY -= y * b
		source.VX += x * (1 - b)
		source.VY += y * (1 - b)
	}
}

// ManyBody applies a pairwise charge; negative strength repels.
type ManyBody struct {
	Strength    float64
	DistanceMin float64

	nodes  []*graph.Node
	random func() float64
}

// NewManyBody creates a charge force with the given strength.
func NewManyBody(strength float64) *ManyBody {
	return &ManyBody{Strength: strength, DistanceMin: 1}
}

func (f *ManyBody) Initialize(nodes []*graph.Node, random func() float64) {
	f.nodes = nodes
	f.random = random
}

func (f *ManyBody) Apply(alpha float64) {
	minSq := f.DistanceMin * f.DistanceMin
	for _, node := range f.nodes {
		for _, other := range f.nodes {
			if node == other {
				continue
			}
			x := other.X - node.X
			y := other.Y - node.Y
			if x == 0 {
				x = jiggle(f.random)
			}
			if y == 0 {
				y = jiggle(f.random)
			}
			l := x*x + y*y
			if l < minSq {
				l = math.Sqrt(minSq * l)
			}
			w := f.Strength * alpha / l
			node.VX += x * w
			node.VY += y * w
		}
	}
}

// Center translates all nodes so their mean position is (X, Y).
type Center struct {
	X, Y float64

	nodes []*graph.Node
}

// NewCenter creates a centering force.
func NewCenter(x, y float64) *Center {
	return &Center{X: x, Y: y}
}

func (f *Center) Initialize(nodes []*graph.Node, _ func() float64) {
	f.nodes = nodes
}

func (f *Center) Apply(float64) {
	if len(f.nodes) == 0 {
		return
	}
	var sx, sy float64
	for _, n := range f.nodes {
		sx += n.X
		sy += n.Y
	}
	n := float64(len(f.nodes))
	dx := f.X - sx/n
	dy := f.Y - sy/n
	for _, node := range f.nodes {
		node.X += dx
		node.Y += dy
	}
}

// Collide keeps nodes at least twice Radius apart.
type Collide struct {
	Radius   float64
	Strength float64

	nodes  []*graph.Node
	random func() float64
}

// NewCollide creates a collision force with the given node radius.
func NewCollide(radius float64) *Collide {
	return &Collide{Radius: radius, Strength: 1}
}

func (f *Collide) Initialize(nodes []*graph.Node, random func() float64) {
	f.nodes = nodes
	f.random = random
}

func (f *Collide) Apply(float64) {
	r := 2 * f.Radius
	for i, a := range f.nodes {
		for _, b := range f.nodes[i+1:] {
			x := (a.X + a.VX) - (b.X + b.VX)
			y := (a.Y + a.VY) - (b.Y + b.VY)
			l := x*x + y*y
			if l >= r*r {
				continue
			}
			if x == 0 {
				x = jiggle(f.random)
				l += x * x
			}
			if y == 0 {
				y = jiggle(f.random)
				l += y * y
			}
			l = math.Sqrt(l)
			l = (r - l) / l * f.Strength * 0.5
			x *= l
			y *= l
			a.VX += x
			a.VY += y
			b.VX -= x
			b.VY -= y
		}
	}
}
