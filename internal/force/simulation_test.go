package force

import (
	"math"
	"testing"

	"github.com/matsen/citegraph/internal/graph"
)

func lineGraph() ([]*graph.Node, []*graph.Link) {
	nodes := []*graph.Node{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	links := []*graph.Link{
		{Source: graph.NodeRef{ID: "a"}, Target: graph.NodeRef{ID: "b"}},
		{Source: graph.NodeRef{ID: "b"}, Target: graph.NodeRef{ID: "c"}},
	}
	if err := graph.Bind(nodes, links); err != nil {
		panic(err)
	}
	return nodes, links
}

func TestNew_PlacesUnpositionedNodes(t *testing.T) {
	nodes, _ := lineGraph()
	New(nodes)

	seen := make(map[[2]float64]bool)
	for _, n := range nodes {
		key := [2]float64{n.X, n.Y}
		if seen[key] {
			t.Fatalf("two nodes placed at the same point %v", key)
		}
		seen[key] = true
	}
}

func TestSetForce_OrderAndRemoval(t *testing.T) {
	sim := New(nil)
	sim.SetForce("link", NewLink(nil, 100))
	sim.SetForce("charge", NewManyBody(-300))
	sim.SetForce("center", NewCenter(400, 275))

	if got := sim.ForceNames(); len(got) != 3 || got[0] != "link" || got[2] != "center" {
		t.Fatalf("ForceNames() = %v", got)
	}

	sim.SetForce("charge", nil)
	if sim.Force("charge") != nil {
		t.Error("charge force not removed")
	}
	if got := sim.ForceNames(); len(got) != 2 || got[1] != "center" {
		t.Errorf("ForceNames() after removal = %v", got)
	}

	// Removing an absent force is a no-op.
	sim.SetForce("collision", nil)
	if len(sim.ForceNames()) != 2 {
		t.Error("removing absent force changed the force list")
	}
}

func TestTick_PinnedNodesStayFixed(t *testing.T) {
	nodes, links := lineGraph()
	sim := New(nodes)
	sim.SetForce("link", NewLink(links, 100))
	sim.SetForce("charge", NewManyBody(-300))

	nodes[1].Pin(42, -7)
	for i := 0; i < 20; i++ {
		sim.Tick()
	}

	if nodes[1].X != 42 || nodes[1].Y != -7 {
		t.Errorf("pinned node moved to (%v, %v)", nodes[1].X, nodes[1].Y)
	}
	if nodes[1].VX != 0 || nodes[1].VY != 0 {
		t.Errorf("pinned node has velocity (%v, %v)", nodes[1].VX, nodes[1].VY)
	}
}

func TestCenter_MovesMeanToCenter(t *testing.T) {
	nodes := []*graph.Node{{ID: "a", X: 1, Y: 1}, {ID: "b", X: 3, Y: 5}}
	c := NewCenter(100, 50)
	c.Initialize(nodes, nil)
	c.Apply(1)

	mx := (nodes[0].X + nodes[1].X) / 2
	my := (nodes[0].Y + nodes[1].Y) / 2
	if math.Abs(mx-100) > 1e-9 || math.Abs(my-50) > 1e-9 {
		t.Errorf("mean = (%v, %v), want (100, 50)", mx, my)
	}
}

func TestLink_ConvergesTowardDistance(t *testing.T) {
	nodes := []*graph.Node{{ID: "a", X: 0, Y: 0}, {ID: "b", X: 300, Y: 0}}
	links := []*graph.Link{{Source: graph.NodeRef{ID: "a"}, Target: graph.NodeRef{ID: "b"}}}
	if err := graph.Bind(nodes, links); err != nil {
		t.Fatal(err)
	}

	sim := New(nodes)
	sim.SetForce("link", NewLink(links, 100))
	for i := 0; i < 300; i++ {
		sim.Tick()
	}

	d := math.Hypot(nodes[1].X-nodes[0].X, nodes[1].Y-nodes[0].Y)
	if math.Abs(d-100) > 5 {
		t.Errorf("distance after cooling = %v, want about 100", d)
	}
}

func TestManyBody_Repels(t *testing.T) {
	nodes := []*graph.Node{{ID: "a", X: -1, Y: 0}, {ID: "b", X: 1, Y: 0}}
	f := NewManyBody(-300)
	f.Initialize(nodes, func() float64 { return 0.5 })
	f.Apply(1)

	if nodes[0].VX >= 0 || nodes[1].VX <= 0 {
		t.Errorf("velocities (%v, %v) do not push nodes apart", nodes[0].VX, nodes[1].VX)
	}
}

func TestCollide_SeparatesOverlappingNodes(t *testing.T) {
	nodes := []*graph.Node{{ID: "a", X: 0, Y: 0}, {ID: "b", X: 5, Y: 0}}
	f := NewCollide(20)
	f.Initialize(nodes, func() float64 { return 0.5 })
	f.Apply(1)

	if nodes[0].VX >= 0 || nodes[1].VX <= 0 {
		t.Errorf("velocities (%v, %v) do not separate nodes", nodes[0].VX, nodes[1].VX)
	}
}

func TestStep_CoolsAndStops(t *testing.T) {
	nodes, links := lineGraph()
	sim := New(nodes)
	sim.SetForce("link", NewLink(links, 100))

	ticks := 0
	sim.OnTick(func() { ticks++ })

	steps := 0
	for sim.Step() {
		steps++
		if steps > 1000 {
			t.Fatal("simulation never cooled")
		}
	}
	if ticks != steps {
		t.Errorf("listener called %d times for %d steps", ticks, steps)
	}
	if sim.Alpha() >= sim.AlphaMin() {
		t.Errorf("alpha = %v after stop, want below %v", sim.Alpha(), sim.AlphaMin())
	}
	// d3 cools from 1 to alphaMin in 300 ticks.
	if steps < 290 || steps > 310 {
		t.Errorf("cooled in %d steps, want about 300", steps)
	}

	sim.SetAlpha(1)
	sim.Restart()
	if !sim.Step() {
		t.Error("Step() after Restart returned false")
	}
}

func TestStep_AlphaTargetKeepsRunning(t *testing.T) {
	sim := New([]*graph.Node{{ID: "a"}})
	sim.SetAlphaTarget(0.3)
	for i := 0; i < 1000; i++ {
		if !sim.Step() {
			t.Fatalf("simulation stopped at step %d with alpha target 0.3", i)
		}
	}
	if math.Abs(sim.Alpha()-0.3) > 0.01 {
		t.Errorf("alpha = %v, want about 0.3", sim.Alpha())
	}
}
