package viewport

import (
	"math"
	"testing"
	"time"
)

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < eps }

func TestZoomIn(t *testing.T) {
	v := New(800, 550)
	tr := v.ZoomIn()

	if !near(v.Scale(), 1.2) {
		t.Errorf("scale = %v, want 1.2", v.Scale())
	}
	if tr.Duration != 300*time.Millisecond || tr.From != Identity || tr.To != v.Transform() {
		t.Errorf("transition = %+v", tr)
	}

	// The view center stays over the same graph point.
	gx, gy := v.Transform().Invert(400, 275)
	if !near(gx, 400) || !near(gy, 275) {
		t.Errorf("center maps to (%v, %v), want (400, 275)", gx, gy)
	}
}

func TestZoomInThenOut(t *testing.T) {
	v := New(800, 550)
	v.ZoomIn()
	v.ZoomOut()
	// 1.2 * 0.8 is not a round trip.
	if !near(v.Scale(), 0.96) {
		t.Errorf("scale = %v, want 0.96", v.Scale())
	}

	v.Reset()
	v.ZoomBy(ZoomInFactor, 0)
	v.ZoomBy(1/ZoomInFactor, 0)
	if !near(v.Scale(), 1) {
		t.Errorf("reciprocal zoom scale = %v, want 1", v.Scale())
	}
}

func TestZoomClampsToExtent(t *testing.T) {
	tests := []struct {
		name  string
		zoom  func(*Viewport) Transition
		times int
		want  float64
	}{
		{"in", (*Viewport).ZoomIn, 20, MaxScale},
		{"out", (*Viewport).ZoomOut, 20, MinScale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New(800, 550)
			for range tt.times {
				tt.zoom(v)
			}
			if v.Scale() != tt.want {
				t.Errorf("scale = %v, want %v", v.Scale(), tt.want)
			}
			// A press at the limit is a no-op transition.
			tr := tt.zoom(v)
			if tr.From != tr.To {
				t.Errorf("transition at limit moves: %+v", tr)
			}
		})
	}
}

func TestReset(t *testing.T) {
	v := New(800, 550)
	v.ZoomIn()
	v.Pan(30, -10)
	before := v.Transform()

	tr := v.Reset()
	if v.Transform() != Identity {
		t.Errorf("transform = %+v, want identity", v.Transform())
	}
	if tr.Duration != 500*time.Millisecond || tr.From != before || tr.To != Identity {
		t.Errorf("transition = %+v", tr)
	}
}

func TestGesture(t *testing.T) {
	v := New(800, 550)
	got := v.Gesture(100, 50, 2)
	if got.K != 2 {
		t.Errorf("K = %v, want 2", got.K)
	}
	if gx, gy := got.Invert(100, 50); !near(gx, 100) || !near(gy, 50) {
		t.Errorf("gesture point moved to (%v, %v)", gx, gy)
	}
	if got := v.Gesture(0, 0, 100); got.K != MaxScale {
		t.Errorf("K = %v, want clamp to %v", got.K, MaxScale)
	}
}

func TestGesture_IgnoresBadFactor(t *testing.T) {
	for _, factor := range []float64{0, -2, math.NaN(), math.Inf(1)} {
		v := New(800, 550)
		v.Pan(10, 20)
		if got := v.Gesture(100, 50, factor); got != (Transform{X: 10, Y: 20, K: 1}) {
			t.Errorf("Gesture(factor=%v) = %+v, want unchanged", factor, got)
		}
	}
}

func TestPan(t *testing.T) {
	v := New(800, 550)
	v.Pan(10, 20)
	got := v.Pan(5, -5)
	if got != (Transform{X: 15, Y: 15, K: 1}) {
		t.Errorf("transform = %+v", got)
	}
}

func TestTransitionAt(t *testing.T) {
	tr := Transition{From: Identity, To: Transform{X: 100, Y: -50, K: 3}, Duration: 300 * time.Millisecond}

	if got := tr.At(0); got != Identity {
		t.Errorf("At(0) = %+v", got)
	}
	mid := tr.At(150 * time.Millisecond)
	if !near(mid.K, 2) || !near(mid.X, 50) || !near(mid.Y, -25) {
		t.Errorf("At(mid) = %+v, want halfway", mid)
	}
	if got := tr.At(time.Second); got != tr.To {
		t.Errorf("At(end) = %+v", got)
	}
	if !tr.Done(300*time.Millisecond) || tr.Done(299*time.Millisecond) {
		t.Error("Done() boundaries wrong")
	}

	// Eased: slower than linear at the start.
	if early := tr.At(30 * time.Millisecond); early.K >= 1.2 {
		t.Errorf("At(10%%) K = %v, want < linear 1.2", early.K)
	}
}

func TestTransform_ApplyInvert(t *testing.T) {
	tf := Transform{X: 10, Y: 20, K: 2}
	x, y := tf.Apply(3, 4)
	if x != 16 || y != 28 {
		t.Errorf("Apply = (%v, %v)", x, y)
	}
	gx, gy := tf.Invert(x, y)
	if gx != 3 || gy != 4 {
		t.Errorf("Invert = (%v, %v)", gx, gy)
	}
}
