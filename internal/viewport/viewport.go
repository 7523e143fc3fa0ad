// Package viewport tracks the zoom/pan transform of the graph view, in the
// manner of d3-zoom: a translate (X, Y) and a scale K confined to a scale
// extent, changed by buttons (animated) or gestures (immediate).
package viewport

import (
	"math"
	"time"
)

// Scale extent and button behavior.
const (
	MinScale = 0.1
	MaxScale = 4.0

	ZoomInFactor  = 1.2
	ZoomOutFactor = 0.8

	ZoomDuration  = 300 * time.Millisecond
	ResetDuration = 500 * time.Millisecond
)

// Transform maps graph coordinates to screen coordinates:
// screen = graph*K + (X, Y).
type Transform struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	K float64 `json:"k"`
}

// Identity is the transform with no translation and scale 1.
var Identity = Transform{K: 1}

// Apply maps a graph point to the screen.
func (t Transform) Apply(x, y float64) (float64, float64) {
	return x*t.K + t.X, y*t.K + t.Y
}

// Invert maps a screen point back to graph coordinates.
func (t Transform) Invert(x, y float64) (float64, float64) {
	return (x - t.X) / t.K, (y - t.Y) / t.K
}

// scaleAround returns t rescaled to k while keeping the screen point
// (px, py) over the same graph point.
func (t Transform) scaleAround(k, px, py float64) Transform {
	gx, gy := t.Invert(px, py)
	return Transform{X: px - gx*k, Y: py - gy*k, K: k}
}

// Transition animates between two transforms.
type Transition struct {
	From     Transform
	To       Transform
	Duration time.Duration
}

// At returns the transform elapsed into the transition, eased with a
// cubic in-out curve. Past the end it returns To.
func (tr Transition) At(elapsed time.Duration) Transform {
	if tr.Duration <= 0 || elapsed >= tr.Duration {
		return tr.To
	}
	if elapsed <= 0 {
		return tr.From
	}
	p := easeCubicInOut(float64(elapsed) / float64(tr.Duration))
	return Transform{
		X: tr.From.X + (tr.To.X-tr.From.X)*p,
		Y: tr.From.Y + (tr.To.Y-tr.From.Y)*p,
		K: tr.From.K + (tr.To.K-tr.From.K)*p,
	}
}

// Done reports whether the transition has finished after elapsed.
func (tr Transition) Done(elapsed time.Duration) bool {
	return elapsed >= tr.Duration
}

func easeCubicInOut(t float64) float64 {
	t *= 2
	if t <= 1 {
		return t * t * t / 2
	}
	t -= 2
	return (t*t*t + 2) / 2
}

// Viewport is the tracked transform of a width x height view.
type Viewport struct {
	width, height float64
	transform     Transform
}

// New creates a viewport at the identity transform.
func New(width, height float64) *Viewport {
	return &Viewport{width: width, height: height, transform: Identity}
}

// Transform returns the tracked transform.
func (v *Viewport) Transform() Transform { return v.transform }

// Scale returns the tracked scale.
func (v *Viewport) Scale() float64 { return v.transform.K }

// Size returns the view size.
func (v *Viewport) Size() (width, height float64) { return v.width, v.height }

// SetSize changes the view size. The transform is kept.
func (v *Viewport) SetSize(width, height float64) {
	v.width, v.height = width, height
}

// ZoomIn scales up by ZoomInFactor around the view center.
func (v *Viewport) ZoomIn() Transition {
	return v.ZoomBy(ZoomInFactor, ZoomDuration)
}

// ZoomOut scales down by ZoomOutFactor around the view center.
func (v *Viewport) ZoomOut() Transition {
	return v.ZoomBy(ZoomOutFactor, ZoomDuration)
}

// ZoomBy multiplies the scale by factor, clamped to the scale extent,
// keeping the view center fixed. The tracked transform moves to the target
// at once; the returned transition animates the change.
func (v *Viewport) ZoomBy(factor float64, d time.Duration) Transition {
	from := v.transform
	if k := clamp(from.K * factor); k != from.K {
		v.transform = from.scaleAround(k, v.width/2, v.height/2)
	}
	return Transition{From: from, To: v.transform, Duration: d}
}

// Reset returns to the identity transform.
func (v *Viewport) Reset() Transition {
	from := v.transform
	v.transform = Identity
	return Transition{From: from, To: Identity, Duration: ResetDuration}
}

// Gesture applies a wheel or pinch zoom by factor around the screen point
// (px, py), clamped to the scale extent. A factor that is not a positive
// finite number leaves the view unchanged.
func (v *Viewport) Gesture(px, py, factor float64) Transform {
	if !(factor > 0) || math.IsInf(factor, 0) {
		return v.transform
	}
	if k := clamp(v.transform.K * factor); k != v.transform.K {
		v.transform = v.transform.scaleAround(k, px, py)
	}
	return v.transform
}

// Pan translates the view by (dx, dy) screen pixels.
func (v *Viewport) Pan(dx, dy float64) Transform {
	v.transform.X += dx
	v.transform.Y += dy
	return v.transform
}

// Set replaces the tracked transform, clamping its scale.
func (v *Viewport) Set(t Transform) {
	t.K = clamp(t.K)
	v.transform = t
}

func clamp(k float64) float64 {
	if math.IsNaN(k) {
		return 1
	}
	return math.Max(MinScale, math.Min(MaxScale, k))
}
