package viewport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZoomToPoint_TargetStaysFixed(t *testing.T) {
	c := NewController(800, 600)
	c.transform = Transform{PanX: 40, PanY: -25, Scale: 1.5}

	target := Point{X: 400, Y: 300}
	worldBefore := c.Transform().ScreenToWorld(target)

	c.ZoomToPoint(target, 2.5)

	require.Equal(t, 2.5, c.Transform().Scale)
	worldAfter := c.Transform().ScreenToWorld(target)
	assert.InDelta(t, worldBefore.X, worldAfter.X, 1e-9)
	assert.InDelta(t, worldBefore.Y, worldAfter.Y, 1e-9)
}

func TestZoomToPoint_ClampsScale(t *testing.T) {
	c := NewController(800, 600)

	c.ZoomToPoint(Point{X: 100, Y: 100}, 100)
	assert.Equal(t, MaxScale, c.Transform().Scale)

	c.ZoomToPoint(Point{X: 100, Y: 100}, 0.0001)
	assert.Equal(t, MinScale, c.Transform().Scale)
}

func TestWheel_PanWithoutModifier(t *testing.T) {
	c := NewController(800, 600)

	c.Wheel(Point{X: 400, Y: 300}, 30, -10, false)

	assert.Equal(t, -30.0, c.Transform().PanX)
	assert.Equal(t, 10.0, c.Transform().PanY)
	assert.Equal(t, 1.0, c.Transform().Scale)
}

func TestWheel_ZoomWithModifier(t *testing.T) {
	c := NewController(800, 600)
	target := Point{X: 400, Y: 300}
	worldBefore := c.Transform().ScreenToWorld(target)

	c.Wheel(target, 0, -100, true)

	// Negative deltaY zooms in.
	tr := c.Transform()
	assert.Greater(t, tr.Scale, 1.0)
	assert.LessOrEqual(t, tr.Scale, MaxScale)

	worldAfter := tr.ScreenToWorld(target)
	assert.InDelta(t, worldBefore.X, worldAfter.X, 1e-9)
	assert.InDelta(t, worldBefore.Y, worldAfter.Y, 1e-9)
}

func TestWheel_RepeatedZoomStaysClamped(t *testing.T) {
	c := NewController(800, 600)
	for i := 0; i < 1000; i++ {
		c.Wheel(Point{X: 10, Y: 10}, 0, -200, true)
	}
	assert.Equal(t, MaxScale, c.Transform().Scale)

	for i := 0; i < 1000; i++ {
		c.Wheel(Point{X: 10, Y: 10}, 0, 200, true)
	}
	assert.Equal(t, MinScale, c.Transform().Scale)
}

func TestMiddleButtonPan(t *testing.T) {
	c := NewController(800, 600)

	c.PointerDown(Point{X: 100, Y: 100}, true)
	c.PointerMove(Point{X: 130, Y: 80})
	assert.Equal(t, 30.0, c.Transform().PanX)
	assert.Equal(t, -20.0, c.Transform().PanY)

	c.PointerMove(Point{X: 150, Y: 150})
	assert.Equal(t, 50.0, c.Transform().PanX)
	assert.Equal(t, 50.0, c.Transform().PanY)

	c.PointerUp()
	c.PointerMove(Point{X: 500, Y: 500})
	assert.Equal(t, 50.0, c.Transform().PanX)
}

func TestPointerDown_NonMiddleButtonIgnored(t *testing.T) {
	c := NewController(800, 600)
	c.PointerDown(Point{X: 100, Y: 100}, false)
	c.PointerMove(Point{X: 200, Y: 200})
	assert.Equal(t, 0.0, c.Transform().PanX)
}

func TestTouch_SinglePan(t *testing.T) {
	c := NewController(800, 600)

	c.Touch([]Point{{X: 100, Y: 100}})
	c.Touch([]Point{{X: 140, Y: 90}})

	assert.Equal(t, 40.0, c.Transform().PanX)
	assert.Equal(t, -10.0, c.Transform().PanY)
}

func TestTouch_MomentumAppliedOnFastRelease(t *testing.T) {
	c := NewController(800, 600)
	now := time.Unix(0, 0)
	c.nowFn = func() time.Time { return now }

	c.Touch([]Point{{X: 100, Y: 100}})
	// 80px in 10ms, well above the momentum threshold.
	now = now.Add(10 * time.Millisecond)
	c.Touch([]Point{{X: 180, Y: 100}})

	panBefore := c.Transform().PanX
	c.Touch(nil)

	assert.Greater(t, c.Transform().PanX, panBefore)
}

func TestTouch_NoMomentumWhenStill(t *testing.T) {
	c := NewController(800, 600)
	now := time.Unix(0, 0)
	c.nowFn = func() time.Time { return now }

	c.Touch([]Point{{X: 100, Y: 100}})
	now = now.Add(100 * time.Millisecond)
	c.Touch([]Point{{X: 101, Y: 100}})

	panBefore := c.Transform().PanX
	c.Touch(nil)

	assert.Equal(t, panBefore, c.Transform().PanX)
}

func TestTouch_PinchZoomsTowardMidpoint(t *testing.T) {
	c := NewController(800, 600)

	// Second finger lands while the first pans; pan state is abandoned.
	c.Touch([]Point{{X: 100, Y: 300}})
	c.Touch([]Point{{X: 100, Y: 300}, {X: 300, Y: 300}})

	mid := Point{X: 200, Y: 300}
	worldBefore := c.Transform().ScreenToWorld(mid)

	// Fingers spread to double the distance.
	c.Touch([]Point{{X: 0, Y: 300}, {X: 400, Y: 300}})

	tr := c.Transform()
	assert.InDelta(t, 2.0, tr.Scale, 1e-9)
	worldAfter := tr.ScreenToWorld(mid)
	assert.InDelta(t, worldBefore.X, worldAfter.X, 1e-9)
	assert.InDelta(t, worldBefore.Y, worldAfter.Y, 1e-9)
}

func TestTouch_PinchClampsScale(t *testing.T) {
	c := NewController(800, 600)

	c.Touch([]Point{{X: 390, Y: 300}, {X: 410, Y: 300}})
	c.Touch([]Point{{X: 0, Y: 300}, {X: 800, Y: 300}})

	assert.Equal(t, MaxScale, c.Transform().Scale)
}

func TestKeyPan(t *testing.T) {
	c := NewController(800, 600)

	c.KeyPan(1, 0, false)
	c.KeyPan(0, -1, false)
	assert.Equal(t, keyPanStep, c.Transform().PanX)
	assert.Equal(t, -keyPanStep, c.Transform().PanY)

	// Arrow keys inside a text input must not move the canvas.
	c.KeyPan(1, 1, true)
	assert.Equal(t, keyPanStep, c.Transform().PanX)
}

func TestKeyZoom_CenterStaysFixed(t *testing.T) {
	c := NewController(800, 600)
	center := Point{X: 400, Y: 300}
	worldBefore := c.Transform().ScreenToWorld(center)

	c.KeyZoomIn()
	assert.InDelta(t, keyZoomFactor, c.Transform().Scale, 1e-9)

	worldAfter := c.Transform().ScreenToWorld(center)
	assert.InDelta(t, worldBefore.X, worldAfter.X, 1e-9)
	assert.InDelta(t, worldBefore.Y, worldAfter.Y, 1e-9)

	c.KeyZoomOut()
	assert.InDelta(t, 1.0, c.Transform().Scale, 1e-9)
}

func TestReset(t *testing.T) {
	c := NewController(800, 600)
	c.Wheel(Point{X: 100, Y: 100}, 0, -100, true)
	c.Wheel(Point{}, 30, 40, false)

	c.Reset()

	assert.Equal(t, Identity(), c.Transform())
}

func TestInteractiveTargets(t *testing.T) {
	c := NewController(800, 600)

	assert.False(t, c.ShouldYield("note-1"))
	assert.False(t, c.ShouldYield(""))

	c.RegisterTarget("note-1")
	assert.True(t, c.ShouldYield("note-1"))
	assert.False(t, c.ShouldYield("note-2"))

	c.UnregisterTarget("note-1")
	assert.False(t, c.ShouldYield("note-1"))
}
