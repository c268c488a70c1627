package viewport

import (
	"math"
	"sync"
	"time"
)

// Gesture tuning constants. Sensitivities are unitless multipliers applied
// to raw input deltas.
const (
	wheelZoomSensitivity = 0.002
	keyPanStep           = 50.0
	keyZoomFactor        = 1.2
	momentumThreshold    = 0.05 // px per ms
	momentumDurationMs   = 200.0
	velocitySmoothing    = 0.8
)

type gestureState int

const (
	stateIdle gestureState = iota
	stateTouchPan
	statePinch
	statePointerPan
)

// Controller turns raw pointer, wheel, touch and keyboard input into
// mutations of a Transform. All zoom triggers funnel through ZoomToPoint so
// the screen point under the cursor or pinch center stays visually fixed.
//
// The controller assumes a single event-dispatch goroutine driving it; the
// registry of interactive targets is the only part touched from elsewhere
// and is guarded separately.
type Controller struct {
	transform Transform
	width     float64
	height    float64

	state gestureState

	// single-finger pan
	startTouch Point
	startPan   Point
	lastTouch  Point
	lastTime   time.Time
	velX       float64 // px per ms
	velY       float64

	// pinch
	pinchStartDist float64
	pinchStart     Transform
	pinchStartMid  Point

	// middle-button pan
	startPointer Point

	targetsMu sync.RWMutex
	targets   map[string]struct{}

	nowFn func() time.Time
}

// NewController returns a controller over an identity transform for a
// viewport of the given pixel size.
func NewController(width, height float64) *Controller {
	return &Controller{
		transform: Identity(),
		width:     width,
		height:    height,
		targets:   make(map[string]struct{}),
		nowFn:     time.Now,
	}
}

// Transform returns the current transform snapshot.
func (c *Controller) Transform() Transform {
	return c.transform
}

// Reset restores the identity transform and drops any gesture in progress.
func (c *Controller) Reset() {
	c.transform = Identity()
	c.state = stateIdle
}

// RegisterTarget marks an on-canvas element (a note being dragged, a resize
// handle) as an interactive sub-target. Input events originating inside a
// registered target must be yielded to that target's own handler instead of
// panning or zooming the canvas.
func (c *Controller) RegisterTarget(id string) {
	c.targetsMu.Lock()
	defer c.targetsMu.Unlock()
	c.targets[id] = struct{}{}
}

// UnregisterTarget removes a previously registered interactive sub-target.
func (c *Controller) UnregisterTarget(id string) {
	c.targetsMu.Lock()
	defer c.targetsMu.Unlock()
	delete(c.targets, id)
}

// ShouldYield reports whether an event whose hit-test resolved to targetID
// belongs to a registered interactive sub-target. Callers check this before
// routing the event to any of the gesture handlers below.
func (c *Controller) ShouldYield(targetID string) bool {
	if targetID == "" {
		return false
	}
	c.targetsMu.RLock()
	defer c.targetsMu.RUnlock()
	_, ok := c.targets[targetID]
	return ok
}

// ZoomToPoint sets the scale (clamped to [MinScale, MaxScale]) while keeping
// the world point currently under target fixed at the same screen position.
func (c *Controller) ZoomToPoint(target Point, newScale float64) {
	newScale = clampScale(newScale)
	world := c.transform.ScreenToWorld(target)
	c.transform = Transform{
		PanX:  target.X - world.X*newScale,
		PanY:  target.Y - world.Y*newScale,
		Scale: newScale,
	}
}

// Wheel handles a wheel event at screen point p. Without the zoom modifier
// the wheel pans; with it the wheel zooms toward p.
func (c *Controller) Wheel(p Point, deltaX, deltaY float64, zoomModifier bool) {
	if !zoomModifier {
		c.transform.PanX -= deltaX
		c.transform.PanY -= deltaY
		return
	}
	newScale := c.transform.Scale * (1 - deltaY*wheelZoomSensitivity)
	c.ZoomToPoint(p, newScale)
}

// PointerDown begins a middle-button pan. Other buttons are not the
// controller's business.
func (c *Controller) PointerDown(p Point, middleButton bool) {
	if !middleButton || c.state != stateIdle {
		return
	}
	c.state = statePointerPan
	c.startPointer = p
	c.startPan = Point{X: c.transform.PanX, Y: c.transform.PanY}
}

// PointerMove pans by the cumulative delta while a middle-button drag is
// active.
func (c *Controller) PointerMove(p Point) {
	if c.state != statePointerPan {
		return
	}
	c.transform.PanX = c.startPan.X + (p.X - c.startPointer.X)
	c.transform.PanY = c.startPan.Y + (p.Y - c.startPointer.Y)
}

// PointerUp ends a middle-button pan. Pointer-leave maps here too.
func (c *Controller) PointerUp() {
	if c.state == statePointerPan {
		c.state = stateIdle
	}
}

// Touch handles a touch-state change with the currently active touch points.
// One finger pans with momentum on release, two fingers pinch-zoom.
func (c *Controller) Touch(points []Point) {
	switch len(points) {
	case 0:
		c.touchEnd()
	case 1:
		c.touchOne(points[0])
	default:
		c.touchPinch(points[0], points[1])
	}
}

func (c *Controller) touchOne(p Point) {
	now := c.nowFn()
	if c.state != stateTouchPan {
		c.state = stateTouchPan
		c.startTouch = p
		c.startPan = Point{X: c.transform.PanX, Y: c.transform.PanY}
		c.lastTouch = p
		c.lastTime = now
		c.velX, c.velY = 0, 0
		return
	}
	c.transform.PanX = c.startPan.X + (p.X - c.startTouch.X)
	c.transform.PanY = c.startPan.Y + (p.Y - c.startTouch.Y)

	dt := float64(now.Sub(c.lastTime).Microseconds()) / 1000.0
	if dt > 0 {
		vx := (p.X - c.lastTouch.X) / dt
		vy := (p.Y - c.lastTouch.Y) / dt
		c.velX = c.velX*(1-velocitySmoothing) + vx*velocitySmoothing
		c.velY = c.velY*(1-velocitySmoothing) + vy*velocitySmoothing
	}
	c.lastTouch = p
	c.lastTime = now
}

func (c *Controller) touchPinch(a, b Point) {
	dist := math.Hypot(b.X-a.X, b.Y-a.Y)
	mid := Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
	if c.state != statePinch {
		// A second finger aborts any single-finger pan in progress.
		c.state = statePinch
		c.pinchStartDist = dist
		c.pinchStart = c.transform
		c.pinchStartMid = mid
		c.velX, c.velY = 0, 0
		return
	}
	if c.pinchStartDist == 0 {
		return
	}
	newScale := clampScale(c.pinchStart.Scale * dist / c.pinchStartDist)
	world := c.pinchStart.ScreenToWorld(c.pinchStartMid)
	c.transform = Transform{
		PanX:  c.pinchStartMid.X - world.X*newScale + (mid.X - c.pinchStartMid.X),
		PanY:  c.pinchStartMid.Y - world.Y*newScale + (mid.Y - c.pinchStartMid.Y),
		Scale: newScale,
	}
}

func (c *Controller) touchEnd() {
	if c.state == stateTouchPan && math.Hypot(c.velX, c.velY) > momentumThreshold {
		c.transform.PanX += c.velX * momentumDurationMs
		c.transform.PanY += c.velY * momentumDurationMs
	}
	c.state = stateIdle
}

// KeyPan pans by one keyboard step in the given direction (each of dx, dy is
// -1, 0 or 1). Events fired while focus sits in a text input must not reach
// the canvas; inTextInput suppresses them.
func (c *Controller) KeyPan(dx, dy int, inTextInput bool) {
	if inTextInput {
		return
	}
	c.transform.PanX += float64(dx) * keyPanStep
	c.transform.PanY += float64(dy) * keyPanStep
}

// KeyZoomIn zooms one keyboard step toward the viewport center.
func (c *Controller) KeyZoomIn() {
	c.ZoomToPoint(c.center(), c.transform.Scale*keyZoomFactor)
}

// KeyZoomOut zooms one keyboard step out from the viewport center.
func (c *Controller) KeyZoomOut() {
	c.ZoomToPoint(c.center(), c.transform.Scale/keyZoomFactor)
}

func (c *Controller) center() Point {
	return Point{X: c.width / 2, Y: c.height / 2}
}
