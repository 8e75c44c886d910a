package core

// Input events delivered to a running loop.

// KeyEvent reports a key going down or up. Key names follow the DOM
// KeyboardEvent.key values ("w", "ArrowUp", ...).
type KeyEvent struct {
	Key  string
	Down bool
}

// PointerMove reports the pointer position relative to the play surface.
type PointerMove struct {
	X, Y float64
}

// PointerDown is one press; each press throws at most once.
type PointerDown struct{}

// Controls is the held-input state the simulation reads each tick.
type Controls struct {
	held     map[string]bool
	PointerX float64
	PointerY float64

	pendingThrows int
}

func NewControls(pointerX, pointerY float64) *Controls {
	return &Controls{
		held:     make(map[string]bool),
		PointerX: pointerX,
		PointerY: pointerY,
	}
}

// Apply folds one event into the control state. Presses are dropped while paused.
func (c *Controls) Apply(ev any, running bool) {
	switch e := ev.(type) {
	case KeyEvent:
		c.held[e.Key] = e.Down
	case PointerMove:
		c.PointerX, c.PointerY = e.X, e.Y
	case PointerDown:
		if running {
			c.pendingThrows++
		}
	}
}

func (c *Controls) anyHeld(keys ...string) bool {
	for _, k := range keys {
		if c.held[k] {
			return true
		}
	}
	return false
}

// Direction is the raw movement vector from held keys; components are -1, 0 or 1.
func (c *Controls) Direction() (dx, dy float64) {
	if c.anyHeld("w", "ArrowUp") {
		dy--
	}
	if c.anyHeld("s", "ArrowDown") {
		dy++
	}
	if c.anyHeld("a", "ArrowLeft") {
		dx--
	}
	if c.anyHeld("d", "ArrowRight") {
		dx++
	}
	return dx, dy
}

// takeThrows consumes the presses queued since the last tick.
func (c *Controls) takeThrows() int {
	n := c.pendingThrows
	c.pendingThrows = 0
	return n
}

// dropThrows discards presses that have not been consumed yet.
func (c *Controls) dropThrows() { c.pendingThrows = 0 }
