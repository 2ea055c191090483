// Package input turns host key transitions into the logical driving state of
// the player vehicle.
package input

import (
	"github.com/opd-ai/go-trackdrive/pkg/event"
)

// Action is a logical driving action
type Action int

const (
	Forward Action = iota
	Backward
	Left
	Right
)

func (a Action) String() string {
	switch a {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

// Key codes the tracker reacts to. Each action has a letter key and an arrow alias.
const (
	KeyW       = "KeyW"
	KeyS       = "KeyS"
	KeyA       = "KeyA"
	KeyD       = "KeyD"
	ArrowUp    = "ArrowUp"
	ArrowDown  = "ArrowDown"
	ArrowLeft  = "ArrowLeft"
	ArrowRight = "ArrowRight"
)

// Bindings maps the eight allow-listed codes to actions
var Bindings = map[string]Action{
	KeyW:       Forward,
	ArrowUp:    Forward,
	KeyS:       Backward,
	ArrowDown:  Backward,
	KeyA:       Left,
	ArrowLeft:  Left,
	KeyD:       Right,
	ArrowRight: Right,
}

// ActionFor returns the action bound to code
func ActionFor(code string) (Action, bool) {
	a, ok := Bindings[code]
	return a, ok
}

// ControlState is the pressed/released state of the four actions.
// The tracker writes it and the vehicle controller reads it, both on the
// frame thread.
type ControlState struct {
	Forward  bool
	Backward bool
	Left     bool
	Right    bool
}

// Set updates a single action
func (c *ControlState) Set(a Action, pressed bool) {
	switch a {
	case Forward:
		c.Forward = pressed
	case Backward:
		c.Backward = pressed
	case Left:
		c.Left = pressed
	case Right:
		c.Right = pressed
	}
}

// Pressed returns the state of a single action
func (c *ControlState) Pressed(a Action) bool {
	switch a {
	case Forward:
		return c.Forward
	case Backward:
		return c.Backward
	case Left:
		return c.Left
	case Right:
		return c.Right
	}
	return false
}

// Tracker applies key transitions to one ControlState.
//
// Releasing either alias of an action clears it, even while the other alias
// is still held. Last transition wins.
type Tracker struct {
	state *ControlState
}

// NewTracker creates a tracker writing to state
func NewTracker(state *ControlState) *Tracker {
	return &Tracker{state: state}
}

// State returns the tracked ControlState
func (t *Tracker) State() *ControlState {
	return t.state
}

// KeyDown handles a key press. Codes outside the allow-list are ignored.
func (t *Tracker) KeyDown(code string) {
	if a, ok := ActionFor(code); ok {
		t.state.Set(a, true)
	}
}

// KeyUp handles a key release. Codes outside the allow-list are ignored.
func (t *Tracker) KeyUp(code string) {
	if a, ok := ActionFor(code); ok {
		t.state.Set(a, false)
	}
}

// Reset releases every action
func (t *Tracker) Reset() {
	*t.state = ControlState{}
}

// Attach subscribes the tracker to key events on bus. The returned detach
// function cancels both subscriptions; calling it more than once is safe.
func (t *Tracker) Attach(bus *event.Bus) (detach func()) {
	down := bus.Subscribe(event.KeyDown, func(e event.Event) {
		if ke, ok := e.(*event.KeyEvent); ok {
			t.KeyDown(ke.Code)
		}
	})
	up := bus.Subscribe(event.KeyUp, func(e event.Event) {
		if ke, ok := e.(*event.KeyEvent); ok {
			t.KeyUp(ke.Code)
		}
	})
	return func() {
		down.Cancel()
		up.Cancel()
	}
}
