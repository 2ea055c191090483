// pkg/render/engo/input.go
package engo

import (
	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"

	"github.com/opd-ai/go-trackdrive/pkg/input"
)

// InputPriority polls keys before the simulation steps
const InputPriority = 100

// KeyBinding ties a browser-style key code to an engo key
type KeyBinding struct {
	Code string
	Key  engo.Key
}

// Bindings lists one engo button per key code. Each alias gets its own
// button so a release of either alias is seen on its own.
var Bindings = []KeyBinding{
	{input.KeyW, engo.KeyW},
	{input.ArrowUp, engo.KeyArrowUp},
	{input.KeyS, engo.KeyS},
	{input.ArrowDown, engo.KeyArrowDown},
	{input.KeyA, engo.KeyA},
	{input.ArrowLeft, engo.KeyArrowLeft},
	{input.KeyD, engo.KeyD},
	{input.ArrowRight, engo.KeyArrowRight},
}

// RegisterBindings registers every binding with engo.Input. It must run
// inside engo.Run, typically from Scene.Setup.
func RegisterBindings() {
	for _, b := range Bindings {
		engo.Input.RegisterButton(b.Code, b.Key)
	}
}

// KeyStates reports per-frame key transitions by key code
type KeyStates interface {
	JustPressed(code string) bool
	JustReleased(code string) bool
}

// engoKeys reads transitions from engo.Input
type engoKeys struct{}

func (engoKeys) JustPressed(code string) bool  { return engo.Input.Button(code).JustPressed() }
func (engoKeys) JustReleased(code string) bool { return engo.Input.Button(code).JustReleased() }

// KeySink receives key transitions; *engine.Simulation satisfies it
type KeySink interface {
	PressKey(code string)
	ReleaseKey(code string)
}

// InputSystem turns engo key transitions into key events for the simulation.
// It runs on the engo frame goroutine, the same goroutine that steps the
// simulation.
type InputSystem struct {
	keys KeyStates
	sink KeySink
}

// NewInputSystem reads from engo.Input and forwards to sink
func NewInputSystem(sink KeySink) *InputSystem {
	return &InputSystem{keys: engoKeys{}, sink: sink}
}

// Priority implements ecs.Prioritizer
func (is *InputSystem) Priority() int { return InputPriority }

// Remove satisfies the ecs.System interface
func (is *InputSystem) Remove(ecs.BasicEntity) {}

// Update forwards presses before releases so a tap within one frame still
// registers for that frame's tracker state and ends released.
func (is *InputSystem) Update(dt float32) {
	for _, b := range Bindings {
		if is.keys.JustPressed(b.Code) {
			is.sink.PressKey(b.Code)
		}
	}
	for _, b := range Bindings {
		if is.keys.JustReleased(b.Code) {
			is.sink.ReleaseKey(b.Code)
		}
	}
}
