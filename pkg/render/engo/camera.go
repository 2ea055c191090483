// pkg/render/engo/camera.go
package engo

import (
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-trackdrive/pkg/camera"
)

// PixelsPerUnit scales world units to screen pixels in the top-down view
const PixelsPerUnit = 8

// referenceHeight is the camera height that maps to engo zoom 1
const referenceHeight = 10.0

// CameraSink projects the follow camera onto engo's 2D camera. The look-at
// point becomes the screen centre (x to screen x, z to screen y) and the
// camera height above its target becomes the zoom.
type CameraSink struct {
	dispatch func(engo.Message)
	last     camera.State
	hasLast  bool
}

// NewCameraSink dispatches through engo.Mailbox
func NewCameraSink() *CameraSink {
	return &CameraSink{
		dispatch: func(m engo.Message) { engo.Mailbox.Dispatch(m) },
	}
}

// SetCamera implements camera.Sink
func (cs *CameraSink) SetCamera(s camera.State) {
	if cs.hasLast && cs.last == s {
		return
	}
	cs.last, cs.hasLast = s, true

	cs.dispatch(common.CameraMessage{Axis: common.XAxis, Value: float32(s.LookAt.X() * PixelsPerUnit)})
	cs.dispatch(common.CameraMessage{Axis: common.YAxis, Value: float32(s.LookAt.Z() * PixelsPerUnit)})

	if height := s.Position.Y() - s.LookAt.Y(); height > 0 {
		cs.dispatch(common.CameraMessage{Axis: common.ZAxis, Value: float32(height / referenceHeight)})
	}
}

// WorldToScreen maps a point on the x/z plane into engo world pixels
func WorldToScreen(x, z float64) engo.Point {
	return engo.Point{X: float32(x * PixelsPerUnit), Y: float32(z * PixelsPerUnit)}
}
