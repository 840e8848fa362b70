package comms

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/wheelworks/godrivebot/drive"
)

// TwistPayload is the wire form of a velocity command. Both components are
// nominally in [-1, 1], the range is a caller contract and not enforced.
type TwistPayload struct {
	Linear  float64 `json:"linear"`
	Angular float64 `json:"angular"`
}

// ImuPayload is the wire form of an inertial sample. Orientation is a
// quaternion as [x, y, z, w].
type ImuPayload struct {
	Orientation        [4]float64 `json:"orientation"`
	AngularVelocity    [3]float64 `json:"angular_velocity"`
	LinearAcceleration [3]float64 `json:"linear_acceleration"`
}

func (p ImuPayload) Sample() drive.ImuSample {
	return drive.ImuSample{
		Orientation: mgl64.Quat{
			W: p.Orientation[3],
			V: mgl64.Vec3{p.Orientation[0], p.Orientation[1], p.Orientation[2]},
		},
		AngularVelocity:    mgl64.Vec3{p.AngularVelocity[0], p.AngularVelocity[1], p.AngularVelocity[2]},
		LinearAcceleration: mgl64.Vec3{p.LinearAcceleration[0], p.LinearAcceleration[1], p.LinearAcceleration[2]},
		ReceivedAt:         time.Now(),
	}
}
