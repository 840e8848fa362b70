package hardware

// Direction selects how a motor channel is driven. RELEASE cuts power and
// lets the motor coast rather than braking.
type Direction uint8

const (
	FORWARD Direction = iota + 1
	BACKWARD
	RELEASE
)

// Physical driver channel identifiers on the HAT. These are fixed by the
// wiring loom and are not configurable.
const (
	MOTOR_LEFT  = 1
	MOTOR_RIGHT = 2
)

func (d Direction) String() string {
	switch d {
	case FORWARD:
		return "FORWARD"
	case BACKWARD:
		return "BACKWARD"
	case RELEASE:
		return "RELEASE"
	}
	return "UNKNOWN"
}

type MotorInterface interface {
	SetSpeed(duty int) error
	Run(dir Direction) error
}
