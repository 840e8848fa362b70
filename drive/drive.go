package drive

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/multierr"

	deverrors "github.com/wheelworks/godrivebot/drive/errors"
	"github.com/wheelworks/godrivebot/drive/hardware"
)

// ImuSample is the most recent inertial reading. It is stored verbatim and
// currently unused by the controller, it is the input for a future closed
// loop on angular velocity.
type ImuSample struct {
	Orientation        mgl64.Quat
	AngularVelocity    mgl64.Vec3
	LinearAcceleration mgl64.Vec3
	ReceivedAt         time.Time
}

// Snapshot is a point in time view of the drive, served by the API and
// persisted by the blackbox recorder.
type Snapshot struct {
	Linear      float64   `json:"linear"`
	Angular     float64   `json:"angular"`
	Left        float64   `json:"left"`
	Right       float64   `json:"right"`
	Connected   bool      `json:"connected"`
	LastCommand time.Time `json:"last_command"`
	UpdatedAt   time.Time `json:"updated_at"`

	ImuAngularVelocity mgl64.Vec3 `json:"imu_angular_velocity"`
}

// Drive is the open loop differential drive controller. Commands actuate
// synchronously in HandleTwist, the control loop only polls the watchdog
// and forces the motors idle once it expires.
type Drive struct {
	Params   *Params
	Watchdog *Watchdog
	TickRate int

	motors map[int]hardware.MotorInterface

	hwlock *sync.Mutex // serializes actuate/idle hardware sequences

	statelock sync.Mutex
	twist     struct{ linear, angular float64 }
	wheels    struct{ left, right float64 }
	imu       ImuSample
	updatedAt time.Time

	logger golog.Logger
}

func NewDrive(left, right hardware.MotorInterface, config *Config, logger golog.Logger) *Drive {
	return &Drive{
		Params:   config.Drive,
		Watchdog: NewWatchdog(CMD_TIMEOUT),
		TickRate: config.TickRate,
		motors: map[int]hardware.MotorInterface{
			hardware.MOTOR_LEFT:  left,
			hardware.MOTOR_RIGHT: right,
		},
		hwlock: new(sync.Mutex),
		logger: logger,
	}
}

// HandleTwist maps a received twist command onto both wheels. Receipt of a
// command resets the watchdog before anything else: only valid commands
// keep the robot alive.
func (d *Drive) HandleTwist(linear, angular float64) {
	d.Watchdog.Reset()

	left, right := Mix(linear, angular, d.Params.KSpeed, d.Params.KAngular)

	d.statelock.Lock()
	d.twist.linear, d.twist.angular = linear, angular
	d.wheels.left, d.wheels.right = left, right
	d.updatedAt = time.Now()
	d.statelock.Unlock()

	if err := d.Actuate(hardware.MOTOR_LEFT, left); err != nil {
		d.logger.Errorw("unable to actuate motor", "motor", hardware.MOTOR_LEFT, "error", err)
	}
	if err := d.Actuate(hardware.MOTOR_RIGHT, right); err != nil {
		d.logger.Errorw("unable to actuate motor", "motor", hardware.MOTOR_RIGHT, "error", err)
	}
}

// HandleIMU stores the latest inertial sample, most recent wins.
func (d *Drive) HandleIMU(sample ImuSample) {
	d.statelock.Lock()
	defer d.statelock.Unlock()
	d.imu = sample
}

// Actuate converts a signed wheel speed into a duty cycle and direction for
// one motor. Speed is a fraction of max speed, magnitudes above 1 saturate
// at max_pwm. Strictly positive speeds run FORWARD, everything else,
// including exactly zero, runs BACKWARD.
func (d *Drive) Actuate(motor int, speed float64) (err error) {
	m, ok := d.motors[motor]
	if !ok {
		return deverrors.InvalidMotorError{ID: motor}
	}

	duty := int(mgl64.Clamp(math.Round(math.Abs(speed)*float64(d.Params.MaxPWM)), 0, float64(d.Params.MaxPWM)))

	d.hwlock.Lock()
	defer d.hwlock.Unlock()

	if err = m.SetSpeed(duty); err != nil {
		return
	}

	dir := hardware.BACKWARD
	if speed > 0 {
		dir = hardware.FORWARD
	}
	return m.Run(dir)
}

// Idle releases both motors: duty cycle to zero first, then RELEASE so they
// coast. Unconditional and idempotent.
func (d *Drive) Idle() (err error) {
	d.hwlock.Lock()
	defer d.hwlock.Unlock()

	for _, id := range []int{hardware.MOTOR_LEFT, hardware.MOTOR_RIGHT} {
		m := d.motors[id]
		if serr := m.SetSpeed(0); serr != nil {
			err = multierr.Combine(err, serr)
			continue
		}
		if rerr := m.Run(hardware.RELEASE); rerr != nil {
			err = multierr.Combine(err, rerr)
		}
	}
	return
}

// Connected reports whether the command source is still live.
func (d *Drive) Connected() bool {
	return d.Watchdog.IsConnected()
}

// State returns a snapshot of the drive for reporting.
func (d *Drive) State() Snapshot {
	d.statelock.Lock()
	defer d.statelock.Unlock()

	return Snapshot{
		Linear:      d.twist.linear,
		Angular:     d.twist.angular,
		Left:        d.wheels.left,
		Right:       d.wheels.right,
		Connected:   d.Watchdog.IsConnected(),
		LastCommand: d.Watchdog.LastCommand(),
		UpdatedAt:   d.updatedAt,

		ImuAngularVelocity: d.imu.AngularVelocity,
	}
}

// Run is the control loop. Each tick it polls the watchdog and, while
// expired, forces the motors idle. Actuation itself is event driven and
// does not happen here. On shutdown the motors are left released.
func (d *Drive) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(d.TickRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := d.Idle(); err != nil {
				d.logger.Errorw("unable to idle motors on shutdown", "error", err)
			}
			return

		case <-ticker.C:
			if !d.Watchdog.IsConnected() {
				if err := d.Idle(); err != nil {
					d.logger.Errorw("unable to idle motors", "error", err)
				}
			}
		}
	}
}
