package drive

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/edaniels/golog"
	. "github.com/smartystreets/goconvey/convey"

	deverrors "github.com/wheelworks/godrivebot/drive/errors"
	"github.com/wheelworks/godrivebot/drive/hardware"
)

type mockOp struct {
	kind string // "speed" or "run"
	duty int
	dir  hardware.Direction
}

type MockMotor struct {
	lock sync.Mutex
	ops  []mockOp
	fail bool
}

func (m *MockMotor) SetSpeed(duty int) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.fail {
		return errors.New("bus write failed")
	}
	m.ops = append(m.ops, mockOp{kind: "speed", duty: duty})
	return nil
}

func (m *MockMotor) Run(dir hardware.Direction) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.fail {
		return errors.New("bus write failed")
	}
	m.ops = append(m.ops, mockOp{kind: "run", dir: dir})
	return nil
}

func (m *MockMotor) history() []mockOp {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]mockOp(nil), m.ops...)
}

func (m *MockMotor) clear() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.ops = nil
}

func testDrive(t *testing.T) (*Drive, *MockMotor, *MockMotor) {
	t.Helper()

	left := new(MockMotor)
	right := new(MockMotor)

	config := &Config{
		Drive: &Params{
			MaxPWM:   255,
			KSpeed:   1.0,
			KAngular: 1.0,
		},
		TickRate: 200,
	}

	return NewDrive(left, right, config, golog.NewTestLogger(t)), left, right
}

func TestActuate(t *testing.T) {
	Convey("with a drive on mock motors", t, func() {
		d, left, right := testDrive(t)

		Convey("a positive speed sets the duty cycle then runs FORWARD", func() {
			So(d.Actuate(hardware.MOTOR_LEFT, 1.0), ShouldBeNil)
			So(left.history(), ShouldResemble, []mockOp{
				{kind: "speed", duty: 255},
				{kind: "run", dir: hardware.FORWARD},
			})
		})

		Convey("a negative speed runs BACKWARD at the same magnitude", func() {
			So(d.Actuate(hardware.MOTOR_RIGHT, -0.5), ShouldBeNil)
			So(right.history(), ShouldResemble, []mockOp{
				{kind: "speed", duty: 128},
				{kind: "run", dir: hardware.BACKWARD},
			})
		})

		Convey("exactly zero runs BACKWARD by the sign convention", func() {
			So(d.Actuate(hardware.MOTOR_LEFT, 0), ShouldBeNil)
			So(left.history(), ShouldResemble, []mockOp{
				{kind: "speed", duty: 0},
				{kind: "run", dir: hardware.BACKWARD},
			})
		})

		Convey("magnitudes above 1 saturate at max_pwm", func() {
			So(d.Actuate(hardware.MOTOR_LEFT, 2.5), ShouldBeNil)
			So(d.Actuate(hardware.MOTOR_RIGHT, -3.0), ShouldBeNil)
			So(left.history()[0].duty, ShouldEqual, 255)
			So(right.history()[0].duty, ShouldEqual, 255)
			So(right.history()[1].dir, ShouldEqual, hardware.BACKWARD)
		})

		Convey("an unknown motor id is rejected with no hardware call", func() {
			err := d.Actuate(3, 0.5)
			So(err, ShouldHaveSameTypeAs, deverrors.InvalidMotorError{})
			So(left.history(), ShouldBeEmpty)
			So(right.history(), ShouldBeEmpty)
		})

		Convey("hardware failures propagate", func() {
			left.fail = true
			So(d.Actuate(hardware.MOTOR_LEFT, 1.0), ShouldNotBeNil)
		})
	})
}

func TestHandleTwist(t *testing.T) {
	Convey("with a drive on mock motors", t, func() {
		d, left, right := testDrive(t)

		Convey("full forward drives both motors FORWARD at max_pwm", func() {
			d.HandleTwist(1.0, 0.0)
			So(left.history(), ShouldResemble, []mockOp{
				{kind: "speed", duty: 255},
				{kind: "run", dir: hardware.FORWARD},
			})
			So(right.history(), ShouldResemble, left.history())
		})

		Convey("turn in place splits the wheels", func() {
			d.HandleTwist(0.0, 1.0)
			So(left.history(), ShouldResemble, []mockOp{
				{kind: "speed", duty: 128},
				{kind: "run", dir: hardware.BACKWARD},
			})
			So(right.history(), ShouldResemble, []mockOp{
				{kind: "speed", duty: 128},
				{kind: "run", dir: hardware.FORWARD},
			})
		})

		Convey("receipt resets the watchdog", func() {
			d.Watchdog = NewWatchdog(10 * time.Millisecond)
			time.Sleep(30 * time.Millisecond)
			So(d.Connected(), ShouldBeFalse)

			d.HandleTwist(0.1, 0.0)
			So(d.Connected(), ShouldBeTrue)
		})

		Convey("the snapshot reflects the last command", func() {
			d.HandleTwist(0.5, -0.5)
			state := d.State()
			So(state.Linear, ShouldEqual, 0.5)
			So(state.Angular, ShouldEqual, -0.5)
			So(state.Left, ShouldAlmostEqual, 0.75)
			So(state.Right, ShouldAlmostEqual, 0.25)
		})
	})
}

func TestIdle(t *testing.T) {
	Convey("idle releases both motors, duty first", t, func() {
		d, left, right := testDrive(t)

		// prior state should not matter
		d.HandleTwist(1.0, 0.0)
		left.clear()
		right.clear()

		So(d.Idle(), ShouldBeNil)
		for _, m := range []*MockMotor{left, right} {
			So(m.history(), ShouldResemble, []mockOp{
				{kind: "speed", duty: 0},
				{kind: "run", dir: hardware.RELEASE},
			})
		}
	})

	Convey("a failing motor does not mask the other", t, func() {
		d, left, right := testDrive(t)
		left.fail = true

		So(d.Idle(), ShouldNotBeNil)
		So(right.history(), ShouldResemble, []mockOp{
			{kind: "speed", duty: 0},
			{kind: "run", dir: hardware.RELEASE},
		})
	})
}

func TestControlLoop(t *testing.T) {
	Convey("the control loop idles the motors once the watchdog expires", t, func() {
		d, left, right := testDrive(t)
		d.Watchdog = NewWatchdog(20 * time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			d.Run(ctx)
		}()

		time.Sleep(100 * time.Millisecond)
		cancel()
		<-done

		So(left.history(), ShouldNotBeEmpty)
		So(left.history()[0], ShouldResemble, mockOp{kind: "speed", duty: 0})
		So(left.history()[1], ShouldResemble, mockOp{kind: "run", dir: hardware.RELEASE})
		So(right.history(), ShouldNotBeEmpty)
	})

	Convey("shutdown leaves the motors released even while connected", t, func() {
		d, left, _ := testDrive(t)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			d.Run(ctx)
		}()

		time.Sleep(20 * time.Millisecond)
		So(left.history(), ShouldBeEmpty) // still connected, no idle yet

		cancel()
		<-done
		hist := left.history()
		So(hist, ShouldNotBeEmpty)
		So(hist[len(hist)-1].dir, ShouldEqual, hardware.RELEASE)
	})
}
