package comms

import (
	"testing"
	"time"

	"github.com/edaniels/golog"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/wheelworks/godrivebot/drive"
)

type MockDevice struct {
	linear, angular float64
	twists          int
	imu             drive.ImuSample
	imus            int
}

func (d *MockDevice) HandleTwist(linear, angular float64) {
	d.linear, d.angular = linear, angular
	d.twists++
}

func (d *MockDevice) HandleIMU(sample drive.ImuSample) {
	d.imu = sample
	d.imus++
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool { return false }

func (m *fakeMessage) Qos() byte { return 0 }

func (m *fakeMessage) Retained() bool { return false }

func (m *fakeMessage) Topic() string { return m.topic }

func (m *fakeMessage) MessageID() uint16 { return 0 }

func (m *fakeMessage) Payload() []byte { return m.payload }

func (m *fakeMessage) Ack() {}

func testConductor(t *testing.T) (*Conductor, *MockDevice) {
	t.Helper()
	device := new(MockDevice)
	return NewConductor("tcp://localhost:1883", "cmd_vel", "imu", device, golog.NewTestLogger(t)), device
}

func TestConductorTwist(t *testing.T) {
	Convey("with a conductor on a mock device", t, func() {
		c, device := testConductor(t)

		Convey("a valid twist message reaches the device", func() {
			c.receiveTwist(nil, &fakeMessage{
				topic:   "cmd_vel",
				payload: []byte(`{"linear": 0.8, "angular": -0.2}`),
			})

			So(device.twists, ShouldEqual, 1)
			So(device.linear, ShouldEqual, 0.8)
			So(device.angular, ShouldEqual, -0.2)
		})

		Convey("malformed json is dropped without reaching the device", func() {
			c.receiveTwist(nil, &fakeMessage{
				topic:   "cmd_vel",
				payload: []byte(`{"linear": `),
			})

			So(device.twists, ShouldEqual, 0)
		})

		Convey("ProcessTwist feeds the device directly", func() {
			c.ProcessTwist(TwistPayload{Linear: 1.0, Angular: 0.0})
			So(device.twists, ShouldEqual, 1)
			So(device.linear, ShouldEqual, 1.0)
		})
	})
}

func TestConductorConnect(t *testing.T) {
	Convey("a broker that is down does not block startup", t, func() {
		// port 1 is never a broker
		c := NewConductor("tcp://127.0.0.1:1", "cmd_vel", "imu", new(MockDevice), golog.NewTestLogger(t))
		c.ConnectTimeout = 100 * time.Millisecond
		defer c.Close()

		start := time.Now()
		err := c.Connect()

		So(err, ShouldEqual, ERR_BROKER_PENDING)
		So(time.Since(start), ShouldBeLessThan, 3*time.Second)
	})
}

func TestConductorImu(t *testing.T) {
	Convey("with a conductor on a mock device", t, func() {
		c, device := testConductor(t)

		Convey("an inertial sample is converted and stored", func() {
			c.receiveImu(nil, &fakeMessage{
				topic:   "imu",
				payload: []byte(`{"orientation": [0, 0, 0, 1], "angular_velocity": [0.1, 0.2, 0.3], "linear_acceleration": [0, 0, 9.81]}`),
			})

			So(device.imus, ShouldEqual, 1)
			So(device.imu.Orientation.W, ShouldEqual, 1)
			So(device.imu.AngularVelocity.Z(), ShouldAlmostEqual, 0.3)
			So(device.imu.LinearAcceleration.Z(), ShouldAlmostEqual, 9.81)
			So(device.imu.ReceivedAt.IsZero(), ShouldBeFalse)
		})

		Convey("malformed json is dropped", func() {
			c.receiveImu(nil, &fakeMessage{topic: "imu", payload: []byte(`[]`)})
			So(device.imus, ShouldEqual, 0)
		})
	})
}
