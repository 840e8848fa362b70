package comms

import (
	"encoding/json"
	"errors"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/edaniels/golog"

	"github.com/wheelworks/godrivebot/drive"
)

const (
	CLIENT_ID       = "godrivebot"
	CONNECT_RETRY   = 5 * time.Second
	CONNECT_TIMEOUT = 5 * time.Second
	DISCONNECT_WAIT = 250 // ms
)

var (
	ERR_BROKER_PENDING = errors.New("broker not reachable yet, client keeps retrying")
)

// DeviceInterface is the slice of the drive the conductor needs. Handlers
// are fire and forget, delivery of each topic is serialized by the client.
type DeviceInterface interface {
	HandleTwist(linear, angular float64)
	HandleIMU(sample drive.ImuSample)
}

// Conductor bridges the command transport to the device. It owns the MQTT
// session and feeds every twist and inertial message into the device,
// whatever surface it arrived on.
type Conductor struct {
	Device DeviceInterface

	// ConnectTimeout bounds how long Connect waits before handing the
	// session over to the client's retry loop.
	ConnectTimeout time.Duration

	client      mqtt.Client
	cmdVel, imu string
	logger      golog.Logger
}

func NewConductor(broker, cmdVel, imu string, device DeviceInterface, logger golog.Logger) (c *Conductor) {
	c = &Conductor{
		Device:         device,
		ConnectTimeout: CONNECT_TIMEOUT,
		cmdVel:         cmdVel,
		imu:            imu,
		logger:         logger,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(CLIENT_ID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(CONNECT_RETRY)
	opts.OnConnect = func(client mqtt.Client) {
		logger.Infow("connected to broker", "broker", broker)
		if err := c.subscribe(); err != nil {
			logger.Errorw("unable to subscribe", "error", err)
		}
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Warnw("broker connection lost", "error", err)
	}

	c.client = mqtt.NewClient(opts)
	return
}

// Connect establishes the broker session. With connect retry enabled the
// token only completes on success, so the wait is bounded: a broker that is
// down at boot yields ERR_BROKER_PENDING and the client keeps dialing in
// the background while the rest of the node comes up.
func (c *Conductor) Connect() error {
	token := c.client.Connect()
	if !token.WaitTimeout(c.ConnectTimeout) {
		return ERR_BROKER_PENDING
	}
	return token.Error()
}

func (c *Conductor) subscribe() (err error) {
	if token := c.client.Subscribe(c.cmdVel, 0, c.receiveTwist); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	if token := c.client.Subscribe(c.imu, 0, c.receiveImu); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (c *Conductor) receiveTwist(client mqtt.Client, msg mqtt.Message) {
	var payload TwistPayload
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		c.logger.Errorw("invalid twist payload", "topic", msg.Topic(), "error", err)
		return
	}

	c.ProcessTwist(payload)
}

func (c *Conductor) receiveImu(client mqtt.Client, msg mqtt.Message) {
	var payload ImuPayload
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		c.logger.Errorw("invalid imu payload", "topic", msg.Topic(), "error", err)
		return
	}

	c.Device.HandleIMU(payload.Sample())
}

// ProcessTwist feeds a decoded command into the device. The websocket and
// HTTP surfaces reuse this path so every transport behaves identically.
func (c *Conductor) ProcessTwist(payload TwistPayload) {
	c.Device.HandleTwist(payload.Linear, payload.Angular)
}

func (c *Conductor) Close() {
	c.client.Disconnect(DISCONNECT_WAIT)
}
