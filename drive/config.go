package drive

import (
	"github.com/Masterminds/semver"
	"github.com/edaniels/golog"

	deverrors "github.com/wheelworks/godrivebot/drive/errors"
)

// CONFIG_VERSION is the schema constraint the yaml file must satisfy.
const CONFIG_VERSION = "~1.0.0"

const (
	DEFAULT_MAX_PWM   = 255
	DEFAULT_TICK_RATE = 100 // Hz
	HAT_DEFAULT_ADDR  = 0x60
)

// Params are the open loop controller gains. max_pwm caps the duty cycle
// sent to the HAT, k_speed scales the linear component and k_angular the
// angular one.
type Params struct {
	MaxPWM   int     `yaml:"max_pwm"`
	KSpeed   float64 `yaml:"k_speed"`
	KAngular float64 `yaml:"k_angular"`
}

type Config struct {
	Version string  `yaml:"version"`
	Drive   *Params `yaml:"drive"`

	TickRate int `yaml:"tick_rate"`

	Hat struct {
		Bus  string `yaml:"bus"`
		Addr int    `yaml:"addr"`
	} `yaml:"hat"`

	Broker string `yaml:"broker"`
	Topics struct {
		CmdVel string `yaml:"cmd_vel"`
		Imu    string `yaml:"imu"`
	} `yaml:"topics"`
}

// CheckVersion gates the config schema the same way node firmware is gated:
// parse the declared version and test it against the supported constraint.
func (c *Config) CheckVersion() error {
	v, err := semver.NewVersion(c.Version)
	if err != nil {
		return deverrors.ConfigVersionError{Version: c.Version, Constraint: CONFIG_VERSION}
	}

	constraint, err := semver.NewConstraint(CONFIG_VERSION)
	if err != nil {
		return err
	}

	if !constraint.Check(v) {
		return deverrors.ConfigVersionError{Version: c.Version, Constraint: CONFIG_VERSION}
	}
	return nil
}

// Normalize fills in defaults and applies the missing-group policy: a
// missing drive group is reported but not fatal, the gains fall back to zero
// so the robot stays inert instead of running with undefined parameters.
func (c *Config) Normalize(logger golog.Logger) {
	if c.Drive == nil {
		logger.Errorw("config group not found, using safe defaults", "error", deverrors.ConfigGroupError{Group: "drive"})
		c.Drive = &Params{
			MaxPWM:   DEFAULT_MAX_PWM,
			KSpeed:   0,
			KAngular: 0,
		}
	}

	if c.Drive.MaxPWM <= 0 {
		logger.Warnw("max_pwm not set, using default", "default", DEFAULT_MAX_PWM)
		c.Drive.MaxPWM = DEFAULT_MAX_PWM
	}

	if c.TickRate <= 0 {
		c.TickRate = DEFAULT_TICK_RATE
	}

	if c.Hat.Addr == 0 {
		c.Hat.Addr = HAT_DEFAULT_ADDR
	}

	if len(c.Topics.CmdVel) == 0 {
		c.Topics.CmdVel = "cmd_vel"
	}
	if len(c.Topics.Imu) == 0 {
		c.Topics.Imu = "imu"
	}
}
