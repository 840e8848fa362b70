package hardware

import (
	"sync"
	"time"
)

// PCA9685 registers used by the motor HAT.
const (
	REG_MODE1     = 0x00
	REG_MODE2     = 0x01
	REG_LED0_ON_L = 0x06
	REG_ALL_ON_L  = 0xFA
	REG_PRESCALE  = 0xFE

	MODE1_SLEEP   = 0x10
	MODE1_ALLCALL = 0x01
	MODE1_RESTART = 0x80
	MODE2_OUTDRV  = 0x04

	PWM_RESOLUTION = 4096 // 12 bit counter
	PWM_FREQUENCY  = 1600 // Hz, above audible motor whine
	HAT_OSC_CLOCK  = 25000000
)

// fullOn/fullOff use the special bit 12 of the ON/OFF registers.
const (
	pinFullOn  = 0x1000
	pinFullOff = 0x1000
)

type hatChannels struct {
	pwm, in1, in2 uint8
}

// Channel assignments for the first two DC motor headers on the HAT.
var motorChannels = map[int]hatChannels{
	MOTOR_LEFT:  {pwm: 8, in1: 10, in2: 9},
	MOTOR_RIGHT: {pwm: 13, in1: 11, in2: 12},
}

// MotorHAT drives DC motors through a PCA9685 PWM controller. All register
// traffic for the HAT goes through a single lock so concurrent motor updates
// cannot interleave mid sequence.
type MotorHAT struct {
	bus    BusInterface
	addr   int
	maxPWM int
	lock   *sync.Mutex
}

func NewMotorHAT(bus BusInterface, addr, maxPWM int) (hat *MotorHAT, err error) {
	hat = &MotorHAT{
		bus:    bus,
		addr:   addr,
		maxPWM: maxPWM,
		lock:   new(sync.Mutex),
	}

	// everything off before the outputs are configured
	if err = hat.setAllPWM(0, 0); err != nil {
		return nil, err
	}

	if err = bus.WriteReg(addr, REG_MODE2, MODE2_OUTDRV); err != nil {
		return nil, err
	}
	if err = bus.WriteReg(addr, REG_MODE1, MODE1_ALLCALL); err != nil {
		return nil, err
	}
	time.Sleep(time.Millisecond) // oscillator wake up

	if err = hat.setFrequency(PWM_FREQUENCY); err != nil {
		return nil, err
	}

	return
}

// Motor returns the DC motor bound to the given channel identifier.
func (h *MotorHAT) Motor(id int) (m *DCMotor, ok bool) {
	ch, ok := motorChannels[id]
	if !ok {
		return nil, false
	}

	return &DCMotor{
		hat:      h,
		id:       id,
		channels: ch,
	}, true
}

func (h *MotorHAT) setFrequency(freqHz int) (err error) {
	prescale := uint8(HAT_OSC_CLOCK/(PWM_RESOLUTION*freqHz) - 1)

	mode1, err := h.bus.ReadReg(h.addr, REG_MODE1)
	if err != nil {
		return
	}

	// prescale can only be written while the oscillator sleeps
	sleep := (mode1 &^ MODE1_RESTART) | MODE1_SLEEP
	if err = h.bus.WriteReg(h.addr, REG_MODE1, sleep); err != nil {
		return
	}
	if err = h.bus.WriteReg(h.addr, REG_PRESCALE, prescale); err != nil {
		return
	}
	if err = h.bus.WriteReg(h.addr, REG_MODE1, mode1); err != nil {
		return
	}
	time.Sleep(time.Millisecond)

	return h.bus.WriteReg(h.addr, REG_MODE1, mode1|MODE1_RESTART)
}

func (h *MotorHAT) setPWM(channel uint8, on, off uint16) (err error) {
	base := uint8(REG_LED0_ON_L + 4*channel)

	if err = h.bus.WriteReg(h.addr, base, uint8(on&0xFF)); err != nil {
		return
	}
	if err = h.bus.WriteReg(h.addr, base+1, uint8(on>>8)); err != nil {
		return
	}
	if err = h.bus.WriteReg(h.addr, base+2, uint8(off&0xFF)); err != nil {
		return
	}
	return h.bus.WriteReg(h.addr, base+3, uint8(off>>8))
}

func (h *MotorHAT) setAllPWM(on, off uint16) (err error) {
	if err = h.bus.WriteReg(h.addr, REG_ALL_ON_L, uint8(on&0xFF)); err != nil {
		return
	}
	if err = h.bus.WriteReg(h.addr, REG_ALL_ON_L+1, uint8(on>>8)); err != nil {
		return
	}
	if err = h.bus.WriteReg(h.addr, REG_ALL_ON_L+2, uint8(off&0xFF)); err != nil {
		return
	}
	return h.bus.WriteReg(h.addr, REG_ALL_ON_L+3, uint8(off>>8))
}

// setPin drives one of the direction channels fully high or fully low.
func (h *MotorHAT) setPin(channel uint8, high bool) error {
	if high {
		return h.setPWM(channel, pinFullOn, 0)
	}
	return h.setPWM(channel, 0, pinFullOff)
}

// DCMotor is a single DC motor header on the HAT. It implements
// MotorInterface.
type DCMotor struct {
	hat      *MotorHAT
	id       int
	channels hatChannels
}

// SetSpeed maps a duty cycle in [0, maxPWM] onto the 12 bit PWM channel.
// Values outside the range are pinned rather than rejected: the HAT must
// never see a wider pulse than maxPWM allows.
func (m *DCMotor) SetSpeed(duty int) error {
	if duty < 0 {
		duty = 0
	}
	if duty > m.hat.maxPWM {
		duty = m.hat.maxPWM
	}

	ticks := uint16(duty * (PWM_RESOLUTION - 1) / m.hat.maxPWM)

	m.hat.lock.Lock()
	defer m.hat.lock.Unlock()
	return m.hat.setPWM(m.channels.pwm, 0, ticks)
}

func (m *DCMotor) Run(dir Direction) (err error) {
	m.hat.lock.Lock()
	defer m.hat.lock.Unlock()

	switch dir {
	case FORWARD:
		if err = m.hat.setPin(m.channels.in2, false); err != nil {
			return
		}
		return m.hat.setPin(m.channels.in1, true)

	case BACKWARD:
		if err = m.hat.setPin(m.channels.in1, false); err != nil {
			return
		}
		return m.hat.setPin(m.channels.in2, true)

	case RELEASE:
		if err = m.hat.setPin(m.channels.in1, false); err != nil {
			return
		}
		return m.hat.setPin(m.channels.in2, false)
	}

	return nil
}
