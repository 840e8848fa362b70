package hardware

import (
	"errors"
)

var (
	ERR_BUS_CLOSED = errors.New("bus is closed")
)

// BusInterface abstracts the register-level transport to the motor HAT so
// the driver can be exercised against a mock in tests and against the
// simulator off-target.
type BusInterface interface {
	WriteReg(addr int, reg, value uint8) error
	ReadReg(addr int, reg uint8) (uint8, error)
	Close() error
}
