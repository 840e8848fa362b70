package hardware

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// x/sys/unix does not export the i2c ioctls, value from linux/i2c-dev.h
const i2cSlave = 0x0703

// I2CBus talks to /dev/i2c-N directly. The slave address is latched with an
// ioctl before each transfer, so the whole select+transfer pair is held
// under the lock.
type I2CBus struct {
	fd   int
	lock *sync.Mutex
	open bool
}

func NewBus(device string) (bus *I2CBus, err error) {
	bus = &I2CBus{
		lock: new(sync.Mutex),
	}

	bus.fd, err = unix.Open(device, unix.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("unable to open %s: %w", device, err)
	}

	bus.open = true
	return
}

func (b *I2CBus) setAddr(addr int) error {
	return unix.IoctlSetInt(b.fd, i2cSlave, addr)
}

func (b *I2CBus) WriteReg(addr int, reg, value uint8) (err error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if !b.open {
		return ERR_BUS_CLOSED
	}

	if err = b.setAddr(addr); err != nil {
		return
	}

	_, err = unix.Write(b.fd, []byte{reg, value})
	return
}

func (b *I2CBus) ReadReg(addr int, reg uint8) (value uint8, err error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if !b.open {
		return 0, ERR_BUS_CLOSED
	}

	if err = b.setAddr(addr); err != nil {
		return
	}

	if _, err = unix.Write(b.fd, []byte{reg}); err != nil {
		return
	}

	buf := make([]byte, 1)
	if _, err = unix.Read(b.fd, buf); err != nil {
		return
	}

	return buf[0], nil
}

func (b *I2CBus) Close() error {
	b.lock.Lock()
	defer b.lock.Unlock()

	if !b.open {
		return nil
	}
	b.open = false
	return unix.Close(b.fd)
}
