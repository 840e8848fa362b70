package hardware

import (
	"sync"
)

// SimulatedBus keeps the HAT register file in memory so the full stack can
// run on a development machine with no /dev/i2c device present.
type SimulatedBus struct {
	lock      sync.Mutex
	registers map[int]map[uint8]uint8
}

func NewSimulatedBus() *SimulatedBus {
	return &SimulatedBus{
		registers: make(map[int]map[uint8]uint8),
	}
}

func (b *SimulatedBus) device(addr int) map[uint8]uint8 {
	dev, ok := b.registers[addr]
	if !ok {
		dev = make(map[uint8]uint8)
		b.registers[addr] = dev
	}
	return dev
}

func (b *SimulatedBus) WriteReg(addr int, reg, value uint8) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.device(addr)[reg] = value
	return nil
}

func (b *SimulatedBus) ReadReg(addr int, reg uint8) (uint8, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.device(addr)[reg], nil
}

func (b *SimulatedBus) Close() error {
	return nil
}
