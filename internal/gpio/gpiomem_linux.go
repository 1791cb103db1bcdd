package gpio

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

const gpioMemSize = 4096

// gpioMem is a mapping of the GPIO register block. GPFSEL0 is at offset 0.
type gpioMem struct {
	mem  []byte
	regs []uint32
}

func openGPIOMem(path string) (*gpioMem, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_SYNC|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// The mapping stays valid after the descriptor is closed.
	defer unix.Close(fd)

	mem, err := unix.Mmap(fd, 0, gpioMemSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	// Register access must be 32-bit wide.
	regs := unsafe.Slice((*uint32)(unsafe.Pointer(&mem[0])), len(mem)/4)
	return &gpioMem{mem: mem, regs: regs}, nil
}

func (m *gpioMem) Close() error {
	if m.mem == nil {
		return nil
	}
	err := unix.Munmap(m.mem)
	m.mem, m.regs = nil, nil
	return err
}
