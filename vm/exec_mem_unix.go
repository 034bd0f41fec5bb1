//go:build unix

package vm

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// newExecRegion copies code into a fresh anonymous mapping and flips
// it from writable to executable, never both at once.
func newExecRegion(code []byte) (*execRegion, error) {
	mem, err := unix.Mmap(-1, 0, len(code), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMapAllocFailed, err)
	}

	copy(mem, code)

	if err := unix.Mprotect(mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		_ = unix.Munmap(mem)
		return nil, fmt.Errorf("%w: %v", ErrMapProtectFailed, err)
	}

	return &execRegion{mem: mem, addr: uintptr(unsafe.Pointer(&mem[0]))}, nil
}

func releaseExecRegion(r *execRegion) error {
	return unix.Munmap(r.mem)
}
