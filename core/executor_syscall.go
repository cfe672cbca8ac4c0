package core

import "io"

// Syscall numbers recognized by SVC, per spec.md §4.4: the AArch64 Linux
// values, not the ARM32 ones the teacher's vm/syscall.go dispatches on.
const (
	SyscallRead  = 63
	SyscallWrite = 64
	SyscallExit  = 93
)

// execSVC dispatches the syscall named in X8, following the teacher's
// vm/syscall.go split between VM-integrity failures (a memory Fault,
// which is fatal) and expected operation failures, which are reported
// back to the caller in X0 rather than halting the core. Unrecognized
// syscall numbers are non-fatal: X0 is set to -1 and execution continues,
// since an unimplemented syscall is a program behavior, not a VM defect.
func execSVC(c *CPU, m *Memory, stdin io.Reader, stdout io.Writer) error {
	switch c.X[8] {
	case SyscallRead:
		return sysRead(c, m, stdin)
	case SyscallWrite:
		return sysWrite(c, m, stdout)
	case SyscallExit:
		c.Running = false
		return nil
	default:
		c.X[0] = ^uint64(0) // -1
		return nil
	}
}

// sysRead implements read(fd, buf, count) for fd==0 only. Bytes are read
// one at a time so a short read (EOF) still returns the partial count,
// matching read(2)'s contract; the original implementation's habit of
// NUL-terminating the buffer at the read count is preserved here for
// programs that treat the buffer as a C string.
func sysRead(c *CPU, m *Memory, stdin io.Reader) error {
	fd := c.X[0]
	addr := c.X[1]
	count := c.X[2]
	if fd != 0 {
		c.X[0] = ^uint64(0)
		return nil
	}

	buf := make([]byte, 1)
	var n uint64
	for n < count {
		read, err := stdin.Read(buf)
		if read > 0 {
			if werr := m.WriteByte(addr+n, buf[0]); werr != nil {
				return werr
			}
			n++
		}
		if err != nil {
			break
		}
	}
	if n < count {
		if werr := m.WriteByte(addr+n, 0); werr != nil {
			return werr
		}
	}
	c.X[0] = n
	return nil
}

// sysWrite implements write(fd, buf, count) for fd==1 and fd==2, both
// directed at the simulator's configured stdout sink.
func sysWrite(c *CPU, m *Memory, stdout io.Writer) error {
	fd := c.X[0]
	addr := c.X[1]
	count := c.X[2]
	if fd != 1 && fd != 2 {
		c.X[0] = ^uint64(0)
		return nil
	}
	data, err := m.ReadBytes(addr, int(count))
	if err != nil {
		return err
	}
	written, werr := stdout.Write(data)
	if werr != nil {
		c.X[0] = ^uint64(0)
		return nil
	}
	c.X[0] = uint64(written)
	return nil
}
