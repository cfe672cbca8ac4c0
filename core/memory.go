package core

// SectionInfo records where a named ELF section landed in the simulated
// image, for the tracing/coverage subsystem's annotations only; it plays
// no role in address translation.
type SectionInfo struct {
	Name  string
	Start uint64 // virtual address
	Size  uint64
}

// Memory is the simulator's byte-addressable linear image: a contiguous
// buffer keyed by an image-relative offset, translated from a virtual
// address by subtracting ProgramStart, per spec.md §3/§6.
type Memory struct {
	Bytes        []byte
	ProgramStart uint64
	Entry        uint64
	Sections     []SectionInfo

	// AccessCount/ReadCount/WriteCount are diagnostic counters, not part of
	// architectural state; PerformanceStatistics reads them.
	AccessCount uint64
	ReadCount   uint64
	WriteCount  uint64
}

// NewMemory allocates an image buffer of the given size for a program
// whose lowest mapped virtual address is programStart.
func NewMemory(size int, programStart uint64) *Memory {
	return &Memory{
		Bytes:        make([]byte, size),
		ProgramStart: programStart,
	}
}

// translate converts a virtual address and access length into a buffer
// offset range, enforcing invariant I4: the whole range must lie within
// [ProgramStart, ProgramStart+len(Bytes)).
func (m *Memory) translate(addr uint64, n int) (int, error) {
	if addr < m.ProgramStart {
		return 0, newFault(OutOfRangeMemory, "address 0x%X is below program start 0x%X", addr, m.ProgramStart)
	}
	off := addr - m.ProgramStart
	end := off + uint64(n)
	if end > uint64(len(m.Bytes)) {
		return 0, newFault(OutOfRangeMemory, "access [0x%X, 0x%X) exceeds image of %d bytes", addr, addr+uint64(n), len(m.Bytes))
	}
	return int(off), nil
}

// ReadBytes copies n bytes at addr into a new slice, little-endian order
// preserved as stored.
func (m *Memory) ReadBytes(addr uint64, n int) ([]byte, error) {
	off, err := m.translate(addr, n)
	if err != nil {
		return nil, err
	}
	m.AccessCount++
	m.ReadCount++
	out := make([]byte, n)
	copy(out, m.Bytes[off:off+n])
	return out, nil
}

// WriteBytes copies data into the image at addr.
func (m *Memory) WriteBytes(addr uint64, data []byte) error {
	off, err := m.translate(addr, len(data))
	if err != nil {
		return err
	}
	m.AccessCount++
	m.WriteCount++
	copy(m.Bytes[off:off+len(data)], data)
	return nil
}

// ReadByte reads a single byte.
func (m *Memory) ReadByte(addr uint64) (uint8, error) {
	off, err := m.translate(addr, 1)
	if err != nil {
		return 0, err
	}
	m.AccessCount++
	m.ReadCount++
	return m.Bytes[off], nil
}

// WriteByte writes a single byte.
func (m *Memory) WriteByte(addr uint64, v uint8) error {
	off, err := m.translate(addr, 1)
	if err != nil {
		return err
	}
	m.AccessCount++
	m.WriteCount++
	m.Bytes[off] = v
	return nil
}

// ReadUint32 reads a little-endian 32-bit word.
func (m *Memory) ReadUint32(addr uint64) (uint32, error) {
	off, err := m.translate(addr, 4)
	if err != nil {
		return 0, err
	}
	m.AccessCount++
	m.ReadCount++
	b := m.Bytes[off : off+4]
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

// WriteUint32 writes a little-endian 32-bit word.
func (m *Memory) WriteUint32(addr uint64, v uint32) error {
	off, err := m.translate(addr, 4)
	if err != nil {
		return err
	}
	m.AccessCount++
	m.WriteCount++
	b := m.Bytes[off : off+4]
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	return nil
}

// ReadUint64 reads a little-endian 64-bit doubleword.
func (m *Memory) ReadUint64(addr uint64) (uint64, error) {
	off, err := m.translate(addr, 8)
	if err != nil {
		return 0, err
	}
	m.AccessCount++
	m.ReadCount++
	b := m.Bytes[off : off+8]
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}

// WriteUint64 writes a little-endian 64-bit doubleword.
func (m *Memory) WriteUint64(addr uint64, v uint64) error {
	off, err := m.translate(addr, 8)
	if err != nil {
		return err
	}
	m.AccessCount++
	m.WriteCount++
	b := m.Bytes[off : off+8]
	for i := 0; i < 8; i++ {
		b[i] = byte(v)
		v >>= 8
	}
	return nil
}

// InRange reports whether addr lies within the mapped image, used by the
// driver's per-cycle PC-range check (spec.md §4.5) without allocating a
// Fault for the common case.
func (m *Memory) InRange(addr uint64) bool {
	return addr >= m.ProgramStart && addr-m.ProgramStart < uint64(len(m.Bytes))
}

// Size returns the size in bytes of the mapped image.
func (m *Memory) Size() int {
	return len(m.Bytes)
}
