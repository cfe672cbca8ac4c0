package core

// Load/store execution, grounded on the teacher's vm/inst_memory.go
// addressing-mode computation (pre/post-index writeback, overflow-checked
// address arithmetic) and cross-checked against original_source's
// ldrb_i/strb_i (single function folding unsigned-offset and indexed
// forms) and str_64pre/str_64post/str_32pre/str_32post (separate
// functions per indexed submode, which is why STR_pre/STR_post are
// distinct opcode tags while LDR_imm and the byte forms are not).

// scaleFor returns the transfer size in bytes for the single-register
// load/store forms, keyed on the size/sizebits field (bits 31:30): 10
// selects a 32-bit word, 11 a 64-bit doubleword. This is distinct from
// d.SF (bit 31 alone), which both of those sizes set.
func scaleFor(sizeBits uint32) uint64 {
	if sizeBits == 0b11 {
		return 8
	}
	return 4
}

// scaleForWidth is the pair-form counterpart of scaleFor: LDP/STP select
// 32- vs 64-bit elements with the bit this package already tracks as
// d.SF (bit 31 of the pair encoding), not the size/sizebits field.
func scaleForWidth(is64 bool) uint64 {
	if is64 {
		return 8
	}
	return 4
}

func is64BitTransfer(sizeBits uint32) bool {
	return sizeBits == 0b11
}

// indexedByteAddr computes the access address and the (possibly updated)
// base register value for the folded immediate addressing modes used by
// LDRB_imm, STRB_imm and LDR_imm, applying writeback per d.PrePost.
func indexedByteAddr(c *CPU, d *Decoded, unscaledOffset int64, unsignedOffset uint64) (addr uint64, writeback func()) {
	base := c.ReadOrSP(d.Rn)
	switch d.PrePost {
	case AddrUnsignedOffset:
		return base + unsignedOffset, func() {}
	case AddrPreIndex:
		newBase := uint64(int64(base) + unscaledOffset)
		return newBase, func() { c.WriteOrSP(d.Rn, newBase) }
	case AddrPostIndex:
		newBase := uint64(int64(base) + unscaledOffset)
		return base, func() { c.WriteOrSP(d.Rn, newBase) }
	}
	return base, func() {}
}

func execLdrbImm(c *CPU, m *Memory, d *Decoded) error {
	addr, writeback := indexedByteAddr(c, d, d.Simm9, uint64(d.Uimm12))
	v, err := m.ReadByte(addr)
	if err != nil {
		return err
	}
	writeback()
	c.WriteZR(d.Rt, uint64(v))
	return nil
}

func execStrbImm(c *CPU, m *Memory, d *Decoded) error {
	addr, writeback := indexedByteAddr(c, d, d.Simm9, uint64(d.Uimm12))
	if err := m.WriteByte(addr, byte(c.ReadZR(d.Rt))); err != nil {
		return err
	}
	writeback()
	return nil
}

func execLdrbReg(c *CPU, m *Memory, d *Decoded) error {
	addr := c.ReadOrSP(d.Rn) + c.ReadZR(d.Rm)
	v, err := m.ReadByte(addr)
	if err != nil {
		return err
	}
	c.WriteZR(d.Rt, uint64(v))
	return nil
}

func execStrbReg(c *CPU, m *Memory, d *Decoded) error {
	addr := c.ReadOrSP(d.Rn) + c.ReadZR(d.Rm)
	return m.WriteByte(addr, byte(c.ReadZR(d.Rt)))
}

func execLdrImm(c *CPU, m *Memory, d *Decoded) error {
	scale := scaleFor(d.SizeBits)
	addr, writeback := indexedByteAddr(c, d, d.Simm9, uint64(d.Uimm12)*scale)
	var v uint64
	var err error
	if is64BitTransfer(d.SizeBits) {
		v, err = m.ReadUint64(addr)
	} else {
		var v32 uint32
		v32, err = m.ReadUint32(addr)
		v = uint64(v32)
	}
	if err != nil {
		return err
	}
	writeback()
	c.WriteZR(d.Rt, v)
	return nil
}

func execLdrRegIndirect(c *CPU, m *Memory, d *Decoded) error {
	addr := c.ReadOrSP(d.Rn)
	v, err := m.ReadUint64(addr)
	if err != nil {
		return err
	}
	c.WriteZR(d.Rt, v)
	return nil
}

func execStrImm(c *CPU, m *Memory, d *Decoded) error {
	scale := scaleFor(d.SizeBits)
	addr := c.ReadOrSP(d.Rn) + uint64(d.Uimm12)*scale
	return storeWidth(m, addr, c.ReadZR(d.Rt), is64BitTransfer(d.SizeBits))
}

func execStrIndexed(c *CPU, m *Memory, d *Decoded, pre bool) error {
	base := c.ReadOrSP(d.Rn)
	addr := base
	if pre {
		addr = uint64(int64(base) + d.Simm9)
	}
	if err := storeWidth(m, addr, c.ReadZR(d.Rt), is64BitTransfer(d.SizeBits)); err != nil {
		return err
	}
	newBase := uint64(int64(base) + d.Simm9)
	c.WriteOrSP(d.Rn, newBase)
	return nil
}

func storeWidth(m *Memory, addr, v uint64, sf bool) error {
	if sf {
		return m.WriteUint64(addr, v)
	}
	return m.WriteUint32(addr, uint32(v))
}

func regOffsetAddr(c *CPU, d *Decoded, scale uint64) uint64 {
	rm := c.ReadZR(d.Rm)
	if d.RegOffsetShift {
		rm <<= trailingScaleShift(scale)
	}
	return c.ReadOrSP(d.Rn) + rm
}

func trailingScaleShift(scale uint64) uint {
	shift := uint(0)
	for scale > 1 {
		scale >>= 1
		shift++
	}
	return shift
}

func execLdrReg(c *CPU, m *Memory, d *Decoded) error {
	addr := regOffsetAddr(c, d, scaleFor(d.SizeBits))
	var v uint64
	var err error
	if is64BitTransfer(d.SizeBits) {
		v, err = m.ReadUint64(addr)
	} else {
		var v32 uint32
		v32, err = m.ReadUint32(addr)
		v = uint64(v32)
	}
	if err != nil {
		return err
	}
	c.WriteZR(d.Rt, v)
	return nil
}

func execStrReg(c *CPU, m *Memory, d *Decoded) error {
	addr := regOffsetAddr(c, d, scaleFor(d.SizeBits))
	return storeWidth(m, addr, c.ReadZR(d.Rt), is64BitTransfer(d.SizeBits))
}

// execLdrPc loads a PC-relative literal. signed selects sign-extension of
// a 32-bit value into the full 64-bit destination (LDR_pc32s).
func execLdrPc(c *CPU, m *Memory, d *Decoded, is64 bool, signed bool) error {
	addr := d.pcRelTarget(c)
	if is64 {
		v, err := m.ReadUint64(addr)
		if err != nil {
			return err
		}
		c.WriteZR(d.Rt, v)
		return nil
	}
	v32, err := m.ReadUint32(addr)
	if err != nil {
		return err
	}
	if signed {
		c.WriteZR(d.Rt, signExtend(uint64(v32), 32))
	} else {
		c.WriteZR(d.Rt, uint64(v32))
	}
	return nil
}

func (d *Decoded) pcRelTarget(c *CPU) uint64 {
	return uint64(int64(c.PC) + d.Imm19*4)
}

// execLdp/execStp implement the load/store pair forms. The signed variant
// (N==1, 32-bit elements) sign-extends each loaded word into its 64-bit
// destination register, correcting the REDESIGN-flagged bug where the
// original shared the unsigned path unconditionally.
func execLdp(c *CPU, m *Memory, d *Decoded) error {
	elemSize := scaleForWidth(d.SF)
	addr, writeback := pairAddr(c, d, elemSize)
	signed := d.N == 1 && !d.SF

	v1, err := readPairElem(m, addr, d.SF, signed)
	if err != nil {
		return err
	}
	v2, err := readPairElem(m, addr+elemSize, d.SF, signed)
	if err != nil {
		return err
	}
	writeback()
	c.WriteZR(d.Rt, v1)
	c.WriteZR(d.Rt2, v2)
	return nil
}

func readPairElem(m *Memory, addr uint64, is64, signed bool) (uint64, error) {
	if is64 {
		return m.ReadUint64(addr)
	}
	v32, err := m.ReadUint32(addr)
	if err != nil {
		return 0, err
	}
	if signed {
		return signExtend(uint64(v32), 32), nil
	}
	return uint64(v32), nil
}

func execStp(c *CPU, m *Memory, d *Decoded) error {
	elemSize := scaleForWidth(d.SF)
	addr, writeback := pairAddr(c, d, elemSize)

	v1 := c.ReadZR(d.Rt)
	v2 := c.ReadZR(d.Rt2)
	if err := storeWidth(m, addr, v1, d.SF); err != nil {
		return err
	}
	if err := storeWidth(m, addr+elemSize, v2, d.SF); err != nil {
		return err
	}
	writeback()
	return nil
}

func pairAddr(c *CPU, d *Decoded, elemSize uint64) (addr uint64, writeback func()) {
	base := c.ReadOrSP(d.Rn)
	offset := d.Simm7 * int64(elemSize)
	switch d.PrePost {
	case AddrUnsignedOffset:
		return uint64(int64(base) + offset), func() {}
	case AddrPreIndex:
		newBase := uint64(int64(base) + offset)
		return newBase, func() { c.WriteOrSP(d.Rn, newBase) }
	case AddrPostIndex:
		newBase := uint64(int64(base) + offset)
		return base, func() { c.WriteOrSP(d.Rn, newBase) }
	}
	return base, func() {}
}
