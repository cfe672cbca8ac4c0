package core

// Decode classifies a 32-bit instruction word into a Decoded value per
// spec.md §4.3. Classification proceeds through a fixed sequence of
// pattern checks; the first family whose fixed bits match wins, mirroring
// the mask/value rule table the spec describes. Field decoding for each
// matched family happens inline rather than through a second pass.
func Decode(word uint32) (*Decoded, error) {
	d := &Decoded{Raw: word}
	d.SF = bit(word, 31)
	d.SizeBits = uint32(extractBits(uint64(word), 31, 30))

	if word == 0xD503201F {
		d.Op = OpNOP
		return d, nil
	}

	if op, ok := decodeDataProcessingImm(word, d); ok {
		d.Op = op
		return d, nil
	}
	if op, ok := decodeLogicalImm(word, d); ok {
		d.Op = op
		return d, nil
	}
	if op, ok := decodeBitfield(word, d); ok {
		d.Op = op
		return d, nil
	}
	if op, ok := decodeAddSubShiftedReg(word, d); ok {
		d.Op = op
		return d, nil
	}
	if op, ok := decodeLogicalShiftedReg(word, d); ok {
		d.Op = op
		return d, nil
	}
	if op, ok := decodeMoveWide(word, d); ok {
		d.Op = op
		return d, nil
	}
	if op, ok := decodeDataProcessing3Src(word, d); ok {
		d.Op = op
		return d, nil
	}
	if op, ok := decodeDataProcessing2Src(word, d); ok {
		d.Op = op
		return d, nil
	}
	if op, ok := decodeLoadStoreUnsignedImm(word, d); ok {
		d.Op = op
		return d, nil
	}
	if op, ok := decodeLoadStoreImmIndexed(word, d); ok {
		d.Op = op
		return d, nil
	}
	if op, ok := decodeLoadStoreRegOffset(word, d); ok {
		d.Op = op
		return d, nil
	}
	if op, ok := decodeLoadLiteral(word, d); ok {
		d.Op = op
		return d, nil
	}
	if op, ok := decodeLoadStorePair(word, d); ok {
		d.Op = op
		return d, nil
	}
	if op, ok := decodeBranchImm(word, d); ok {
		d.Op = op
		return d, nil
	}
	if op, ok := decodeBranchReg(word, d); ok {
		d.Op = op
		return d, nil
	}
	if op, ok := decodeCompareBranch(word, d); ok {
		d.Op = op
		return d, nil
	}
	if op, ok := decodeCondBranch(word, d); ok {
		d.Op = op
		return d, nil
	}
	if op, ok := decodeSVC(word, d); ok {
		d.Op = op
		return d, nil
	}

	return nil, newFault(UnknownInstruction, "no decoder rule matches word 0x%08X", word)
}

func bit(word uint32, n int) bool {
	return extractBits(uint64(word), n, n) == 1
}

// matches checks word's fixed bits against a 32-character pattern (MSB
// first, bit 31 leftmost) of '0', '1' and 'x' (don't care).
func matches(word uint32, pattern string) bool {
	if len(pattern) != 32 {
		return false
	}
	for i, c := range pattern {
		bitIdx := 31 - i
		b := (word >> uint(bitIdx)) & 1
		switch c {
		case '0':
			if b != 0 {
				return false
			}
		case '1':
			if b != 1 {
				return false
			}
		}
	}
	return true
}

// --- Add/subtract (immediate): x op S 100010 sh imm12 Rn Rd ---
func decodeDataProcessingImm(word uint32, d *Decoded) (Op, bool) {
	const addPat = "x00100010xxxxxxxxxxxxxxxxxxxxxxx"
	const subPat = "x10100010xxxxxxxxxxxxxxxxxxxxxxx"
	const subsPat = "x11100010xxxxxxxxxxxxxxxxxxxxxxx"

	switch {
	case matches(word, addPat):
		fillAddSubImm(word, d)
		return OpAddImm, true
	case matches(word, subsPat):
		fillAddSubImm(word, d)
		return OpSubsImm, true
	case matches(word, subPat):
		fillAddSubImm(word, d)
		return OpSubImm, true
	}
	return OpUnknown, false
}

func fillAddSubImm(word uint32, d *Decoded) {
	d.LShift = bit(word, 22)
	d.Uimm12 = uint32(extractBits(uint64(word), 21, 10))
	d.Rn = int(extractBits(uint64(word), 9, 5))
	d.Rd = int(extractBits(uint64(word), 4, 0))
}

// --- Logical (immediate): x opc 100100 N immr imms Rn Rd ---
func decodeLogicalImm(word uint32, d *Decoded) (Op, bool) {
	const andPat = "x00100100xxxxxxxxxxxxxxxxxxxxxxx"
	const orrPat = "x01100100xxxxxxxxxxxxxxxxxxxxxxx"

	fill := func() {
		d.N = uint32(extractBits(uint64(word), 22, 22))
		d.Immr = uint32(extractBits(uint64(word), 21, 16))
		d.Imms = uint32(extractBits(uint64(word), 15, 10))
		d.Rn = int(extractBits(uint64(word), 9, 5))
		d.Rd = int(extractBits(uint64(word), 4, 0))
	}

	switch {
	case matches(word, andPat):
		fill()
		return OpAndImm, true
	case matches(word, orrPat):
		fill()
		return OpOrrImm, true
	}
	return OpUnknown, false
}

// --- Bitfield: x opc 100110 N immr imms Rn Rd (opc=10 is UBFM) ---
func decodeBitfield(word uint32, d *Decoded) (Op, bool) {
	const ubfmPat = "x10100110xxxxxxxxxxxxxxxxxxxxxxx"
	if !matches(word, ubfmPat) {
		return OpUnknown, false
	}
	d.N = uint32(extractBits(uint64(word), 22, 22))
	d.Immr = uint32(extractBits(uint64(word), 21, 16))
	d.Imms = uint32(extractBits(uint64(word), 15, 10))
	d.Rn = int(extractBits(uint64(word), 9, 5))
	d.Rd = int(extractBits(uint64(word), 4, 0))
	return OpUBFM, true
}

// --- Add/subtract (shifted register): x op S 01011 shift 0 Rm imm6 Rn Rd ---
func decodeAddSubShiftedReg(word uint32, d *Decoded) (Op, bool) {
	const addPat = "x0001011xx0xxxxxxxxxxxxxxxxxxxxx"
	const subPat = "x1001011xx0xxxxxxxxxxxxxxxxxxxxx"
	const subsPat = "x1101011xx0xxxxxxxxxxxxxxxxxxxxx"

	fill := func() {
		d.Shift = ShiftKind(extractBits(uint64(word), 23, 22))
		d.Rm = int(extractBits(uint64(word), 20, 16))
		d.Shamt = uint32(extractBits(uint64(word), 15, 10))
		d.Rn = int(extractBits(uint64(word), 9, 5))
		d.Rd = int(extractBits(uint64(word), 4, 0))
	}

	switch {
	case matches(word, subsPat):
		fill()
		return OpSubsShifted, true
	case matches(word, subPat):
		fill()
		if d.Shamt == 0 {
			return OpSubReg, true
		}
		return OpSubShifted, true
	case matches(word, addPat):
		fill()
		return OpAddReg, true
	}
	return OpUnknown, false
}

// --- Logical (shifted register): x opc 01010 shift N Rm imm6 Rn Rd ---
func decodeLogicalShiftedReg(word uint32, d *Decoded) (Op, bool) {
	const orrPat = "x0101010xxxxxxxxxxxxxxxxxxxxxxxx"
	if !matches(word, orrPat) {
		return OpUnknown, false
	}
	if bit(word, 21) {
		// N=1 selects the negated (ORN) form, unimplemented.
		return OpUnknown, false
	}
	d.Shift = ShiftKind(extractBits(uint64(word), 23, 22))
	d.Rm = int(extractBits(uint64(word), 20, 16))
	d.Shamt = uint32(extractBits(uint64(word), 15, 10))
	d.Rn = int(extractBits(uint64(word), 9, 5))
	d.Rd = int(extractBits(uint64(word), 4, 0))
	return OpOrrReg, true
}

// --- Move wide immediate: x opc 100101 hw imm16 Rd (opc=10 MOVZ, 11 MOVK) ---
func decodeMoveWide(word uint32, d *Decoded) (Op, bool) {
	const movzPat = "x10100101xxxxxxxxxxxxxxxxxxxxxxx"
	const movkPat = "x11100101xxxxxxxxxxxxxxxxxxxxxxx"

	fill := func() {
		d.HW = uint32(extractBits(uint64(word), 22, 21))
		d.Imm16 = uint32(extractBits(uint64(word), 20, 5))
		d.Rd = int(extractBits(uint64(word), 4, 0))
	}

	switch {
	case matches(word, movzPat):
		fill()
		return OpMovz, true
	case matches(word, movkPat):
		fill()
		return OpMovk, true
	}
	return OpUnknown, false
}

// --- Data-processing (3 source): sf 00 11011 000 Rm o0 Ra Rn Rd ---
func decodeDataProcessing3Src(word uint32, d *Decoded) (Op, bool) {
	const pat = "x0011011000xxxxxxxxxxxxxxxxxxxxx"
	if !matches(word, pat) {
		return OpUnknown, false
	}
	if bit(word, 15) {
		// o0=1 selects MSUB, unimplemented.
		return OpUnknown, false
	}
	d.Rm = int(extractBits(uint64(word), 20, 16))
	ra := int(extractBits(uint64(word), 14, 10))
	d.Rn = int(extractBits(uint64(word), 9, 5))
	d.Rd = int(extractBits(uint64(word), 4, 0))
	if ra == 31 {
		if d.SF {
			return OpMul64, true
		}
		return OpMul32, true
	}
	d.Rt2 = ra // reuse Rt2 to carry Ra through to the executor
	return OpMadd, true
}

// --- Data-processing (2 source): sf 0 S 11010110 Rm opcode Rn Rd ---
func decodeDataProcessing2Src(word uint32, d *Decoded) (Op, bool) {
	const pat = "x0x11010110xxxxxxxxxxxxxxxxxxxxx"
	if !matches(word, pat) {
		return OpUnknown, false
	}
	opcode := extractBits(uint64(word), 15, 10)
	d.Rm = int(extractBits(uint64(word), 20, 16))
	d.Rn = int(extractBits(uint64(word), 9, 5))
	d.Rd = int(extractBits(uint64(word), 4, 0))
	switch opcode {
	case 0b000010:
		if d.SF {
			return OpUdiv64, true
		}
		return OpUdiv32, true
	case 0b000011:
		if d.SF {
			return OpSdiv64, true
		}
		return OpSdiv32, true
	}
	return OpUnknown, false
}

// --- Load/store register (unsigned immediate): size 111 0 01 opc imm12 Rn Rt ---
func decodeLoadStoreUnsignedImm(word uint32, d *Decoded) (Op, bool) {
	const pat = "xx111001xxxxxxxxxxxxxxxxxxxxxxxx"
	if !matches(word, pat) {
		return OpUnknown, false
	}
	size := extractBits(uint64(word), 31, 30)
	opc := extractBits(uint64(word), 23, 22)
	d.Uimm12 = uint32(extractBits(uint64(word), 21, 10))
	d.Rn = int(extractBits(uint64(word), 9, 5))
	d.Rt = int(extractBits(uint64(word), 4, 0))
	d.PrePost = AddrUnsignedOffset

	switch {
	case size == 0b00 && opc == 0b00:
		return OpStrbImm, true
	case size == 0b00 && opc == 0b01:
		return OpLdrbImm, true
	case (size == 0b10 || size == 0b11) && opc == 0b00:
		return OpStrImm, true
	case (size == 0b10 || size == 0b11) && opc == 0b01:
		if size == 0b11 && d.Uimm12 == 0 {
			return OpLdrRegIndirect, true
		}
		return OpLdrImm, true
	}
	return OpUnknown, false
}

// --- Load/store register (immediate pre/post-indexed): size 111 0 00 opc 0 imm9 xx Rn Rt ---
func decodeLoadStoreImmIndexed(word uint32, d *Decoded) (Op, bool) {
	const pat = "xx111000xx0xxxxxxxxxxxxxxxxxxxxx"
	if !matches(word, pat) {
		return OpUnknown, false
	}
	size := extractBits(uint64(word), 31, 30)
	opc := extractBits(uint64(word), 23, 22)
	idx := extractBits(uint64(word), 11, 10)
	if idx != 0b01 && idx != 0b11 {
		// 00 = unscaled (LDUR/STUR), 10 = unprivileged: both unimplemented.
		return OpUnknown, false
	}
	d.Simm9 = int64(signExtend(extractBits(uint64(word), 20, 12), 9))
	d.Rn = int(extractBits(uint64(word), 9, 5))
	d.Rt = int(extractBits(uint64(word), 4, 0))
	if idx == 0b01 {
		d.PrePost = AddrPostIndex
	} else {
		d.PrePost = AddrPreIndex
	}

	switch {
	case size == 0b00 && opc == 0b00:
		return OpStrbImm, true
	case size == 0b00 && opc == 0b01:
		return OpLdrbImm, true
	case (size == 0b10 || size == 0b11) && opc == 0b00:
		if idx == 0b01 {
			return OpStrPost, true
		}
		return OpStrPre, true
	case (size == 0b10 || size == 0b11) && opc == 0b01:
		return OpLdrImm, true
	}
	return OpUnknown, false
}

// --- Load/store register (register offset): size 111 0 00 opc 1 Rm option S 10 Rn Rt ---
func decodeLoadStoreRegOffset(word uint32, d *Decoded) (Op, bool) {
	const pat = "xx111000xx1xxxxxxxxx10xxxxxxxxxx"
	if !matches(word, pat) {
		return OpUnknown, false
	}
	size := extractBits(uint64(word), 31, 30)
	opc := extractBits(uint64(word), 23, 22)
	d.Rm = int(extractBits(uint64(word), 20, 16))
	d.RegOffsetShift = bit(word, 12)
	d.Rn = int(extractBits(uint64(word), 9, 5))
	d.Rt = int(extractBits(uint64(word), 4, 0))

	switch {
	case size == 0b00 && opc == 0b00:
		return OpStrbReg, true
	case size == 0b00 && opc == 0b01:
		return OpLdrbReg, true
	case (size == 0b10 || size == 0b11) && opc == 0b00:
		return OpStrReg, true
	case (size == 0b10 || size == 0b11) && opc == 0b01:
		return OpLdrReg, true
	}
	return OpUnknown, false
}

// --- Load register (literal): opc 011 0 00 imm19 Rt ---
func decodeLoadLiteral(word uint32, d *Decoded) (Op, bool) {
	const pat = "xx011000xxxxxxxxxxxxxxxxxxxxxxxx"
	if !matches(word, pat) {
		return OpUnknown, false
	}
	opc := extractBits(uint64(word), 31, 30)
	d.Imm19 = int64(signExtend(extractBits(uint64(word), 23, 5), 19))
	d.Rt = int(extractBits(uint64(word), 4, 0))
	switch opc {
	case 0b00:
		return OpLdrPc32, true
	case 0b01:
		return OpLdrPc64, true
	case 0b10:
		return OpLdrPc32s, true
	}
	return OpUnknown, false
}

// --- Load/store pair: opc 101 V prepost L imm7 Rt2 Rn Rt ---
func decodeLoadStorePair(word uint32, d *Decoded) (Op, bool) {
	const pat = "xx101xxxxxxxxxxxxxxxxxxxxxxxxxxx"
	if !matches(word, pat) {
		return OpUnknown, false
	}
	if extractBits(uint64(word), 29, 27) != 0b101 || bit(word, 26) {
		return OpUnknown, false
	}
	prepost := extractBits(uint64(word), 24, 23)
	if prepost == 0b00 {
		return OpUnknown, false
	}
	l := bit(word, 22)
	d.Simm7 = int64(signExtend(extractBits(uint64(word), 21, 15), 7))
	d.Rt2 = int(extractBits(uint64(word), 14, 10))
	d.Rn = int(extractBits(uint64(word), 9, 5))
	d.Rt = int(extractBits(uint64(word), 4, 0))
	switch prepost {
	case 0b01:
		d.PrePost = AddrPostIndex
	case 0b10:
		d.PrePost = AddrUnsignedOffset
	case 0b11:
		d.PrePost = AddrPreIndex
	}
	d.SF = bit(word, 31)   // width bit: 1 selects 64-bit transfers
	d.N = boolToBit(bit(word, 30)) // signed-load indicator, reused via N field

	if l {
		return OpLdp, true
	}
	return OpStp, true
}

func boolToBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// --- Unconditional branch (immediate): op 00101 imm26 ---
func decodeBranchImm(word uint32, d *Decoded) (Op, bool) {
	const bPat = "000101xxxxxxxxxxxxxxxxxxxxxxxxxx"
	const blPat = "100101xxxxxxxxxxxxxxxxxxxxxxxxxx"
	switch {
	case matches(word, bPat):
		d.Imm26 = int64(signExtend(extractBits(uint64(word), 25, 0), 26))
		return OpB, true
	case matches(word, blPat):
		d.Imm26 = int64(signExtend(extractBits(uint64(word), 25, 0), 26))
		return OpBL, true
	}
	return OpUnknown, false
}

// --- Unconditional branch (register), RET form: 1101011 0010 11111 000000 Rn 00000 ---
func decodeBranchReg(word uint32, d *Decoded) (Op, bool) {
	const pat = "1101011001011111000000xxxxx00000"
	if !matches(word, pat) {
		return OpUnknown, false
	}
	d.Rn = int(extractBits(uint64(word), 9, 5))
	return OpRet, true
}

// --- Compare & branch (immediate): sf 011010 op imm19 Rt ---
func decodeCompareBranch(word uint32, d *Decoded) (Op, bool) {
	const pat = "x011010xxxxxxxxxxxxxxxxxxxxxxxxx"
	if !matches(word, pat) {
		return OpUnknown, false
	}
	op := bit(word, 24)
	d.Imm19 = int64(signExtend(extractBits(uint64(word), 23, 5), 19))
	d.Rt = int(extractBits(uint64(word), 4, 0))
	if op {
		return OpCbnz, true
	}
	return OpCbz, true
}

// --- Conditional branch (immediate): 0101010 0 imm19 0 cond ---
func decodeCondBranch(word uint32, d *Decoded) (Op, bool) {
	const pat = "01010100xxxxxxxxxxxxxxxxxxx0xxxx"
	if !matches(word, pat) {
		return OpUnknown, false
	}
	d.Imm19 = int64(signExtend(extractBits(uint64(word), 23, 5), 19))
	d.Cond = Cond(extractBits(uint64(word), 3, 0))
	return OpBCond, true
}

// --- Exception generation, SVC form: 11010100 000 imm16 000 01 ---
func decodeSVC(word uint32, d *Decoded) (Op, bool) {
	const pat = "11010100000xxxxxxxxxxxxxxxx00001"
	if !matches(word, pat) {
		return OpUnknown, false
	}
	d.Imm16 = uint32(extractBits(uint64(word), 20, 5))
	return OpSVC, true
}
