package core

// Bit extraction and immediate-decoding helpers shared by the decoder and
// executor. These mirror the ARM architecture reference manual's bitfield
// pseudocode rather than any particular instruction form.

// extractBits returns the inclusive bit range [hi:lo] of v as an unsigned
// value right-aligned at bit 0.
func extractBits(v uint64, hi, lo int) uint64 {
	width := hi - lo + 1
	return (v >> uint(lo)) & ones(width)
}

// signExtend widens the low nbits of v to a full 64-bit two's complement
// value, replicating bit nbits-1.
func signExtend(v uint64, nbits int) uint64 {
	v &= ones(nbits)
	signBit := uint64(1) << uint(nbits-1)
	if v&signBit != 0 {
		return v | ^ones(nbits)
	}
	return v
}

// ones returns a mask with the low n bits set. n <= 0 yields 0, n >= 64
// yields all ones.
func ones(n int) uint64 {
	if n <= 0 {
		return 0
	}
	if n >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(n)) - 1
}

// highestSetBit returns the index of the highest set bit of v considering
// only its low nbits, or -1 if none are set.
func highestSetBit(v uint64, nbits int) int {
	for i := nbits - 1; i >= 0; i-- {
		if v&(uint64(1)<<uint(i)) != 0 {
			return i
		}
	}
	return -1
}

// ror rotates the low `size` bits of v right by r bits.
func ror(v uint64, size, r int) uint64 {
	if size <= 0 {
		return 0
	}
	r %= size
	if r < 0 {
		r += size
	}
	v &= ones(size)
	if r == 0 {
		return v
	}
	return ((v >> uint(r)) | (v << uint(size-r))) & ones(size)
}

// replicate tiles the low esize bits of pattern until `width` bits are
// filled, per the ARM manual's Replicate() pseudocode function.
func replicate(pattern uint64, esize, width int) uint64 {
	pattern &= ones(esize)
	var result uint64
	for filled := 0; filled < width; filled += esize {
		result |= pattern << uint(filled)
	}
	return result & ones(width)
}

// decodeBitMasks reconstructs the (wmask, tmask) pair used by both the
// logical-immediate forms (AND_imm, ORR_imm) and the bitfield-move forms
// (UBFM) from the ARM manual's DecodeBitMasks pseudocode. wmask is the
// rotated, replicated element pattern; tmask is the unrotated element
// pattern used to mask a bitfield's width. immediateForm additionally
// rejects the reserved imms==all-ones-within-level encoding that only
// logical-immediate forms forbid.
func decodeBitMasks(n, imms, immr uint32, size int, immediateForm bool) (wmask, tmask uint64, err error) {
	combined := (uint64(n) << 6) | uint64(^imms&0x3F)
	length := highestSetBit(combined, 7)
	if length < 1 {
		return 0, 0, &Fault{Kind: MalformedImmediate, Msg: "DecodeBitMasks: no element size fits N:~imms"}
	}
	esize := 1 << uint(length)
	if esize > size {
		return 0, 0, &Fault{Kind: MalformedImmediate, Msg: "DecodeBitMasks: element size exceeds operand width"}
	}

	levels := uint32(ones(length))
	if immediateForm && (imms&levels) == levels {
		return 0, 0, &Fault{Kind: MalformedImmediate, Msg: "DecodeBitMasks: reserved all-ones imms"}
	}

	r := int(immr & levels)
	s := int(imms & levels)
	diff := (s - r) & 0x3F
	d := diff & (esize - 1)

	welem := ones(s + 1)
	telem := ones(d + 1)

	wmask = replicate(ror(welem, esize, r), esize, size)
	tmask = replicate(telem, esize, size)
	return wmask, tmask, nil
}

// decodeBitmaskImm returns the logical-immediate value for AND_imm/ORR_imm
// as specified by the ARM manual's DecodeBitMasks, restricted to its wmask
// output with the logical-immediate reserved-encoding check applied.
func decodeBitmaskImm(n, imms, immr uint32, size int) (uint64, error) {
	wmask, _, err := decodeBitMasks(n, imms, immr, size, true)
	return wmask, err
}
