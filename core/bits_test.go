package core

import "testing"

func TestSignExtend(t *testing.T) {
	cases := []struct {
		v     uint64
		nbits int
		want  uint64
	}{
		{0x7F, 8, 0x7F},
		{0x80, 8, 0xFFFFFFFFFFFFFF80},
		{0x1FF, 9, 0xFFFFFFFFFFFFFFFF},
		{0, 19, 0},
	}
	for _, c := range cases {
		if got := signExtend(c.v, c.nbits); got != c.want {
			t.Errorf("signExtend(0x%X, %d) = 0x%X, want 0x%X", c.v, c.nbits, got, c.want)
		}
	}
}

func TestRor(t *testing.T) {
	if got := ror(0b0001, 4, 1); got != 0b1000 {
		t.Errorf("ror(0b0001,4,1) = %b, want 1000", got)
	}
	if got := ror(0b1000, 4, 0); got != 0b1000 {
		t.Errorf("ror with r=0 should be identity, got %b", got)
	}
}

func TestReplicate(t *testing.T) {
	if got := replicate(0b1, 1, 4); got != 0b1111 {
		t.Errorf("replicate(1,1,4) = %b, want 1111", got)
	}
	if got := replicate(0b10, 2, 8); got != 0b10101010 {
		t.Errorf("replicate(0b10,2,8) = %b, want 10101010", got)
	}
}

// DecodeBitMasks for ORR_imm producing the widest 32-bit run of ones: N=0,
// imms=0b011110 (length 5, esize 32, s=30), immr=0 gives wmask = 0x7FFFFFFF.
// An all-ones element (imms=0b011111) is the reserved encoding and is rejected.
func TestDecodeBitmaskImm31Ones32(t *testing.T) {
	v, err := decodeBitmaskImm(0, 0b011110, 0, 32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 0x7FFFFFFF {
		t.Fatalf("got 0x%X, want 0x7FFFFFFF", v)
	}
}

// The reserved immediate-form encoding (imms all-ones within its element
// size) must be rejected for AND/ORR immediate but is legal for UBFM.
func TestDecodeBitMasksRejectsReservedImmediateForm(t *testing.T) {
	_, _, err := decodeBitMasks(1, 0b111111, 0, 64, true)
	if err == nil {
		t.Fatalf("expected a reserved-encoding error")
	}
	if _, _, err := decodeBitMasks(1, 0b111111, 0, 64, false); err != nil {
		t.Fatalf("UBFM form should accept imms=all-ones: %v", err)
	}
}
