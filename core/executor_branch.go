package core

// Branch execution, grounded on the teacher's vm/branch.go Branch/
// BranchWithLink shape, adapted to AArch64's PC-relative word*4 offsets
// (no ARM32 pipeline +8 adjustment: AArch64 PC reads as the address of
// the instruction itself).

func execB(c *CPU, d *Decoded) {
	c.PC = uint64(int64(c.PC) + d.Imm26*4)
}

func execBL(c *CPU, d *Decoded) {
	c.X[30] = c.PC + 4
	c.PC = uint64(int64(c.PC) + d.Imm26*4)
}

func execRet(c *CPU, d *Decoded) {
	c.PC = c.ReadZR(d.Rn)
}

func execBCond(c *CPU, d *Decoded) {
	if d.Cond.Evaluate(c.APSR) {
		c.PC = uint64(int64(c.PC) + d.Imm19*4)
	} else {
		c.PC += 4
	}
}

func execCbz(c *CPU, d *Decoded, isNonZero bool) {
	width := d.width()
	v := c.ReadZR(d.Rt) & ones(width)
	taken := v == 0
	if isNonZero {
		taken = !taken
	}
	if taken {
		c.PC = uint64(int64(c.PC) + d.Imm19*4)
	} else {
		c.PC += 4
	}
}
