package core

// execMovz loads imm16 into the halfword selected by HW, zeroing the rest
// of the destination register.
func execMovz(c *CPU, d *Decoded) {
	result := uint64(d.Imm16) << (16 * d.HW)
	c.WriteWidth(d.Rd, result, d.SF)
}

// execMovk loads imm16 into the halfword selected by HW, leaving the rest
// of the destination register unchanged.
func execMovk(c *CPU, d *Decoded) {
	shift := 16 * d.HW
	mask := uint64(0xFFFF) << shift
	cur := c.ReadZR(d.Rd) & d.mask()
	result := (cur &^ mask) | (uint64(d.Imm16) << shift)
	c.WriteWidth(d.Rd, result, d.SF)
}
