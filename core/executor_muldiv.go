package core

// Multiply, multiply-add and divide execution, grounded on the teacher's
// vm/multiply.go Rd/Rm/Rs validation shape, generalized to AArch64's
// three-source and two-source register forms.

func execMadd(c *CPU, d *Decoded) {
	ra := c.ReadZR(d.Rt2)
	rn := c.ReadZR(d.Rn)
	rm := c.ReadZR(d.Rm)
	result := (ra + rn*rm) & d.mask()
	c.WriteWidth(d.Rd, result, d.SF)
}

func execMul(c *CPU, d *Decoded) {
	result := (c.ReadZR(d.Rn) * c.ReadZR(d.Rm)) & d.mask()
	c.WriteWidth(d.Rd, result, d.SF)
}

// execUdiv implements unsigned division with the architectural rule that
// division by zero yields zero rather than trapping.
func execUdiv(c *CPU, d *Decoded) {
	divisor := c.ReadZR(d.Rm) & d.mask()
	var result uint64
	if divisor != 0 {
		result = (c.ReadZR(d.Rn) & d.mask()) / divisor
	}
	c.WriteWidth(d.Rd, result, d.SF)
}

// execSdiv implements signed division at the operand width, truncating
// toward zero, with division by zero yielding zero.
func execSdiv(c *CPU, d *Decoded) {
	width := d.width()
	divisor := int64(signExtend(c.ReadZR(d.Rm), width))
	var result uint64
	if divisor != 0 {
		dividend := int64(signExtend(c.ReadZR(d.Rn), width))
		result = uint64(dividend/divisor) & ones(width)
	}
	c.WriteWidth(d.Rd, result, d.SF)
}
