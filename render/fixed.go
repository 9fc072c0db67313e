package render

import "hwgauge/proto"

// Fixed is a Q16.16 signed fixed-point value. Bar heights use it in
// percent units, so 100% is FixedFromInt(100).
type Fixed int32

const fixedShift = 16

// FixedOne is 1.0.
const FixedOne Fixed = 1 << fixedShift

func FixedFromInt(v int32) Fixed { return Fixed(v << fixedShift) }

// FixedFromPercent converts tenths of a percent.
func FixedFromPercent(p proto.Percent) Fixed {
	return Fixed((int64(p) << fixedShift) / 10)
}

func (f Fixed) Mul(o Fixed) Fixed { return Fixed((int64(f) * int64(o)) >> fixedShift) }

func (f Fixed) Div(o Fixed) Fixed {
	if o == 0 {
		return 0
	}
	return Fixed((int64(f) << fixedShift) / int64(o))
}

// Int truncates toward negative infinity.
func (f Fixed) Int() int32 { return int32(f >> fixedShift) }

// Round returns the nearest integer, halves rounding up.
func (f Fixed) Round() int32 { return int32((f + FixedOne/2) >> fixedShift) }

// Scale maps a 0..100 percent value onto 0..span pixels.
func (f Fixed) Scale(span int) int {
	return int((int64(f) * int64(span)) / (100 << fixedShift))
}
