package midi

import "math"

// ValueToFloat maps a 7-bit controller value to 0..1.
func ValueToFloat(v int) float64 {
	return float64(clamp(v, 0, 127)) / 127
}

// FloatToValue maps 0..1 back to a 7-bit controller value. Round-tripping a
// value through ValueToFloat is exact; round-tripping an arbitrary float is
// accurate to one step.
func FloatToValue(f float64) int {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return int(math.Round(f * 127))
}
