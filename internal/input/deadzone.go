package input

import "math"

// DeadZoneThreshold is the axis magnitude at or below which callers treat
// the axis as centred.
const DeadZoneThreshold = 0.1

// DeadZone returns 0 for |v| <= DeadZoneThreshold and v otherwise. The
// sampler never applies it; engines do.
func DeadZone(v float64) float64 {
	if math.Abs(v) <= DeadZoneThreshold {
		return 0
	}
	return v
}
