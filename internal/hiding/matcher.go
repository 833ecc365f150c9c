package hiding

import (
	"math"

	"limbrun/internal/limb"
)

// AngleMatcher accepts a pose when every segment is within Tolerance
// degrees of the target silhouette.
type AngleMatcher struct {
	Silhouettes [][limb.Count]float64
	Tolerance   float64
}

// DefaultMatcher returns three silhouettes: arms wide, a lunge, and a
// crouch with the head tilted.
func DefaultMatcher() *AngleMatcher {
	return &AngleMatcher{
		Silhouettes: [][limb.Count]float64{
			{-35, 35, 0, 0, 0},
			{30, -30, -25, 25, 0},
			{0, 0, 35, -35, 20},
		},
		Tolerance: 15,
	}
}

// Targets returns the number of silhouettes.
func (m *AngleMatcher) Targets() int { return len(m.Silhouettes) }

// Match reports whether pose fits silhouette target.
func (m *AngleMatcher) Match(target int, pose Pose) bool {
	if target < 0 || target >= len(m.Silhouettes) {
		return false
	}
	sil := m.Silhouettes[target]
	for _, s := range limb.All {
		if math.Abs(pose[s].Angle-sil[s]) > m.Tolerance {
			return false
		}
	}
	return true
}
