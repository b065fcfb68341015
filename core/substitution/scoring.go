package substitution

// Pure scoring helpers. They take primitive inputs so the weighting can be
// tuned and tested without touching the finder or planner.

// AvailabilityScore maps current utilization to a 0-100 availability score.
func AvailabilityScore(utilization float64) float64 {
	return clamp(100-utilization, 0, 100)
}

// CompatibilityScore rates specialty fit. overlap is the number of shared
// specialties with the original therapist, total the original's specialty
// count. A candidate with no required specialties to match scores neutral.
func CompatibilityScore(overlap, total int) float64 {
	if total == 0 {
		return 70
	}
	return clamp(40+60*float64(overlap)/float64(total), 0, 100)
}

// SpecialtyBonus is the flat compatibility bonus for a full specialty match.
const SpecialtyBonus = 10

// WorkloadImpact estimates the strain (0-100) placed on a candidate whose
// utilization would move from current to current+added. The penalty grows
// super-linearly so candidates near their cap are disproportionately
// penalized.
func WorkloadImpact(utilization, added float64) float64 {
	projected := utilization + added
	if projected <= 0 {
		return 0
	}
	return clamp(projected*projected/100, 0, 100)
}

// rankBefore orders candidates by compatibility, then availability, then
// lowest workload impact. Returns true when a ranks before b.
func rankBefore(a, b scored) bool {
	if a.cand.CompatibilityScore != b.cand.CompatibilityScore {
		return a.cand.CompatibilityScore > b.cand.CompatibilityScore
	}
	if a.cand.AvailabilityScore != b.cand.AvailabilityScore {
		return a.cand.AvailabilityScore > b.cand.AvailabilityScore
	}
	return a.cand.WorkloadImpact < b.cand.WorkloadImpact
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
