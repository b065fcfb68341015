package capacity

// Config defines validation thresholds. All ratios are fractions of the
// configured maximum, all utilization cutoffs are percentages.
type Config struct {
	// WarningRatio marks the band below a limit where violations are
	// reported as warnings instead of criticals.
	WarningRatio float64 `json:"warning_ratio"`
	// RiskCritical, RiskHigh and RiskMedium are projected-utilization
	// cutoffs for the capacity-impact risk level.
	RiskCritical float64 `json:"risk_critical"`
	RiskHigh     float64 `json:"risk_high"`
	RiskMedium   float64 `json:"risk_medium"`
	// RedistributionThreshold triggers a workload_redistribution
	// recommendation even when the assignment is valid.
	RedistributionThreshold float64 `json:"redistribution_threshold"`
	// SpecialtyWeight and HeadroomWeight tune alternative ranking.
	SpecialtyWeight float64 `json:"specialty_weight"`
	HeadroomWeight  float64 `json:"headroom_weight"`
	WorkingDays     int     `json:"working_days"`
}

// SetDefaults fills unset fields with sensible values.
func (c *Config) SetDefaults() {
	if c.WarningRatio <= 0 {
		c.WarningRatio = 0.90
	}
	if c.RiskCritical <= 0 {
		c.RiskCritical = 95
	}
	if c.RiskHigh <= 0 {
		c.RiskHigh = 85
	}
	if c.RiskMedium <= 0 {
		c.RiskMedium = 70
	}
	if c.RedistributionThreshold <= 0 {
		c.RedistributionThreshold = 85
	}
	if c.SpecialtyWeight <= 0 {
		c.SpecialtyWeight = 10
	}
	if c.HeadroomWeight <= 0 {
		c.HeadroomWeight = 2
	}
	if c.WorkingDays <= 0 {
		c.WorkingDays = 5
	}
}
