// Package capacity admits, rejects or flags assignment requests against a
// therapist's configured limits, and sequences bulk batches of them under a
// priority order and a wall-clock budget.
package capacity

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Alnumo/therapy-engine/core/logger"
	"github.com/Alnumo/therapy-engine/core/model"
	"github.com/Alnumo/therapy-engine/core/store"
	"github.com/Alnumo/therapy-engine/core/workload"
	"github.com/Alnumo/therapy-engine/internal/eventbus"
)

// Validator checks assignment requests against therapist capacity.
type Validator struct {
	calc        *workload.Calculator
	therapists  store.TherapistStore
	enrollments store.EnrollmentStore
	cfg         Config
	bus         eventbus.EventBus
	log         logger.Logger
	now         func() time.Time
}

// NewValidator creates a Validator. bus may be nil.
func NewValidator(calc *workload.Calculator, therapists store.TherapistStore, enrollments store.EnrollmentStore, cfg Config, bus eventbus.EventBus, log logger.Logger) *Validator {
	cfg.SetDefaults()
	return &Validator{calc: calc, therapists: therapists, enrollments: enrollments, cfg: cfg, bus: bus, log: log, now: time.Now}
}

// ValidateAssignment validates one request. Data-unavailable failures come
// back as Success=false; business-rule violations come back through IsValid
// and Errors so batch callers can keep processing.
func (v *Validator) ValidateAssignment(ctx context.Context, req model.AssignmentRequest) model.CapacityValidationResult {
	res := v.validate(ctx, req, true)
	validationsTotal.WithLabelValues(outcomeLabel(res)).Inc()
	if res.Success {
		projectedUtilization.WithLabelValues(req.TherapistID).Set(res.Impact.ProjectedUtilization)
	}
	if v.bus != nil {
		v.bus.Publish(eventbus.ValidationEvent{
			TherapistID:          req.TherapistID,
			StudentID:            req.StudentID,
			Valid:                res.IsValid,
			ProjectedUtilization: res.Impact.ProjectedUtilization,
			Time:                 v.now(),
		})
	}
	return res
}

func outcomeLabel(res model.CapacityValidationResult) string {
	switch {
	case !res.Success:
		return "data_unavailable"
	case res.IsValid:
		return "valid"
	default:
		return "invalid"
	}
}

// validate runs the full check. searchAlternatives is false when validating
// candidate therapists, so alternative search never recurses.
func (v *Validator) validate(ctx context.Context, req model.AssignmentRequest, searchAlternatives bool) model.CapacityValidationResult {
	th, err := v.therapists.Therapist(ctx, req.TherapistID)
	if err != nil {
		return model.CapacityValidationResult{Success: false, Error: fmt.Sprintf("therapist %s unavailable: %v", req.TherapistID, err)}
	}
	current, err := v.calc.Compute(ctx, req.TherapistID, v.now())
	if err != nil {
		// Never fall back to a zero workload: that would silently
		// under-report over-capacity risk.
		return model.CapacityValidationResult{Success: false, Error: err.Error()}
	}

	res := model.CapacityValidationResult{Success: true}

	addHours := req.WeeklyHours()
	addSessions := req.SessionsPerWeek
	if req.SessionsPerWeek <= 0 || req.SessionDurationMinutes <= 0 {
		// Anomalous requests are surfaced, not rejected.
		res.Errors = append(res.Errors, model.ValidationError{
			Dimension: model.DimRequestShape,
			Severity:  model.SeverityCritical,
			Message: model.BilingualText{
				En: "sessions per week and session duration must be positive",
				Ar: "يجب أن يكون عدد الجلسات الأسبوعية ومدة الجلسة قيمًا موجبة",
			},
		})
		if addHours < 0 {
			addHours = 0
		}
		if addSessions < 0 {
			addSessions = 0
		}
	}

	newStudent, err := v.isNewStudent(ctx, req)
	if err != nil {
		return model.CapacityValidationResult{Success: false, Error: err.Error()}
	}

	projected := current
	projected.WeeklyHours += addHours
	projected.SessionsPerWeek += addSessions
	if newStudent {
		projected.ActiveStudents++
	}
	projected.DailyHoursAvg = projected.WeeklyHours / float64(v.cfg.WorkingDays)
	if th.Capacity.MaxWeeklyHours > 0 {
		projected.UtilizationPercent = projected.WeeklyHours / th.Capacity.MaxWeeklyHours * 100.0
	}

	res.Errors = append(res.Errors, v.checkDimensions(th, current, projected, req)...)
	res.IsValid = len(res.CriticalErrors()) == 0
	res.Impact = v.impact(th, current, projected)

	if !res.IsValid && searchAlternatives {
		res.Alternatives = v.findAlternatives(ctx, th, req)
	}
	if projected.UtilizationPercent >= v.cfg.RedistributionThreshold {
		res.Recommendations = append(res.Recommendations, redistributionRecommendation(th, projected))
	}
	return res
}

// checkDimensions compares the projection against every configured limit.
// Exceeding a maximum is critical; landing within the warning band is a
// warning only.
func (v *Validator) checkDimensions(th model.Therapist, current, projected model.Workload, req model.AssignmentRequest) []model.ValidationError {
	var errs []model.ValidationError

	check := func(dim string, cur, proj, limit float64, en, ar string) {
		if limit <= 0 {
			return
		}
		e := model.ValidationError{Dimension: dim, Current: cur, Projected: proj, Limit: limit,
			Message: model.BilingualText{En: en, Ar: ar}}
		switch {
		case proj > limit:
			e.Severity = model.SeverityCritical
			errs = append(errs, e)
		case proj >= limit*v.cfg.WarningRatio:
			e.Severity = model.SeverityWarning
			errs = append(errs, e)
		}
	}

	cap := th.Capacity
	check(model.DimWeeklyHours, current.WeeklyHours, projected.WeeklyHours, cap.MaxWeeklyHours,
		fmt.Sprintf("projected weekly hours %.1f against maximum %.1f", projected.WeeklyHours, cap.MaxWeeklyHours),
		fmt.Sprintf("ساعات العمل الأسبوعية المتوقعة %.1f مقابل الحد الأقصى %.1f", projected.WeeklyHours, cap.MaxWeeklyHours))
	check(model.DimDailyHours, current.DailyHoursAvg, projected.DailyHoursAvg, cap.MaxDailyHours,
		fmt.Sprintf("projected daily hours %.1f against maximum %.1f", projected.DailyHoursAvg, cap.MaxDailyHours),
		fmt.Sprintf("ساعات العمل اليومية المتوقعة %.1f مقابل الحد الأقصى %.1f", projected.DailyHoursAvg, cap.MaxDailyHours))
	check(model.DimConcurrentStudents, float64(current.ActiveStudents), float64(projected.ActiveStudents), float64(cap.MaxConcurrentStudents),
		fmt.Sprintf("projected student count %d against maximum %d", projected.ActiveStudents, cap.MaxConcurrentStudents),
		fmt.Sprintf("عدد الطلاب المتوقع %d مقابل الحد الأقصى %d", projected.ActiveStudents, cap.MaxConcurrentStudents))

	sessionsPerDay := math.Ceil(float64(projected.SessionsPerWeek) / float64(v.cfg.WorkingDays))
	currentPerDay := math.Ceil(float64(current.SessionsPerWeek) / float64(v.cfg.WorkingDays))
	check(model.DimSessionsPerDay, currentPerDay, sessionsPerDay, float64(cap.MaxSessionsPerDay),
		fmt.Sprintf("projected sessions per day %.0f against maximum %d", sessionsPerDay, cap.MaxSessionsPerDay),
		fmt.Sprintf("عدد الجلسات اليومية المتوقع %.0f مقابل الحد الأقصى %d", sessionsPerDay, cap.MaxSessionsPerDay))

	for _, spec := range req.RequiredSpecialties {
		if !th.HasSpecialty(spec) {
			errs = append(errs, model.ValidationError{
				Dimension: model.DimSpecialtyMatch,
				Severity:  model.SeverityCritical,
				Message: model.BilingualText{
					En: fmt.Sprintf("therapist lacks required specialty %q", spec),
					Ar: fmt.Sprintf("المعالج لا يمتلك التخصص المطلوب %q", spec),
				},
			})
		}
	}
	return errs
}

func (v *Validator) impact(th model.Therapist, current, projected model.Workload) model.CapacityImpact {
	imp := model.CapacityImpact{
		CurrentUtilization:   current.UtilizationPercent,
		ProjectedUtilization: projected.UtilizationPercent,
		RemainingWeeklyHours: projected.RemainingWeeklyHours(th.Capacity),
	}
	if th.Capacity.MaxConcurrentStudents > 0 {
		imp.RemainingStudentSlots = th.Capacity.MaxConcurrentStudents - projected.ActiveStudents
	}
	switch {
	case projected.UtilizationPercent >= v.cfg.RiskCritical:
		imp.Risk = model.RiskCritical
	case projected.UtilizationPercent >= v.cfg.RiskHigh:
		imp.Risk = model.RiskHigh
	case projected.UtilizationPercent >= v.cfg.RiskMedium:
		imp.Risk = model.RiskMedium
	default:
		imp.Risk = model.RiskLow
	}
	return imp
}

// isNewStudent reports whether the student is not yet among the therapist's
// active enrollments.
func (v *Validator) isNewStudent(ctx context.Context, req model.AssignmentRequest) (bool, error) {
	enrollments, err := v.enrollments.EnrollmentsByTherapist(ctx, req.TherapistID, model.EnrollmentActive)
	if err != nil {
		return false, fmt.Errorf("enrollments unavailable for therapist %s: %w", req.TherapistID, err)
	}
	for _, e := range enrollments {
		if e.StudentID == req.StudentID {
			return false, nil
		}
	}
	return true, nil
}

// findAlternatives validates the same request against every other active
// therapist with matching specialties and returns the passing ones ranked by
// compatibility. Candidates inside the warning band stay eligible but rank
// below clean ones.
func (v *Validator) findAlternatives(ctx context.Context, original model.Therapist, req model.AssignmentRequest) []model.AlternativeAssignment {
	all, err := v.therapists.ActiveTherapists(ctx)
	if err != nil {
		v.log.Warnf("alternative search skipped: %v", err)
		return nil
	}
	required := req.RequiredSpecialties
	if len(required) == 0 {
		required = original.Specialties
	}

	var out []model.AlternativeAssignment
	for _, cand := range all {
		if cand.ID == original.ID || !cand.Active {
			continue
		}
		if len(required) > 0 && cand.SpecialtyOverlap(required) == 0 {
			continue
		}
		candReq := req
		candReq.TherapistID = cand.ID
		res := v.validate(ctx, candReq, false)
		if !res.Success || !res.IsValid {
			continue
		}
		warning := false
		for _, e := range res.Errors {
			if e.Severity == model.SeverityWarning {
				warning = true
				break
			}
		}
		overlap := float64(cand.SpecialtyOverlap(required))
		headroom := res.Impact.RemainingWeeklyHours
		out = append(out, model.AlternativeAssignment{
			TherapistID:        cand.ID,
			TherapistName:      cand.Name,
			CompatibilityScore: overlap*v.cfg.SpecialtyWeight + headroom*v.cfg.HeadroomWeight,
			HeadroomHours:      headroom,
			WarningLevel:       warning,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].WarningLevel != out[j].WarningLevel {
			return !out[i].WarningLevel
		}
		return out[i].CompatibilityScore > out[j].CompatibilityScore
	})
	return out
}

func redistributionRecommendation(th model.Therapist, projected model.Workload) model.Recommendation {
	return model.Recommendation{
		Type:     "workload_redistribution",
		Priority: model.PriorityMedium,
		Message: model.BilingualText{
			En: fmt.Sprintf("therapist %s would reach %.0f%% utilization; consider shifting students to less-loaded peers", th.Name, projected.UtilizationPercent),
			Ar: fmt.Sprintf("سيصل المعالج %s إلى نسبة استخدام %.0f%%؛ يُنصح بنقل بعض الطلاب إلى معالجين أقل حملًا", th.NameAr, projected.UtilizationPercent),
		},
		Actions: []string{"review_assignments", "shift_students"},
	}
}
