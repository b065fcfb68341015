package impact

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Alnumo/therapy-engine/core/logger"
	"github.com/Alnumo/therapy-engine/core/model"
	"github.com/Alnumo/therapy-engine/core/store"
	"github.com/Alnumo/therapy-engine/core/workload"
)

// Severity weights per modification type. Service-type changes weigh
// heaviest, location changes lightest.
var typeWeights = map[ModificationType]float64{
	ServiceTypeChange: 0.40,
	FrequencyChange:   0.25,
	TherapistChange:   0.25,
	DurationChange:    0.20,
	LocationChange:    0.10,
}

// Severity thresholds on the summed type weights.
const (
	severityHighThreshold   = 0.50
	severityMediumThreshold = 0.25
)

// Config tunes cost accounting.
type Config struct {
	// HourlyRate prices one therapy hour for cost implications.
	HourlyRate float64 `json:"hourly_rate"`
	// BillingWeeks converts a weekly hour delta into a billed amount.
	BillingWeeks float64 `json:"billing_weeks"`
}

// SetDefaults fills unset fields with sensible values.
func (c *Config) SetDefaults() {
	if c.HourlyRate <= 0 {
		c.HourlyRate = 150
	}
	if c.BillingWeeks <= 0 {
		c.BillingWeeks = 4
	}
}

// Analyzer reasons about the consequences of enrollment modifications.
type Analyzer struct {
	enrollments store.EnrollmentStore
	sessions    store.SessionStore
	therapists  store.TherapistStore
	calc        *workload.Calculator
	cfg         Config
	log         logger.Logger
	now         func() time.Time
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(enrollments store.EnrollmentStore, sessions store.SessionStore, therapists store.TherapistStore, calc *workload.Calculator, cfg Config, log logger.Logger) *Analyzer {
	cfg.SetDefaults()
	return &Analyzer{enrollments: enrollments, sessions: sessions, therapists: therapists, calc: calc, cfg: cfg, log: log, now: time.Now}
}

// ValidateModificationRequest runs every applicable check and returns all
// failing messages together, never stopping at the first problem.
func (a *Analyzer) ValidateModificationRequest(req ModificationRequest) ValidationResult {
	var errs []string
	if req.EnrollmentID == "" {
		errs = append(errs, "enrollment_id is required")
	}
	if len(req.Types) == 0 {
		errs = append(errs, "at least one modification type is required")
	}
	if !req.EffectiveDate.After(a.now()) {
		errs = append(errs, "effective_date must be in the future")
	}
	for _, t := range req.Types {
		switch t {
		case FrequencyChange:
			if req.Changes.NewFrequency <= 0 {
				errs = append(errs, "frequency_change requires a positive new_frequency")
			}
		case DurationChange:
			if req.Changes.NewDuration <= 0 {
				errs = append(errs, "duration_change requires a positive new_duration")
			}
		case TherapistChange:
			if req.Changes.NewTherapistID == "" {
				errs = append(errs, "therapist_change requires new_therapist_id")
			}
		}
	}
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// AnalyzeModificationImpact loads the enrollment and its upcoming sessions
// and computes a type-specific impact for each requested modification.
func (a *Analyzer) AnalyzeModificationImpact(ctx context.Context, req ModificationRequest) Result {
	enrollment, err := a.enrollments.Enrollment(ctx, req.EnrollmentID)
	if err != nil {
		// Structured failure so batch callers keep going.
		return Result{Success: false, Error: "Enrollment not found"}
	}

	from := req.EffectiveDate
	if from.IsZero() {
		from = a.now()
	}
	window := horizonDays(req.Scope)
	sessions, err := a.sessions.Sessions(ctx, store.SessionQuery{
		EnrollmentID: req.EnrollmentID,
		From:         from,
		To:           from.AddDate(0, 0, window),
		Statuses:     []model.SessionStatus{model.SessionScheduled},
	})
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("sessions unavailable: %v", err)}
	}

	res := Result{Success: true, Types: req.Types}
	for _, s := range sessions {
		res.AffectedSessions = append(res.AffectedSessions, s.ID)
	}

	for _, t := range req.Types {
		switch t {
		case FrequencyChange:
			a.analyzeFrequency(enrollment, req, sessions, &res)
		case DurationChange:
			a.analyzeDuration(enrollment, req, &res)
		case TherapistChange:
			a.analyzeTherapist(ctx, enrollment, req, sessions, &res)
		case LocationChange:
			a.analyzeLocation(req, sessions, &res)
		case ServiceTypeChange:
			a.analyzeServiceType(enrollment, req, &res)
		}
	}

	res.Costs.NetImpact = res.Costs.AdditionalCosts - res.Costs.CostSavings
	res.Overall = overallSeverity(req.Types)
	res.Timeline = a.timeline(from, sessions)
	res.Recommendations = append(res.Recommendations, a.recommend(res))
	return res
}

func (a *Analyzer) analyzeFrequency(e model.Enrollment, req ModificationRequest, sessions []model.ScheduledSession, res *Result) {
	delta := req.Changes.NewFrequency - e.FrequencyPerWeek
	hoursDelta := float64(delta) * float64(e.DurationMinutes) / 60.0
	a.applyCostDelta(hoursDelta, res)

	desc := model.BilingualText{
		En: fmt.Sprintf("weekly sessions change from %d to %d", e.FrequencyPerWeek, req.Changes.NewFrequency),
		Ar: fmt.Sprintf("تتغير الجلسات الأسبوعية من %d إلى %d", e.FrequencyPerWeek, req.Changes.NewFrequency),
	}
	adj := ScheduleAdjustment{Type: FrequencyChange.String(), Description: desc}
	// Excess sessions beyond the new frequency are flagged for removal;
	// a deficit means new sessions must be created instead.
	if delta < 0 {
		for _, ids := range sessionsPerWeek(sessions) {
			if len(ids) > req.Changes.NewFrequency {
				adj.SessionIDs = append(adj.SessionIDs, ids[req.Changes.NewFrequency:]...)
			}
		}
	}
	res.ScheduleAdjustments = append(res.ScheduleAdjustments, adj)
}

// sessionsPerWeek groups session ids by their Monday-based week start, each
// group ordered by start time.
func sessionsPerWeek(sessions []model.ScheduledSession) map[time.Time][]string {
	ordered := append([]model.ScheduledSession(nil), sessions...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Start.Before(ordered[j].Start) })
	out := make(map[time.Time][]string)
	for _, s := range ordered {
		ws, _ := workload.WeekWindow(s.Start)
		out[ws] = append(out[ws], s.ID)
	}
	return out
}

func (a *Analyzer) analyzeDuration(e model.Enrollment, req ModificationRequest, res *Result) {
	minutesDelta := req.Changes.NewDuration - e.DurationMinutes
	hoursDelta := float64(e.FrequencyPerWeek) * float64(minutesDelta) / 60.0
	a.applyCostDelta(hoursDelta, res)

	res.ScheduleAdjustments = append(res.ScheduleAdjustments, ScheduleAdjustment{
		Type: DurationChange.String(),
		Description: model.BilingualText{
			En: fmt.Sprintf("session duration changes from %d to %d minutes", e.DurationMinutes, req.Changes.NewDuration),
			Ar: fmt.Sprintf("تتغير مدة الجلسة من %d إلى %d دقيقة", e.DurationMinutes, req.Changes.NewDuration),
		},
	})
}

func (a *Analyzer) analyzeTherapist(ctx context.Context, e model.Enrollment, req ModificationRequest, sessions []model.ScheduledSession, res *Result) {
	weekly := e.WeeklyHours()

	if e.Assigned() {
		if w, err := a.calc.Compute(ctx, e.TherapistID, req.EffectiveDate); err == nil {
			res.TherapistImpacts = append(res.TherapistImpacts, TherapistImpact{
				TherapistID:      e.TherapistID,
				Direction:        "outgoing",
				WeeklyHoursDelta: -weekly,
				UtilizationAfter: utilizationAfter(ctx, a, e.TherapistID, w, -weekly),
			})
		} else {
			a.log.Warnf("outgoing therapist workload: %v", err)
		}
	}
	if w, err := a.calc.Compute(ctx, req.Changes.NewTherapistID, req.EffectiveDate); err == nil {
		res.TherapistImpacts = append(res.TherapistImpacts, TherapistImpact{
			TherapistID:      req.Changes.NewTherapistID,
			Direction:        "incoming",
			WeeklyHoursDelta: weekly,
			UtilizationAfter: utilizationAfter(ctx, a, req.Changes.NewTherapistID, w, weekly),
		})
	} else {
		a.log.Warnf("incoming therapist workload: %v", err)
	}

	var ids []string
	for _, s := range sessions {
		ids = append(ids, s.ID)
	}
	res.ScheduleAdjustments = append(res.ScheduleAdjustments, ScheduleAdjustment{
		Type: TherapistChange.String(),
		Description: model.BilingualText{
			En: fmt.Sprintf("%d upcoming sessions move to therapist %s", len(ids), req.Changes.NewTherapistID),
			Ar: fmt.Sprintf("سيتم نقل %d جلسة قادمة إلى المعالج %s", len(ids), req.Changes.NewTherapistID),
		},
		SessionIDs: ids,
	})
	res.StakeholderNotifications = append(res.StakeholderNotifications, a.stakeholderNotices(e, "therapist change", "تغيير المعالج")...)
}

func (a *Analyzer) analyzeLocation(req ModificationRequest, sessions []model.ScheduledSession, res *Result) {
	rooms := make(map[string]int)
	for _, s := range sessions {
		rooms[s.Room]++
	}
	for room, n := range rooms {
		res.ResourceReallocations = append(res.ResourceReallocations, ResourceReallocation{
			Resource: "room",
			From:     room,
			To:       req.Changes.NewLocation,
			Sessions: n,
		})
	}
	res.ScheduleAdjustments = append(res.ScheduleAdjustments, ScheduleAdjustment{
		Type: LocationChange.String(),
		Description: model.BilingualText{
			En: fmt.Sprintf("sessions relocate to %s", req.Changes.NewLocation),
			Ar: fmt.Sprintf("سيتم نقل الجلسات إلى %s", req.Changes.NewLocation),
		},
	})
}

func (a *Analyzer) analyzeServiceType(e model.Enrollment, req ModificationRequest, res *Result) {
	res.ScheduleAdjustments = append(res.ScheduleAdjustments, ScheduleAdjustment{
		Type: ServiceTypeChange.String(),
		Description: model.BilingualText{
			En: fmt.Sprintf("service type changes to %s; program goals need review", req.Changes.NewServiceType),
			Ar: fmt.Sprintf("يتغير نوع الخدمة إلى %s؛ يلزم مراجعة أهداف البرنامج", req.Changes.NewServiceType),
		},
	})
	res.StakeholderNotifications = append(res.StakeholderNotifications, a.stakeholderNotices(e, "service type change", "تغيير نوع الخدمة")...)
}

// applyCostDelta books a weekly-hours delta as additional cost or savings.
func (a *Analyzer) applyCostDelta(hoursDelta float64, res *Result) {
	amount := hoursDelta * a.cfg.HourlyRate * a.cfg.BillingWeeks
	if amount > 0 {
		res.Costs.AdditionalCosts += amount
	} else {
		res.Costs.CostSavings += -amount
	}
}

// stakeholderNotices builds the parent and admin notifications required for
// therapist and service-type changes.
func (a *Analyzer) stakeholderNotices(e model.Enrollment, en, ar string) []model.Notification {
	now := a.now()
	return []model.Notification{
		{
			ID:            uuid.NewString(),
			RecipientType: model.RecipientParent,
			RecipientID:   e.StudentID,
			Channel:       "app",
			Priority:      model.PriorityHigh,
			Template: model.BilingualText{
				En: fmt.Sprintf("An enrollment update requires your attention: %s", en),
				Ar: fmt.Sprintf("هناك تحديث على التسجيل يتطلب انتباهكم: %s", ar),
			},
			RequiresConfirmation: true,
			SendTime:             now,
		},
		{
			ID:            uuid.NewString(),
			RecipientType: model.RecipientAdmin,
			RecipientID:   "scheduling",
			Channel:       "app",
			Priority:      model.PriorityMedium,
			Template: model.BilingualText{
				En: fmt.Sprintf("Enrollment %s: %s pending", e.ID, en),
				Ar: fmt.Sprintf("التسجيل %s: %s قيد الانتظار", e.ID, ar),
			},
			SendTime: now,
		},
	}
}

// timeline reports all three horizons regardless of the requested scope,
// since downstream consumers may need the full picture.
func (a *Analyzer) timeline(from time.Time, sessions []model.ScheduledSession) []TimelineImpact {
	horizons := []struct {
		name string
		days int
	}{
		{ScopeImmediate, HorizonImmediateDays},
		{ScopeShortTerm, HorizonShortTermDays},
		{ScopeLongTerm, HorizonLongTermDays},
	}
	var out []TimelineImpact
	for _, h := range horizons {
		end := from.AddDate(0, 0, h.days)
		n := 0
		for _, s := range sessions {
			if !s.Start.Before(from) && s.Start.Before(end) {
				n++
			}
		}
		out = append(out, TimelineImpact{
			Horizon:          h.name,
			Days:             h.days,
			AffectedSessions: n,
			Summary:          fmt.Sprintf("%d sessions within %d days", n, h.days),
		})
	}
	return out
}

func overallSeverity(types []ModificationType) ImpactSeverity {
	var sum float64
	for _, t := range types {
		sum += typeWeights[t]
	}
	switch {
	case sum >= severityHighThreshold:
		return ImpactHigh
	case sum >= severityMediumThreshold:
		return ImpactMedium
	default:
		return ImpactLow
	}
}

func (a *Analyzer) recommend(res Result) Recommendation {
	rec := Recommendation{
		Actions:      []string{"confirm_effective_date", "notify_stakeholders"},
		Alternatives: []string{"phase the change over two weeks"},
		Risks:        []string{"family adjustment period"},
	}
	switch res.Overall {
	case ImpactHigh:
		rec.Priority = model.PriorityHigh
		rec.Actions = append(rec.Actions, "schedule_transition_meeting")
		rec.Risks = append(rec.Risks, "continuity of care disruption")
	case ImpactMedium:
		rec.Priority = model.PriorityMedium
	default:
		rec.Priority = model.PriorityLow
	}
	return rec
}

// utilizationAfter projects a therapist's utilization after a weekly-hours
// delta.
func utilizationAfter(ctx context.Context, a *Analyzer, therapistID string, w model.Workload, delta float64) float64 {
	th, err := a.therapists.Therapist(ctx, therapistID)
	if err != nil || th.Capacity.MaxWeeklyHours <= 0 {
		return w.UtilizationPercent
	}
	return (w.WeeklyHours + delta) / th.Capacity.MaxWeeklyHours * 100
}
