package substitution

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Alnumo/therapy-engine/core/logger"
	"github.com/Alnumo/therapy-engine/core/model"
	"github.com/Alnumo/therapy-engine/core/store"
	"github.com/Alnumo/therapy-engine/core/workload"
)

// scored pairs a candidate with the data the planner needs to cover
// sessions with it.
type scored struct {
	cand          model.SubstitutionCandidate
	therapist     model.Therapist
	headroomHours float64
}

// FindResult is the outcome of a substitute search.
type FindResult struct {
	Candidates []model.SubstitutionCandidate
	// AffectedSessions are the original therapist's sessions inside the
	// requested range.
	AffectedSessions []model.ScheduledSession
	// Message explains an empty result, e.g. no sessions in range.
	Message string
}

// Finder discovers and scores substitute therapists.
type Finder struct {
	calc       *workload.Calculator
	therapists store.TherapistStore
	sessions   store.SessionStore
	log        logger.Logger
}

// NewFinder creates a Finder.
func NewFinder(calc *workload.Calculator, therapists store.TherapistStore, sessions store.SessionStore, log logger.Logger) *Finder {
	return &Finder{calc: calc, therapists: therapists, sessions: sessions, log: log}
}

// FindSubstitutes scores eligible substitutes for the request. An empty
// candidate list with a message (and nil error) means no sessions are
// affected; an error means required data could not be read.
func (f *Finder) FindSubstitutes(ctx context.Context, req model.SubstitutionRequest) (FindResult, error) {
	res, _, err := f.findScored(ctx, req)
	return res, err
}

// findScored returns the public result plus the internal scored list the
// planner consumes.
func (f *Finder) findScored(ctx context.Context, req model.SubstitutionRequest) (FindResult, []scored, error) {
	original, err := f.therapists.Therapist(ctx, req.TherapistID)
	if err != nil {
		return FindResult{}, nil, fmt.Errorf("original therapist %s unavailable: %w", req.TherapistID, err)
	}

	sessions, err := f.sessions.Sessions(ctx, store.SessionQuery{
		TherapistID: req.TherapistID,
		From:        req.StartDate,
		To:          endOfDay(req.EndDate),
		Statuses:    []model.SessionStatus{model.SessionScheduled},
	})
	if err != nil {
		return FindResult{}, nil, fmt.Errorf("sessions unavailable for therapist %s: %w", req.TherapistID, err)
	}
	if len(sessions) == 0 {
		return FindResult{Message: "no scheduled sessions in the requested range; nothing to cover"}, nil, nil
	}

	all, err := f.therapists.ActiveTherapists(ctx)
	if err != nil {
		return FindResult{}, nil, fmt.Errorf("therapist list unavailable: %w", err)
	}

	var coverageHours float64
	for _, s := range sessions {
		coverageHours += s.DurationMinutes() / 60.0
	}

	var list []scored
	for _, cand := range all {
		if cand.ID == original.ID || !cand.Active || !cand.SubstituteEligible {
			continue
		}
		overlap := cand.SpecialtyOverlap(original.Specialties)
		match := overlap > 0
		// Hard filter, not a down-rank, when same specialty is required.
		if req.RequireSameSpecialty && !match {
			continue
		}
		w, err := f.calc.Compute(ctx, cand.ID, req.StartDate)
		if err != nil {
			// Unknown workload must not score as empty workload; the
			// candidate is skipped instead.
			f.log.Warnf("skipping candidate %s: %v", cand.ID, err)
			continue
		}
		addedUtil := 0.0
		if cand.Capacity.MaxWeeklyHours > 0 {
			addedUtil = coverageHours / cand.Capacity.MaxWeeklyHours * 100
		}
		compat := CompatibilityScore(overlap, len(original.Specialties))
		if match {
			compat = clamp(compat+SpecialtyBonus, 0, 100)
		}
		sc := model.SubstitutionCandidate{
			TherapistID:        cand.ID,
			AvailabilityScore:  AvailabilityScore(w.UtilizationPercent),
			CompatibilityScore: compat,
			WorkloadImpact:     WorkloadImpact(w.UtilizationPercent, addedUtil),
			SpecialtiesMatch:   match,
		}
		list = append(list, scored{cand: sc, therapist: cand, headroomHours: w.RemainingWeeklyHours(cand.Capacity)})
	}

	sort.SliceStable(list, func(i, j int) bool { return rankBefore(list[i], list[j]) })

	res := FindResult{AffectedSessions: sessions}
	for _, s := range list {
		res.Candidates = append(res.Candidates, s.cand)
	}
	if len(res.Candidates) == 0 {
		res.Message = "no eligible substitutes found for the requested range"
	}
	return res, list, nil
}

// endOfDay widens a date-only bound to cover the whole day, returning the
// next midnight for use as an exclusive upper bound.
func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
}
