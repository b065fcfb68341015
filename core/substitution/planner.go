package substitution

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Alnumo/therapy-engine/core/logger"
	"github.com/Alnumo/therapy-engine/core/model"
	"github.com/Alnumo/therapy-engine/core/store"
	"github.com/Alnumo/therapy-engine/core/workload"
	"github.com/Alnumo/therapy-engine/internal/eventbus"
)

// Disruption score weights: uncovered sessions dominate substitute strain.
const (
	disruptionCoverageWeight = 60.0
	disruptionStrainWeight   = 0.4
)

// Planner assembles executable substitution plans.
type Planner struct {
	finder     *Finder
	calc       *workload.Calculator
	therapists store.TherapistStore
	plans      store.PlanStore
	bus        eventbus.EventBus
	log        logger.Logger
	now        func() time.Time
}

// NewPlanner creates a Planner. bus may be nil.
func NewPlanner(finder *Finder, calc *workload.Calculator, therapists store.TherapistStore, plans store.PlanStore, bus eventbus.EventBus, log logger.Logger) *Planner {
	return &Planner{finder: finder, calc: calc, therapists: therapists, plans: plans, bus: bus, log: log, now: time.Now}
}

// CreatePlan builds and persists a draft plan covering the affected sessions
// greedily from the best-ranked candidate downward. Pre-selected substitutes
// are used as given, without re-scoring, so callers can override the
// automatic ranking.
func (p *Planner) CreatePlan(ctx context.Context, req model.SubstitutionRequest, preSelected []model.SubstitutionCandidate) (Plan, error) {
	result, ranked, err := p.finder.findScored(ctx, req)
	if err != nil {
		return Plan{}, err
	}

	if len(preSelected) > 0 {
		ranked, err = p.resolvePreSelected(ctx, req, preSelected)
		if err != nil {
			return Plan{}, err
		}
	}

	plan := Plan{
		ID:                uuid.NewString(),
		Request:           req,
		Status:            PlanDraft,
		OriginalTherapist: req.TherapistID,
		CreatedAt:         p.now(),
	}

	uncovered := append([]model.ScheduledSession(nil), result.AffectedSessions...)
	for _, sc := range ranked {
		if len(uncovered) == 0 {
			break
		}
		assignment, rest := p.cover(sc, uncovered)
		uncovered = rest
		if len(assignment.SessionIDs) > 0 {
			plan.Assignments = append(plan.Assignments, assignment)
		}
		if !req.AllowSplit && len(plan.Assignments) > 0 {
			break
		}
	}
	for _, s := range uncovered {
		plan.UnassignedSessions = append(plan.UnassignedSessions, s.ID)
	}

	plan.DisruptionScore = disruptionScore(len(result.AffectedSessions), len(plan.UnassignedSessions), plan.Assignments)
	plan.Notifications = p.buildNotifications(plan, result.AffectedSessions)
	plan.Rollback = buildRollbackPlan(plan, result.AffectedSessions)

	rec, err := plan.encode()
	if err != nil {
		return Plan{}, err
	}
	if err := p.plans.SavePlan(ctx, rec); err != nil {
		return Plan{}, fmt.Errorf("save plan %s: %w", plan.ID, err)
	}
	if p.bus != nil {
		p.bus.Publish(eventbus.PlanEvent{PlanID: plan.ID, To: PlanDraft.String(), Time: p.now()})
	}
	p.log.Infof("plan %s created: %d assignments, %d unassigned, disruption %.1f",
		plan.ID, len(plan.Assignments), len(plan.UnassignedSessions), plan.DisruptionScore)
	return plan, nil
}

// cover assigns as many uncovered sessions to the candidate as its weekly
// headroom and availability windows allow and returns the remainder.
func (p *Planner) cover(sc scored, sessions []model.ScheduledSession) (Assignment, []model.ScheduledSession) {
	a := Assignment{
		SubstituteID:     sc.cand.TherapistID,
		CapacityImpact:   sc.cand.WorkloadImpact,
		TrainingRequired: !sc.cand.SpecialtiesMatch,
	}
	headroom := sc.headroomHours
	var rest []model.ScheduledSession
	for _, s := range sessions {
		if !sc.therapist.AvailableOn(s.Start.Weekday()) {
			rest = append(rest, s)
			continue
		}
		h := s.DurationMinutes() / 60.0
		if h <= headroom {
			a.SessionIDs = append(a.SessionIDs, s.ID)
			headroom -= h
		} else {
			rest = append(rest, s)
		}
	}
	return a, rest
}

// resolvePreSelected turns caller-chosen candidates into the internal form,
// reading only the data needed for coverage capacity.
func (p *Planner) resolvePreSelected(ctx context.Context, req model.SubstitutionRequest, chosen []model.SubstitutionCandidate) ([]scored, error) {
	var out []scored
	for _, c := range chosen {
		th, err := p.therapists.Therapist(ctx, c.TherapistID)
		if err != nil {
			return nil, fmt.Errorf("pre-selected substitute %s unavailable: %w", c.TherapistID, err)
		}
		w, err := p.calc.Compute(ctx, c.TherapistID, req.StartDate)
		if err != nil {
			return nil, err
		}
		out = append(out, scored{cand: c, therapist: th, headroomHours: w.RemainingWeeklyHours(th.Capacity)})
	}
	return out, nil
}

func disruptionScore(total, unassigned int, assignments []Assignment) float64 {
	if total == 0 {
		return 0
	}
	frac := float64(unassigned) / float64(total)
	var avgImpact float64
	if len(assignments) > 0 {
		for _, a := range assignments {
			avgImpact += a.CapacityImpact
		}
		avgImpact /= float64(len(assignments))
	}
	return clamp(disruptionCoverageWeight*frac+disruptionStrainWeight*avgImpact, 0, 100)
}

// buildNotifications creates one confirmation request per substitute and one
// high-priority notice per unassigned session addressed to the student's
// parent.
func (p *Planner) buildNotifications(plan Plan, affected []model.ScheduledSession) []model.Notification {
	now := p.now()
	byID := make(map[string]model.ScheduledSession, len(affected))
	for _, s := range affected {
		byID[s.ID] = s
	}

	var out []model.Notification
	for _, a := range plan.Assignments {
		out = append(out, model.Notification{
			ID:            uuid.NewString(),
			RecipientType: model.RecipientTherapist,
			RecipientID:   a.SubstituteID,
			Channel:       "app",
			Priority:      model.PriorityMedium,
			Template: model.BilingualText{
				En: fmt.Sprintf("You have been assigned %d substitute sessions (%s)", len(a.SessionIDs), plan.Request.Reason),
				Ar: fmt.Sprintf("تم تعيينك كمعالج بديل لعدد %d جلسات (%s)", len(a.SessionIDs), plan.Request.Reason),
			},
			RequiresConfirmation: true,
			SendTime:             now,
		})
	}
	for _, id := range plan.UnassignedSessions {
		s := byID[id]
		out = append(out, model.Notification{
			ID:            uuid.NewString(),
			RecipientType: model.RecipientParent,
			RecipientID:   s.StudentID,
			Channel:       "app",
			// Uncovered sessions always escalate to the family.
			Priority: model.PriorityHigh,
			Template: model.BilingualText{
				En: fmt.Sprintf("The session on %s could not be covered and may be rescheduled", s.Start.Format("2006-01-02 15:04")),
				Ar: fmt.Sprintf("تعذر تغطية الجلسة بتاريخ %s وقد تتم إعادة جدولتها", s.Start.Format("2006-01-02 15:04")),
			},
			SendTime: now,
		})
	}
	return out
}

// buildRollbackPlan orders reversible steps (assignment undo) before the
// irreversible notification step. The deadline is the earliest covered
// session start; after it, sessions have begun and the plan is no longer
// reversible.
func buildRollbackPlan(plan Plan, affected []model.ScheduledSession) RollbackPlan {
	byID := make(map[string]model.ScheduledSession, len(affected))
	for _, s := range affected {
		byID[s.ID] = s
	}

	var steps []RollbackStep
	order := 1
	for _, a := range plan.Assignments {
		steps = append(steps, RollbackStep{
			Order:        order,
			Action:       ActionUnassignSessions,
			Description:  fmt.Sprintf("return %d sessions from substitute %s to the original therapist", len(a.SessionIDs), a.SubstituteID),
			Reversible:   true,
			SubstituteID: a.SubstituteID,
			SessionIDs:   a.SessionIDs,
		})
		order++
	}
	if len(plan.Notifications) > 0 {
		steps = append(steps, RollbackStep{
			Order:       order,
			Action:      ActionSentNotifications,
			Description: "notifications already dispatched cannot be recalled",
			Reversible:  false,
		})
	}

	var deadline time.Time
	for _, a := range plan.Assignments {
		for _, id := range a.SessionIDs {
			if s, ok := byID[id]; ok {
				if deadline.IsZero() || s.Start.Before(deadline) {
					deadline = s.Start
				}
			}
		}
	}

	return RollbackPlan{
		CanRollback: len(plan.Assignments) > 0 && !deadline.IsZero(),
		Deadline:    deadline,
		Steps:       steps,
		Impact:      fmt.Sprintf("%d sessions revert to therapist %s", plan.CoveredSessions(), plan.OriginalTherapist),
	}
}
