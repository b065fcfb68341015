package substitution

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Alnumo/therapy-engine/core/logger"
	"github.com/Alnumo/therapy-engine/core/model"
	"github.com/Alnumo/therapy-engine/core/notify"
	"github.com/Alnumo/therapy-engine/core/store"
	"github.com/Alnumo/therapy-engine/internal/eventbus"
)

// Lifecycle errors reported to callers.
var (
	ErrNotApproved    = errors.New("substitution: plan must be approved before execution")
	ErrCannotRollback = errors.New("substitution: plan cannot be rolled back")
	ErrDeadlinePassed = errors.New("substitution: rollback deadline has passed")
	ErrBadTransition  = errors.New("substitution: illegal plan status transition")
	ErrPlanNotFound   = errors.New("substitution: plan not found")
)

// ExecutionResult reports per-substitute outcomes of a plan execution.
type ExecutionResult struct {
	PlanID               string
	Status               PlanStatus
	AssignmentsCompleted []string
	AssignmentsFailed    map[string]string
	NotificationsSent    int
}

// RollbackResult reports the outcome of a rollback. Complete is false when
// any step failed; the per-step detail lets an operator reconcile manually.
type RollbackResult struct {
	PlanID        string
	Complete      bool
	StepsExecuted []int
	StepsFailed   map[int]string
	StepsSkipped  []int
	Reason        string
}

// Manager drives the plan lifecycle. Execution and rollback of the same plan
// are serialized through a per-plan lock so no two callers can race a
// transition.
type Manager struct {
	plans    store.PlanStore
	sessions store.SessionStore
	notifier notify.Dispatcher
	bus      eventbus.EventBus
	log      logger.Logger
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates a Manager. bus may be nil; notifier defaults to a nop.
func NewManager(plans store.PlanStore, sessions store.SessionStore, notifier notify.Dispatcher, bus eventbus.EventBus, log logger.Logger) *Manager {
	if notifier == nil {
		notifier = notify.NopDispatcher{}
	}
	return &Manager{
		plans:    plans,
		sessions: sessions,
		notifier: notifier,
		bus:      bus,
		log:      log,
		now:      time.Now,
		locks:    make(map[string]*sync.Mutex),
	}
}

// planLock returns the mutex serializing operations on the given plan.
func (m *Manager) planLock(planID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[planID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[planID] = l
	}
	return l
}

func (m *Manager) load(ctx context.Context, planID string) (Plan, error) {
	rec, err := m.plans.Plan(ctx, planID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Plan{}, ErrPlanNotFound
		}
		return Plan{}, err
	}
	return decodePlan(rec)
}

// transition moves the plan to the next status, rejecting illegal moves, and
// persists the change.
func (m *Manager) transition(ctx context.Context, plan *Plan, next PlanStatus) error {
	if !plan.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, plan.Status, next)
	}
	prev := plan.Status
	plan.Status = next
	rec, err := plan.encode()
	if err != nil {
		return err
	}
	if err := m.plans.SavePlan(ctx, rec); err != nil {
		return err
	}
	if m.bus != nil {
		m.bus.Publish(eventbus.PlanEvent{PlanID: plan.ID, From: prev.String(), To: next.String(), Time: m.now()})
	}
	return nil
}

// Approve moves a draft plan to approved.
func (m *Manager) Approve(ctx context.Context, planID string) (Plan, error) {
	lock := m.planLock(planID)
	lock.Lock()
	defer lock.Unlock()

	plan, err := m.load(ctx, planID)
	if err != nil {
		return Plan{}, err
	}
	if err := m.transition(ctx, &plan, PlanApproved); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

// Execute applies an approved plan: each substitute's assignment is its own
// unit of work, so one failure does not block the others. Unless skipped,
// notifications are dispatched afterwards. The final status is completed,
// partial or failed depending on how many assignments went through.
func (m *Manager) Execute(ctx context.Context, planID string, skipNotifications bool) (ExecutionResult, error) {
	lock := m.planLock(planID)
	lock.Lock()
	defer lock.Unlock()

	plan, err := m.load(ctx, planID)
	if err != nil {
		return ExecutionResult{}, err
	}
	if plan.Status != PlanApproved {
		return ExecutionResult{}, fmt.Errorf("%w (current status %s)", ErrNotApproved, plan.Status)
	}
	if err := m.transition(ctx, &plan, PlanInProgress); err != nil {
		return ExecutionResult{}, err
	}

	res := ExecutionResult{PlanID: planID, AssignmentsFailed: make(map[string]string)}
	for _, a := range plan.Assignments {
		if err := m.applyAssignment(ctx, plan, a); err != nil {
			m.log.Errorf("plan %s: assignment to %s failed: %v", planID, a.SubstituteID, err)
			res.AssignmentsFailed[a.SubstituteID] = err.Error()
			continue
		}
		res.AssignmentsCompleted = append(res.AssignmentsCompleted, a.SubstituteID)
	}

	if !skipNotifications && len(plan.Notifications) > 0 {
		if err := m.notifier.Dispatch(ctx, plan.Notifications); err != nil {
			m.log.Errorf("plan %s: notification dispatch: %v", planID, err)
		} else {
			res.NotificationsSent = len(plan.Notifications)
		}
	}

	switch {
	case len(res.AssignmentsFailed) == 0:
		res.Status = PlanCompleted
	case len(res.AssignmentsCompleted) > 0:
		res.Status = PlanPartial
	default:
		res.Status = PlanFailed
	}
	if err := m.transition(ctx, &plan, res.Status); err != nil {
		return res, err
	}
	return res, nil
}

// applyAssignment reassigns every covered session to the substitute.
func (m *Manager) applyAssignment(ctx context.Context, plan Plan, a Assignment) error {
	for _, id := range a.SessionIDs {
		sessions, err := m.sessions.Sessions(ctx, store.SessionQuery{TherapistID: plan.OriginalTherapist})
		if err != nil {
			return err
		}
		var target *model.ScheduledSession
		for i := range sessions {
			if sessions[i].ID == id {
				target = &sessions[i]
				break
			}
		}
		if target == nil {
			return fmt.Errorf("session %s no longer owned by therapist %s", id, plan.OriginalTherapist)
		}
		target.TherapistID = a.SubstituteID
		if err := m.sessions.SaveSession(ctx, *target); err != nil {
			return err
		}
	}
	return nil
}

// Rollback reverses a plan before its deadline. Approved plans roll back
// without session writes; applied plans (completed or partial) have their
// reversible steps undone.
// Failed reversible steps do not abort the remaining ones; the result is
// marked partial instead so a human can reconcile.
func (m *Manager) Rollback(ctx context.Context, planID, reason string) (RollbackResult, error) {
	lock := m.planLock(planID)
	lock.Lock()
	defer lock.Unlock()

	plan, err := m.load(ctx, planID)
	if err != nil {
		return RollbackResult{}, err
	}
	if !plan.Rollback.CanRollback {
		return RollbackResult{}, ErrCannotRollback
	}
	if !m.now().Before(plan.Rollback.Deadline) {
		return RollbackResult{}, ErrDeadlinePassed
	}
	if !plan.Status.CanTransition(PlanRolledBack) {
		return RollbackResult{}, fmt.Errorf("%w: %s -> %s", ErrBadTransition, plan.Status, PlanRolledBack)
	}

	res := RollbackResult{PlanID: planID, Complete: true, StepsFailed: make(map[int]string), Reason: reason}
	for _, step := range plan.Rollback.Steps {
		if !step.Reversible {
			res.StepsSkipped = append(res.StepsSkipped, step.Order)
			continue
		}
		if err := m.revertStep(ctx, plan, step); err != nil {
			m.log.Errorf("plan %s rollback step %d: %v", planID, step.Order, err)
			res.StepsFailed[step.Order] = err.Error()
			res.Complete = false
			continue
		}
		res.StepsExecuted = append(res.StepsExecuted, step.Order)
	}

	if err := m.transition(ctx, &plan, PlanRolledBack); err != nil {
		return res, err
	}
	m.log.Infof("plan %s rolled back (%s): complete=%v", planID, reason, res.Complete)
	return res, nil
}

// revertStep returns the step's sessions to the original therapist.
func (m *Manager) revertStep(ctx context.Context, plan Plan, step RollbackStep) error {
	for _, id := range step.SessionIDs {
		sessions, err := m.sessions.Sessions(ctx, store.SessionQuery{TherapistID: step.SubstituteID})
		if err != nil {
			return err
		}
		for i := range sessions {
			if sessions[i].ID == id {
				sessions[i].TherapistID = plan.OriginalTherapist
				if err := m.sessions.SaveSession(ctx, sessions[i]); err != nil {
					return err
				}
				break
			}
		}
	}
	return nil
}
