package capacity

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Alnumo/therapy-engine/core/logger"
	"github.com/Alnumo/therapy-engine/core/model"
	"github.com/Alnumo/therapy-engine/core/store"
)

// BulkOptions controls a bulk assignment batch.
type BulkOptions struct {
	// AllowPartial lets an invalid request retry its top-ranked
	// alternative therapist once before being reported as failed.
	AllowPartial bool
	// Budget bounds the batch wall-clock time. Zero means no limit.
	Budget time.Duration
}

// AssignmentOutcome records the result of one attempted request.
type AssignmentOutcome struct {
	Request model.AssignmentRequest
	Result  model.CapacityValidationResult
	// TherapistID is the therapist actually assigned; it differs from the
	// request's when an alternative was used.
	TherapistID string
	Reason      string
}

// BulkSummary aggregates a processed batch.
type BulkSummary struct {
	TotalProcessed int
	Succeeded      int
	Failed         int
	Elapsed        time.Duration
}

// BulkResult reports exactly which requests succeeded, failed, or were never
// attempted because the budget ran out.
type BulkResult struct {
	Successful   []AssignmentOutcome
	Failed       []AssignmentOutcome
	NotProcessed []model.AssignmentRequest
	Summary      BulkSummary
}

// Optimizer sequences assignment requests through the Validator under a
// priority order and a wall-clock budget.
type Optimizer struct {
	validator   *Validator
	assignments store.AssignmentStore
	enrollments store.EnrollmentStore
	log         logger.Logger
	now         func() time.Time
}

// NewOptimizer creates an Optimizer persisting accepted assignments through
// the given stores. Accepting a request activates an enrollment, so later
// requests in the same batch validate against the updated student load.
func NewOptimizer(v *Validator, assignments store.AssignmentStore, enrollments store.EnrollmentStore, log logger.Logger) *Optimizer {
	return &Optimizer{validator: v, assignments: assignments, enrollments: enrollments, log: log, now: time.Now}
}

// ProcessBulkAssignments validates and applies the requests in priority
// order. The budget is checked before each iteration; once exceeded the
// remaining requests are returned as NotProcessed, already-applied
// assignments are kept. Context cancellation is honoured at the same point.
func (o *Optimizer) ProcessBulkAssignments(ctx context.Context, requests []model.AssignmentRequest, opts BulkOptions) BulkResult {
	start := o.now()
	ordered := make([]model.AssignmentRequest, len(requests))
	copy(ordered, requests)
	// Stable: ties keep input order so batches are reproducible.
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	var res BulkResult
	for i, req := range ordered {
		if ctx.Err() != nil || (opts.Budget > 0 && o.now().Sub(start) > opts.Budget) {
			res.NotProcessed = append(res.NotProcessed, ordered[i:]...)
			break
		}
		outcome := o.processOne(ctx, req, opts)
		if outcome.Reason == "" {
			res.Successful = append(res.Successful, outcome)
			bulkProcessed.WithLabelValues("success").Inc()
		} else {
			res.Failed = append(res.Failed, outcome)
			bulkProcessed.WithLabelValues("failure").Inc()
		}
	}
	for range res.NotProcessed {
		bulkProcessed.WithLabelValues("not_processed").Inc()
	}

	res.Summary = BulkSummary{
		TotalProcessed: len(res.Successful) + len(res.Failed),
		Succeeded:      len(res.Successful),
		Failed:         len(res.Failed),
		Elapsed:        o.now().Sub(start),
	}
	bulkDuration.Observe(res.Summary.Elapsed.Seconds())
	o.log.Infof("bulk batch done: %d processed, %d ok, %d failed, %d skipped",
		res.Summary.TotalProcessed, res.Summary.Succeeded, res.Summary.Failed, len(res.NotProcessed))
	return res
}

// processOne validates the request and, when allowed, retries its best
// alternative exactly once. An empty Reason marks success.
func (o *Optimizer) processOne(ctx context.Context, req model.AssignmentRequest, opts BulkOptions) AssignmentOutcome {
	result := o.validator.ValidateAssignment(ctx, req)
	if result.Success && result.IsValid {
		if err := o.persist(ctx, req, req.TherapistID); err != nil {
			return AssignmentOutcome{Request: req, Result: result, Reason: "persist failed: " + err.Error()}
		}
		return AssignmentOutcome{Request: req, Result: result, TherapistID: req.TherapistID}
	}
	if !result.Success {
		return AssignmentOutcome{Request: req, Result: result, Reason: result.Error}
	}
	if opts.AllowPartial && len(result.Alternatives) > 0 {
		alt := result.Alternatives[0]
		altReq := req
		altReq.TherapistID = alt.TherapistID
		altRes := o.validator.ValidateAssignment(ctx, altReq)
		if altRes.Success && altRes.IsValid {
			if err := o.persist(ctx, altReq, alt.TherapistID); err != nil {
				return AssignmentOutcome{Request: req, Result: altRes, Reason: "persist failed: " + err.Error()}
			}
			return AssignmentOutcome{Request: req, Result: altRes, TherapistID: alt.TherapistID}
		}
	}
	return AssignmentOutcome{Request: req, Result: result, Reason: failureReason(result)}
}

func (o *Optimizer) persist(ctx context.Context, req model.AssignmentRequest, therapistID string) error {
	id := uuid.NewString()
	if err := o.assignments.SaveAssignment(ctx, store.Assignment{
		ID:          id,
		TherapistID: therapistID,
		StudentID:   req.StudentID,
		ProgramID:   req.ProgramID,
		Frequency:   req.SessionsPerWeek,
		Duration:    req.SessionDurationMinutes,
		CreatedAt:   o.now(),
	}); err != nil {
		return err
	}
	return o.enrollments.SaveEnrollment(ctx, model.Enrollment{
		ID:               id,
		StudentID:        req.StudentID,
		ProgramID:        req.ProgramID,
		TherapistID:      therapistID,
		FrequencyPerWeek: req.SessionsPerWeek,
		DurationMinutes:  req.SessionDurationMinutes,
		StartDate:        o.now(),
		Status:           model.EnrollmentActive,
	})
}

func failureReason(res model.CapacityValidationResult) string {
	crits := res.CriticalErrors()
	if len(crits) == 0 {
		return "capacity validation failed"
	}
	return "capacity exceeded: " + crits[0].Dimension
}
