// Package store provides concrete persistence implementations of the
// engine's store interfaces.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/Alnumo/therapy-engine/core/model"
	corestore "github.com/Alnumo/therapy-engine/core/store"
)

// MemStore is a mutex-guarded in-memory implementation of the engine store.
// It backs tests and CLI dry-runs.
type MemStore struct {
	mu          sync.RWMutex
	therapists  map[string]model.Therapist
	enrollments map[string]model.Enrollment
	sessions    map[string]model.ScheduledSession
	assignments map[string]corestore.Assignment
	plans       map[string]corestore.PlanRecord
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		therapists:  make(map[string]model.Therapist),
		enrollments: make(map[string]model.Enrollment),
		sessions:    make(map[string]model.ScheduledSession),
		assignments: make(map[string]corestore.Assignment),
		plans:       make(map[string]corestore.PlanRecord),
	}
}

// AddTherapist inserts or replaces a therapist record.
func (m *MemStore) AddTherapist(t model.Therapist) {
	m.mu.Lock()
	m.therapists[t.ID] = t
	m.mu.Unlock()
}

// AddEnrollment inserts or replaces an enrollment record.
func (m *MemStore) AddEnrollment(e model.Enrollment) {
	m.mu.Lock()
	m.enrollments[e.ID] = e
	m.mu.Unlock()
}

// AddSession inserts or replaces a session record.
func (m *MemStore) AddSession(s model.ScheduledSession) {
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
}

// RemoveSession deletes a session record if present.
func (m *MemStore) RemoveSession(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

func (m *MemStore) Therapist(_ context.Context, id string) (model.Therapist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.therapists[id]
	if !ok {
		return model.Therapist{}, corestore.ErrNotFound
	}
	return t, nil
}

func (m *MemStore) ActiveTherapists(context.Context) ([]model.Therapist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Therapist
	for _, t := range m.therapists {
		if t.Active {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemStore) Enrollment(_ context.Context, id string) (model.Enrollment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.enrollments[id]
	if !ok {
		return model.Enrollment{}, corestore.ErrNotFound
	}
	return e, nil
}

func (m *MemStore) EnrollmentsByTherapist(_ context.Context, therapistID string, statuses ...model.EnrollmentStatus) ([]model.Enrollment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Enrollment
	for _, e := range m.enrollments {
		if e.TherapistID != therapistID {
			continue
		}
		if len(statuses) > 0 {
			ok := false
			for _, s := range statuses {
				if e.Status == s {
					ok = true
					break
				}
			}
			if !ok {
				continue
			}
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemStore) SaveEnrollment(_ context.Context, e model.Enrollment) error {
	m.mu.Lock()
	m.enrollments[e.ID] = e
	m.mu.Unlock()
	return nil
}

func (m *MemStore) Sessions(_ context.Context, q corestore.SessionQuery) ([]model.ScheduledSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.ScheduledSession
	for _, s := range m.sessions {
		if q.Matches(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (m *MemStore) SaveSession(_ context.Context, s model.ScheduledSession) error {
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return nil
}

func (m *MemStore) SaveAssignment(_ context.Context, a corestore.Assignment) error {
	m.mu.Lock()
	m.assignments[a.ID] = a
	m.mu.Unlock()
	return nil
}

func (m *MemStore) DeleteAssignment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assignments[id]; !ok {
		return corestore.ErrNotFound
	}
	delete(m.assignments, id)
	return nil
}

// Assignments returns all persisted assignments, ordered by id.
func (m *MemStore) Assignments() []corestore.Assignment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]corestore.Assignment, 0, len(m.assignments))
	for _, a := range m.assignments {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MemStore) Plan(_ context.Context, id string) (corestore.PlanRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.plans[id]
	if !ok {
		return corestore.PlanRecord{}, corestore.ErrNotFound
	}
	return p, nil
}

func (m *MemStore) SavePlan(_ context.Context, rec corestore.PlanRecord) error {
	m.mu.Lock()
	m.plans[rec.ID] = rec
	m.mu.Unlock()
	return nil
}
