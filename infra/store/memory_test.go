package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alnumo/therapy-engine/core/model"
	corestore "github.com/Alnumo/therapy-engine/core/store"
)

var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func TestMemStore_TherapistNotFound(t *testing.T) {
	st := NewMemStore()
	_, err := st.Therapist(context.Background(), "ghost")
	assert.ErrorIs(t, err, corestore.ErrNotFound)
}

func TestMemStore_ActiveTherapistsSorted(t *testing.T) {
	st := NewMemStore()
	st.AddTherapist(model.Therapist{ID: "b", Active: true})
	st.AddTherapist(model.Therapist{ID: "a", Active: true})
	st.AddTherapist(model.Therapist{ID: "c", Active: false})

	out, err := st.ActiveTherapists(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "b", out[1].ID)
}

func TestMemStore_EnrollmentsByTherapistStatusFilter(t *testing.T) {
	st := NewMemStore()
	st.AddEnrollment(model.Enrollment{ID: "e1", TherapistID: "t1", Status: model.EnrollmentActive})
	st.AddEnrollment(model.Enrollment{ID: "e2", TherapistID: "t1", Status: model.EnrollmentEnded})
	st.AddEnrollment(model.Enrollment{ID: "e3", TherapistID: "t2", Status: model.EnrollmentActive})

	out, err := st.EnrollmentsByTherapist(context.Background(), "t1", model.EnrollmentActive)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "e1", out[0].ID)

	all, err := st.EnrollmentsByTherapist(context.Background(), "t1")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMemStore_SessionQueryFilters(t *testing.T) {
	st := NewMemStore()
	add := func(id, therapist string, start time.Time, status model.SessionStatus) {
		st.AddSession(model.ScheduledSession{
			ID: id, TherapistID: therapist,
			Start: start, End: start.Add(time.Hour), Status: status,
		})
	}
	add("s1", "t1", monday.Add(10*time.Hour), model.SessionScheduled)
	add("s2", "t1", monday.AddDate(0, 0, 1).Add(10*time.Hour), model.SessionCancelled)
	add("s3", "t1", monday.AddDate(0, 0, 9), model.SessionScheduled)
	add("s4", "t2", monday.Add(11*time.Hour), model.SessionScheduled)
	// Starts exactly at the exclusive upper bound: next week's session.
	add("s5", "t1", monday.AddDate(0, 0, 7), model.SessionScheduled)

	out, err := st.Sessions(context.Background(), corestore.SessionQuery{
		TherapistID: "t1",
		From:        monday,
		To:          monday.AddDate(0, 0, 7),
		Statuses:    []model.SessionStatus{model.SessionScheduled},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "s1", out[0].ID)

	// A zero query returns everything ordered by start time.
	all, err := st.Sessions(context.Background(), corestore.SessionQuery{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "s1", all[0].ID)
	assert.Equal(t, "s3", all[4].ID)
}

func TestMemStore_SaveSessionReplaces(t *testing.T) {
	st := NewMemStore()
	st.AddSession(model.ScheduledSession{ID: "s1", TherapistID: "t1", Start: monday, End: monday.Add(time.Hour)})

	err := st.SaveSession(context.Background(), model.ScheduledSession{
		ID: "s1", TherapistID: "t2", Start: monday, End: monday.Add(time.Hour),
	})
	require.NoError(t, err)

	out, err := st.Sessions(context.Background(), corestore.SessionQuery{TherapistID: "t2"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "s1", out[0].ID)
}

func TestMemStore_DeleteAssignment(t *testing.T) {
	st := NewMemStore()
	require.NoError(t, st.SaveAssignment(context.Background(), corestore.Assignment{ID: "a1"}))
	require.Len(t, st.Assignments(), 1)

	require.NoError(t, st.DeleteAssignment(context.Background(), "a1"))
	assert.Empty(t, st.Assignments())
	assert.ErrorIs(t, st.DeleteAssignment(context.Background(), "a1"), corestore.ErrNotFound)
}

func TestMemStore_PlanRoundtrip(t *testing.T) {
	st := NewMemStore()
	_, err := st.Plan(context.Background(), "p1")
	assert.ErrorIs(t, err, corestore.ErrNotFound)

	rec := corestore.PlanRecord{ID: "p1", Status: "draft", Payload: []byte(`{"x":1}`), UpdatedAt: monday}
	require.NoError(t, st.SavePlan(context.Background(), rec))

	got, err := st.Plan(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}
