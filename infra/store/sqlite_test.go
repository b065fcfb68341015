package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alnumo/therapy-engine/core/model"
	corestore "github.com/Alnumo/therapy-engine/core/store"
)

func newSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "clinic.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSQLite_TherapistRoundtrip(t *testing.T) {
	st := newSQLite(t)
	ctx := context.Background()

	want := model.Therapist{
		ID: "t1", Name: "Sara", NameAr: "سارة",
		Specialties:        []string{"aba", "speech"},
		Capacity:           model.CapacityConfig{MaxWeeklyHours: 40, MaxConcurrentStudents: 12},
		SubstituteEligible: true,
		Active:             true,
	}
	require.NoError(t, st.SaveTherapist(ctx, want))

	got, err := st.Therapist(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = st.Therapist(ctx, "ghost")
	assert.ErrorIs(t, err, corestore.ErrNotFound)
}

func TestSQLite_ActiveTherapistsExcludesInactive(t *testing.T) {
	st := newSQLite(t)
	ctx := context.Background()

	require.NoError(t, st.SaveTherapist(ctx, model.Therapist{ID: "b", Active: true}))
	require.NoError(t, st.SaveTherapist(ctx, model.Therapist{ID: "a", Active: true}))
	require.NoError(t, st.SaveTherapist(ctx, model.Therapist{ID: "c", Active: false}))

	out, err := st.ActiveTherapists(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "b", out[1].ID)
}

func TestSQLite_EnrollmentRoundtrip(t *testing.T) {
	st := newSQLite(t)
	ctx := context.Background()

	e := model.Enrollment{
		ID: "e1", StudentID: "stu1", ProgramID: "p1", TherapistID: "t1",
		FrequencyPerWeek: 2, DurationMinutes: 60,
		StartDate: monday, EndDate: monday.AddDate(0, 6, 0),
		Status: model.EnrollmentActive,
	}
	require.NoError(t, st.SaveEnrollment(ctx, e))
	require.NoError(t, st.SaveEnrollment(ctx, model.Enrollment{
		ID: "e2", TherapistID: "t1", StartDate: monday, EndDate: monday, Status: model.EnrollmentEnded,
	}))

	got, err := st.Enrollment(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, e.FrequencyPerWeek, got.FrequencyPerWeek)
	assert.True(t, got.StartDate.Equal(e.StartDate))
	assert.Equal(t, model.EnrollmentActive, got.Status)

	active, err := st.EnrollmentsByTherapist(ctx, "t1", model.EnrollmentActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "e1", active[0].ID)

	_, err = st.Enrollment(ctx, "ghost")
	assert.ErrorIs(t, err, corestore.ErrNotFound)
}

func TestSQLite_SessionQuery(t *testing.T) {
	st := newSQLite(t)
	ctx := context.Background()

	save := func(id, therapist string, start time.Time, status model.SessionStatus) {
		require.NoError(t, st.SaveSession(ctx, model.ScheduledSession{
			ID: id, EnrollmentID: "e1", StudentID: "stu1", TherapistID: therapist,
			Start: start, End: start.Add(time.Hour), Status: status,
		}))
	}
	save("s1", "t1", monday.Add(10*time.Hour), model.SessionScheduled)
	save("s2", "t1", monday.AddDate(0, 0, 1).Add(10*time.Hour), model.SessionCancelled)
	save("s3", "t1", monday.AddDate(0, 0, 9), model.SessionScheduled)
	save("s4", "t2", monday.Add(11*time.Hour), model.SessionScheduled)
	// Starts exactly at the exclusive upper bound: next week's session.
	save("s5", "t1", monday.AddDate(0, 0, 7), model.SessionScheduled)

	out, err := st.Sessions(ctx, corestore.SessionQuery{
		TherapistID: "t1",
		From:        monday,
		To:          monday.AddDate(0, 0, 7),
		Statuses:    []model.SessionStatus{model.SessionScheduled},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "s1", out[0].ID)
	assert.True(t, out[0].Start.Equal(monday.Add(10*time.Hour)))

	all, err := st.Sessions(ctx, corestore.SessionQuery{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "s1", all[0].ID)
	assert.Equal(t, "s3", all[4].ID)
}

func TestSQLite_AssignmentDelete(t *testing.T) {
	st := newSQLite(t)
	ctx := context.Background()

	require.NoError(t, st.SaveAssignment(ctx, corestore.Assignment{
		ID: "a1", TherapistID: "t1", StudentID: "stu1", ProgramID: "p1",
		Frequency: 2, Duration: 60, CreatedAt: monday,
	}))
	require.NoError(t, st.DeleteAssignment(ctx, "a1"))
	assert.ErrorIs(t, st.DeleteAssignment(ctx, "a1"), corestore.ErrNotFound)
}

func TestSQLite_PlanRoundtrip(t *testing.T) {
	st := newSQLite(t)
	ctx := context.Background()

	_, err := st.Plan(ctx, "p1")
	assert.ErrorIs(t, err, corestore.ErrNotFound)

	rec := corestore.PlanRecord{ID: "p1", Status: "approved", Payload: []byte(`{"covered":3}`), UpdatedAt: monday}
	require.NoError(t, st.SavePlan(ctx, rec))

	got, err := st.Plan(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "approved", got.Status)
	assert.JSONEq(t, `{"covered":3}`, string(got.Payload))
	assert.True(t, got.UpdatedAt.Equal(monday))
}
