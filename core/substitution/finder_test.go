package substitution

import (
	"context"
	"testing"
	"time"

	"github.com/Alnumo/therapy-engine/core/model"
	"github.com/Alnumo/therapy-engine/core/workload"
	"github.com/Alnumo/therapy-engine/infra/logger"
	"github.com/Alnumo/therapy-engine/infra/store"
)

var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func newTestFinder(st *store.MemStore) *Finder {
	calc := workload.NewCalculator(st, st, st, workload.Config{}, logger.NopLogger{})
	return NewFinder(calc, st, st, logger.NopLogger{})
}

func addTherapist(st *store.MemStore, id string, specs []string, maxWeekly float64, eligible bool) {
	st.AddTherapist(model.Therapist{
		ID: id, Name: id, Active: true,
		Specialties:        specs,
		SubstituteEligible: eligible,
		Capacity:           model.CapacityConfig{MaxWeeklyHours: maxWeekly},
	})
}

func addAbsenceSessions(st *store.MemStore, therapist string, n int) {
	for i := 0; i < n; i++ {
		start := monday.AddDate(0, 0, i).Add(10 * time.Hour)
		st.AddSession(model.ScheduledSession{
			ID:          therapist + "-abs-" + string(rune('0'+i)),
			TherapistID: therapist,
			StudentID:   "stu",
			Start:       start,
			End:         start.Add(time.Hour),
			Status:      model.SessionScheduled,
		})
	}
}

func absenceRequest(therapist string) model.SubstitutionRequest {
	return model.SubstitutionRequest{
		TherapistID: therapist,
		StartDate:   monday,
		EndDate:     monday.AddDate(0, 0, 6),
		Reason:      "sick leave",
	}
}

func TestFindSubstitutes_RanksBySpecialtyThenLoad(t *testing.T) {
	st := store.NewMemStore()
	addTherapist(st, "orig", []string{"aba", "speech"}, 40, false)
	addAbsenceSessions(st, "orig", 3)

	addTherapist(st, "match", []string{"aba", "speech"}, 40, true)
	addTherapist(st, "partial", []string{"aba"}, 40, true)
	addTherapist(st, "none", []string{"ot"}, 40, true)

	f := newTestFinder(st)
	res, err := f.FindSubstitutes(context.Background(), absenceRequest("orig"))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(res.AffectedSessions) != 3 {
		t.Fatalf("affected sessions = %d, want 3", len(res.AffectedSessions))
	}
	if len(res.Candidates) != 3 {
		t.Fatalf("candidates = %d, want 3", len(res.Candidates))
	}
	if res.Candidates[0].TherapistID != "match" {
		t.Errorf("top candidate = %s, want match", res.Candidates[0].TherapistID)
	}
	if res.Candidates[2].TherapistID != "none" {
		t.Errorf("last candidate = %s, want none", res.Candidates[2].TherapistID)
	}
	if !res.Candidates[0].SpecialtiesMatch || res.Candidates[2].SpecialtiesMatch {
		t.Error("specialty match flags wrong")
	}
}

func TestFindSubstitutes_SameSpecialtyIsHardFilter(t *testing.T) {
	st := store.NewMemStore()
	addTherapist(st, "orig", []string{"aba"}, 40, false)
	addAbsenceSessions(st, "orig", 1)
	addTherapist(st, "other", []string{"speech"}, 40, true)

	f := newTestFinder(st)
	req := absenceRequest("orig")
	req.RequireSameSpecialty = true
	res, err := f.FindSubstitutes(context.Background(), req)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(res.Candidates) != 0 {
		t.Fatalf("candidates = %+v, want none", res.Candidates)
	}
	if res.Message == "" {
		t.Error("expected explanatory message for empty candidate list")
	}
}

func TestFindSubstitutes_SkipsIneligibleAndInactive(t *testing.T) {
	st := store.NewMemStore()
	addTherapist(st, "orig", []string{"aba"}, 40, false)
	addAbsenceSessions(st, "orig", 1)
	addTherapist(st, "not-eligible", []string{"aba"}, 40, false)
	st.AddTherapist(model.Therapist{
		ID: "inactive", Specialties: []string{"aba"}, SubstituteEligible: true,
		Capacity: model.CapacityConfig{MaxWeeklyHours: 40},
	})

	f := newTestFinder(st)
	res, err := f.FindSubstitutes(context.Background(), absenceRequest("orig"))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(res.Candidates) != 0 {
		t.Fatalf("candidates = %+v, want none", res.Candidates)
	}
}

func TestFindSubstitutes_NoAffectedSessions(t *testing.T) {
	st := store.NewMemStore()
	addTherapist(st, "orig", []string{"aba"}, 40, false)
	addTherapist(st, "sub", []string{"aba"}, 40, true)

	f := newTestFinder(st)
	res, err := f.FindSubstitutes(context.Background(), absenceRequest("orig"))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(res.Candidates) != 0 || len(res.AffectedSessions) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
	if res.Message == "" {
		t.Error("expected message explaining there is nothing to cover")
	}
}

func TestFindSubstitutes_UnknownTherapist(t *testing.T) {
	st := store.NewMemStore()
	f := newTestFinder(st)
	if _, err := f.FindSubstitutes(context.Background(), absenceRequest("ghost")); err == nil {
		t.Fatal("expected error for unknown original therapist")
	}
}

func TestFindSubstitutes_BusyCandidateScoresLower(t *testing.T) {
	st := store.NewMemStore()
	addTherapist(st, "orig", []string{"aba"}, 40, false)
	addAbsenceSessions(st, "orig", 2)
	addTherapist(st, "idle", []string{"aba"}, 40, true)
	addTherapist(st, "busy", []string{"aba"}, 40, true)
	// 30 hours already booked for the busy candidate in the absence week.
	for i := 0; i < 30; i++ {
		start := monday.AddDate(0, 0, i/6).Add(time.Duration(8+i%6) * time.Hour)
		st.AddSession(model.ScheduledSession{
			ID: "busy-" + string(rune('a'+i%26)) + string(rune('a'+i/26)), TherapistID: "busy", StudentID: "x",
			Start: start, End: start.Add(time.Hour), Status: model.SessionScheduled,
		})
	}

	f := newTestFinder(st)
	res, err := f.FindSubstitutes(context.Background(), absenceRequest("orig"))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(res.Candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(res.Candidates))
	}
	if res.Candidates[0].TherapistID != "idle" {
		t.Errorf("top candidate = %s, want idle", res.Candidates[0].TherapistID)
	}
	if res.Candidates[1].WorkloadImpact <= res.Candidates[0].WorkloadImpact {
		t.Error("busy candidate should carry the higher workload impact")
	}
}
