package state

import (
	"context"
	"errors"
	"testing"

	"github.com/five82/pandals/internal/prefs"
)

func TestNextAggregate(t *testing.T) {
	tests := []struct {
		name      string
		isUpdate  bool
		current   float64
		count     int
		old, next int
		want      float64
		wantCount int
	}{
		{"first rating", false, 4.0, 2, 0, 5, 4.33, 3},
		{"update existing", true, 4.0, 2, 5, 3, 3.0, 2},
		{"first ever", false, 0, 0, 0, 4, 4.0, 1},
		{"update with zero count", true, 0, 0, 2, 5, 5.0, 0},
		{"rounds to two places", false, 3.5, 2, 0, 4, 3.67, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, count := NextAggregate(tt.isUpdate, tt.current, tt.count, tt.old, tt.next)
			if got != tt.want || count != tt.wantCount {
				t.Fatalf("NextAggregate(%v, %v, %d, %d, %d) = %v/%d, want %v/%d",
					tt.isUpdate, tt.current, tt.count, tt.old, tt.next, got, count, tt.want, tt.wantCount)
			}
		})
	}
}

func TestRatingStore_SubmitFirstRating(t *testing.T) {
	fb := newFakeBackend(rated(pandal("p1", "Alpha", 22.5, 88.3), 4.0, 2))
	mem := &memPersister{}
	s := NewRatingStore(fb, mem, nil)

	var gotID string
	var gotRating float64
	var gotCount int
	s.SetListener(func(id string, rating float64, count int) {
		gotID, gotRating, gotCount = id, rating, count
	})

	if err := s.Submit(context.Background(), "p1", 5, "u1"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if gotID != "p1" || gotRating != 4.33 || gotCount != 3 {
		t.Fatalf("listener got %s %v/%d, want p1 4.33/3", gotID, gotRating, gotCount)
	}
	if p := fb.pandals[0]; p.RatingValue() != 4.33 || p.NumberOfRatings != 3 {
		t.Fatalf("backend aggregate = %v/%d, want 4.33/3", p.RatingValue(), p.NumberOfRatings)
	}
	if fb.ratings["u1"]["p1"] != 5 {
		t.Fatalf("backend user rating = %d, want 5", fb.ratings["u1"]["p1"])
	}
	if s.Get("p1") != 5 || s.Status("p1") != RatingSynced || s.Submitting("p1") {
		t.Fatalf("store = %d %s submitting=%v, want 5 synced false", s.Get("p1"), s.Status("p1"), s.Submitting("p1"))
	}
	if mem.data.Ratings["p1"] != 5 || mem.data.UserID != "u1" {
		t.Fatalf("persisted = %+v, want p1=5 for u1", mem.data)
	}
}

func TestRatingStore_SubmitUpdateKeepsCount(t *testing.T) {
	fb := newFakeBackend(rated(pandal("p1", "Alpha", 22.5, 88.3), 4.0, 2))
	fb.ratings["u1"] = map[string]int{"p1": 5}
	s := NewRatingStore(fb, nil, nil)

	if err := s.Submit(context.Background(), "p1", 3, "u1"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if p := fb.pandals[0]; p.RatingValue() != 3.0 || p.NumberOfRatings != 2 {
		t.Fatalf("backend aggregate = %v/%d, want 3.0/2", p.RatingValue(), p.NumberOfRatings)
	}
}

func TestRatingStore_FailureKeepsChosenValue(t *testing.T) {
	fb := newFakeBackend(rated(pandal("p1", "Alpha", 22.5, 88.3), 4.0, 2))
	mem := &memPersister{}
	s := NewRatingStore(fb, mem, nil)
	called := false
	s.SetListener(func(string, float64, int) { called = true })

	fb.setFail("UpdatePandalRating", errBoom)
	err := s.Submit(context.Background(), "p1", 2, "u1")
	if !errors.Is(err, errBoom) {
		t.Fatalf("Submit error = %v, want %v", err, errBoom)
	}
	if s.Get("p1") != 2 {
		t.Fatalf("Get(p1) = %d, want 2 (not reverted)", s.Get("p1"))
	}
	if s.Status("p1") != RatingFailed {
		t.Fatalf("Status(p1) = %s, want failed", s.Status("p1"))
	}
	if s.Err("p1") == "" {
		t.Fatalf("Err(p1) empty after failure")
	}
	if called {
		t.Fatalf("listener called after failure")
	}
	if mem.saves != 0 {
		t.Fatalf("persist saves = %d, want 0", mem.saves)
	}
	if got := fb.count("UpsertUserRating"); got != 0 {
		t.Fatalf("UpsertUserRating calls = %d, want 0 after aggregate failure", got)
	}

	fb.setFail("UpdatePandalRating", nil)
	if err := s.Submit(context.Background(), "p1", 2, "u1"); err != nil {
		t.Fatalf("retry Submit: %v", err)
	}
	if s.Err("p1") != "" || s.Status("p1") != RatingSynced {
		t.Fatalf("after retry err=%q status=%s", s.Err("p1"), s.Status("p1"))
	}
}

func TestRatingStore_PendingWhileInFlight(t *testing.T) {
	fb := newFakeBackend(pandal("p1", "Alpha", 22.5, 88.3))
	s := NewRatingStore(fb, nil, nil)
	gate := fb.hold("GetUserRating")

	done := make(chan error, 1)
	go func() { done <- s.Submit(context.Background(), "p1", 4, "u1") }()
	waitFor(t, func() bool { return fb.count("GetUserRating") == 1 })

	if s.Get("p1") != 4 || s.Status("p1") != RatingPending || !s.Submitting("p1") {
		t.Fatalf("in flight: %d %s %v, want 4 pending true", s.Get("p1"), s.Status("p1"), s.Submitting("p1"))
	}
	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("Submit: %v", err)
	}
}

func TestRatingStore_Validation(t *testing.T) {
	s := NewRatingStore(newFakeBackend(), nil, nil)
	if err := s.Submit(context.Background(), "p1", 6, "u1"); err == nil {
		t.Fatalf("Submit(6) error = nil, want range error")
	}
	if err := s.Submit(context.Background(), "p1", 0, "u1"); err == nil {
		t.Fatalf("Submit(0) error = nil, want range error")
	}
	if err := s.Submit(context.Background(), "p1", 3, ""); !errors.Is(err, ErrNoUser) {
		t.Fatalf("Submit without user error = %v, want ErrNoUser", err)
	}
	if s.Get("p1") != 0 {
		t.Fatalf("Get(p1) = %d after rejected input, want 0", s.Get("p1"))
	}
}

func TestRatingStore_LoadPersistAndClear(t *testing.T) {
	mem := &memPersister{data: prefs.Ratings{UserID: "u1", Loaded: true, Ratings: map[string]int{"p9": 2}}}
	fb := newFakeBackend()
	fb.ratings["u1"] = map[string]int{"p1": 4, "p2": 1}
	s := NewRatingStore(fb, mem, nil)

	if s.Get("p9") != 2 || !s.LoadedFor("u1") {
		t.Fatalf("persisted cache not seeded: Get(p9)=%d LoadedFor=%v", s.Get("p9"), s.LoadedFor("u1"))
	}
	if s.LoadedFor("u2") {
		t.Fatalf("LoadedFor(u2) = true, want false")
	}

	if err := s.Load(context.Background(), "u1"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Get("p1") != 4 || s.Get("p2") != 1 || s.Get("p9") != 0 {
		t.Fatalf("after Load: p1=%d p2=%d p9=%d", s.Get("p1"), s.Get("p2"), s.Get("p9"))
	}
	if mem.data.Ratings["p1"] != 4 {
		t.Fatalf("persisted after Load = %v", mem.data.Ratings)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if !mem.cleared || s.Loaded() || s.Get("p1") != 0 {
		t.Fatalf("Clear left state: cleared=%v loaded=%v p1=%d", mem.cleared, s.Loaded(), s.Get("p1"))
	}
}

func TestRatingStore_LoadFailureMarksLoaded(t *testing.T) {
	fb := newFakeBackend()
	fb.setFail("ListUserRatings", errBoom)
	s := NewRatingStore(fb, nil, nil)
	if err := s.Load(context.Background(), "u1"); err == nil {
		t.Fatalf("Load error = nil, want failure")
	}
	if !s.Loaded() {
		t.Fatalf("Loaded() = false after failed load")
	}
}
