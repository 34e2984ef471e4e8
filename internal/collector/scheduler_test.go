package collector

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/soonerrob/rSearch/internal/models"
)

type fakeSchedulerStore struct {
	audiences []*models.Audience
	err       error
	cutoffs   []time.Time
}

func (s *fakeSchedulerStore) EligibleAudiences(ctx context.Context, cutoff time.Time) ([]*models.Audience, error) {
	s.cutoffs = append(s.cutoffs, cutoff)
	return s.audiences, s.err
}

type fakeRunner struct {
	collected []int64
	modes     []Mode
	failFor   map[int64]error
}

func (r *fakeRunner) Collect(ctx context.Context, audienceID int64, mode Mode) error {
	r.collected = append(r.collected, audienceID)
	r.modes = append(r.modes, mode)
	if err, ok := r.failFor[audienceID]; ok {
		return err
	}
	return nil
}

func TestEligible(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		audience *models.Audience
		want     bool
	}{
		{
			name:     "never collected",
			audience: &models.Audience{},
			want:     true,
		},
		{
			name: "collected 30 minutes ago",
			audience: &models.Audience{
				LastCollectionTime: sql.NullTime{Time: now.Add(-30 * time.Minute), Valid: true},
			},
			want: false,
		},
		{
			name: "collected 90 minutes ago",
			audience: &models.Audience{
				LastCollectionTime: sql.NullTime{Time: now.Add(-90 * time.Minute), Valid: true},
			},
			want: true,
		},
		{
			name: "currently collecting",
			audience: &models.Audience{
				IsCollecting: true,
			},
			want: false,
		},
		{
			name: "collecting despite stale timestamp",
			audience: &models.Audience{
				IsCollecting:       true,
				LastCollectionTime: sql.NullTime{Time: now.Add(-2 * time.Hour), Valid: true},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Eligible(tt.audience, now); got != tt.want {
				t.Errorf("Eligible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSweepRunsAllEligible(t *testing.T) {
	store := &fakeSchedulerStore{
		audiences: []*models.Audience{
			{ID: 1, Name: "first"},
			{ID: 2, Name: "second"},
			{ID: 3, Name: "third"},
		},
	}
	runner := &fakeRunner{
		failFor: map[int64]error{2: errors.New("source unavailable")},
	}

	s := NewScheduler(testCollectorConfig(), store, runner)
	s.sweep(context.Background())

	if len(runner.collected) != 3 {
		t.Fatalf("expected 3 collections, got %d", len(runner.collected))
	}
	for i, id := range []int64{1, 2, 3} {
		if runner.collected[i] != id {
			t.Errorf("collection %d: expected audience %d, got %d", i, id, runner.collected[i])
		}
		if runner.modes[i] != ModeIncremental {
			t.Errorf("collection %d: expected incremental mode, got %s", i, runner.modes[i])
		}
	}
}

func TestSweepStopsOnCancellation(t *testing.T) {
	store := &fakeSchedulerStore{
		audiences: []*models.Audience{{ID: 1}, {ID: 2}},
	}
	runner := &fakeRunner{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewScheduler(testCollectorConfig(), store, runner)
	s.sweep(ctx)

	if len(runner.collected) != 0 {
		t.Errorf("expected no collections after cancellation, got %d", len(runner.collected))
	}
}

func TestRunExitsOnCancellation(t *testing.T) {
	store := &fakeSchedulerStore{}
	runner := &fakeRunner{}

	ctx, cancel := context.WithCancel(context.Background())

	s := NewScheduler(testCollectorConfig(), store, runner)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not exit after cancellation")
	}
}

func TestSweepCutoffWindow(t *testing.T) {
	store := &fakeSchedulerStore{}
	s := NewScheduler(testCollectorConfig(), store, &fakeRunner{})

	before := time.Now().UTC().Add(-eligibilityWindow)
	s.sweep(context.Background())
	after := time.Now().UTC().Add(-eligibilityWindow)

	if len(store.cutoffs) != 1 {
		t.Fatalf("expected one eligibility query, got %d", len(store.cutoffs))
	}
	cutoff := store.cutoffs[0]
	if cutoff.Before(before) || cutoff.After(after) {
		t.Errorf("cutoff %v outside expected window [%v, %v]", cutoff, before, after)
	}
}
