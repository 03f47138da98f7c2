package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/olegiv/yoga-i18n/internal/queue"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeWorker struct {
	processed atomic.Int32
	limit     atomic.Int32
	queued    int
	err       error
}

func (f *fakeWorker) ProcessPending(_ context.Context, limit int) (*queue.Summary, error) {
	f.processed.Add(1)
	f.limit.Store(int32(limit))
	if f.err != nil {
		return nil, f.err
	}
	return &queue.Summary{RunID: "r", Claimed: 1, Completed: 1}, nil
}

func (f *fakeWorker) EnqueueMissing(_ context.Context, _ int) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.queued, nil
}

type fakePruner struct {
	cutoff time.Time
}

func (f *fakePruner) DeleteEventsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 3, nil
}

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{"*/5 * * * *", false},
		{"0 3 * * *", false},
		{"@daily", false},
		{"@every 10m", false},
		{"", true},
		{"   ", true},
		{"* * *", true},
		{"61 * * * *", true},
		{"0 0 3 * * *", true}, // seconds field is not accepted
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			err := ValidateSchedule(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSchedule(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
		})
	}
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(quietLogger())
	if err := s.Add(QueueJob(&fakeWorker{}, "*/5 * * * *", 5, quietLogger())); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	s.Start()
	s.Stop()
}

func TestAddRejectsBadJobs(t *testing.T) {
	s := New(quietLogger())
	noop := func(context.Context) error { return nil }

	if err := s.Add(Job{Name: "x", Schedule: "nope", Run: noop}); err == nil {
		t.Error("expected error for invalid schedule")
	}
	if err := s.Add(Job{Schedule: "@daily", Run: noop}); err == nil {
		t.Error("expected error for missing name")
	}
	if err := s.Add(Job{Name: "x", Schedule: "@daily", Run: noop}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := s.Add(Job{Name: "x", Schedule: "@daily", Run: noop}); err == nil {
		t.Error("expected error for duplicate name")
	}
}

func TestTriggerNow(t *testing.T) {
	s := New(quietLogger())
	w := &fakeWorker{}
	if err := s.Add(QueueJob(w, "0 3 * * *", 7, quietLogger())); err != nil {
		t.Fatal(err)
	}

	if err := s.Registry().TriggerNow(context.Background(), JobQueueProcess); err != nil {
		t.Fatalf("TriggerNow() error = %v", err)
	}
	if w.processed.Load() != 1 || w.limit.Load() != 7 {
		t.Errorf("processed=%d limit=%d, want 1 and 7", w.processed.Load(), w.limit.Load())
	}

	jobs := s.Registry().List()
	if len(jobs) != 1 || jobs[0].Runs != 1 || jobs[0].LastRun.IsZero() {
		t.Errorf("List() = %+v", jobs)
	}

	err := s.Registry().TriggerNow(context.Background(), "missing")
	if !errors.Is(err, ErrJobNotFound) {
		t.Errorf("TriggerNow(missing) error = %v, want ErrJobNotFound", err)
	}
}

func TestTriggerNowRecordsFailure(t *testing.T) {
	s := New(quietLogger())
	w := &fakeWorker{err: errors.New("database is locked")}
	if err := s.Add(DiscoveryJob(w, "@daily", 50, quietLogger())); err != nil {
		t.Fatal(err)
	}

	if err := s.Registry().TriggerNow(context.Background(), JobDiscovery); err == nil {
		t.Fatal("expected job error")
	}
	jobs := s.Registry().List()
	if !strings.Contains(jobs[0].LastError, "locked") {
		t.Errorf("LastError = %q", jobs[0].LastError)
	}
}

func TestOverlappingRunsAreSkipped(t *testing.T) {
	s := New(quietLogger())
	started := make(chan struct{})
	release := make(chan struct{})
	if err := s.Add(Job{
		Name:     "slow",
		Schedule: "@daily",
		Run: func(context.Context) error {
			close(started)
			<-release
			return nil
		},
	}); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- s.Registry().TriggerNow(context.Background(), "slow") }()
	<-started

	if err := s.Registry().TriggerNow(context.Background(), "slow"); !errors.Is(err, ErrJobRunning) {
		t.Errorf("second TriggerNow() error = %v, want ErrJobRunning", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Errorf("first TriggerNow() error = %v", err)
	}

	jobs := s.Registry().List()
	if jobs[0].Runs != 1 || jobs[0].Skipped != 1 {
		t.Errorf("runs=%d skipped=%d, want 1 and 1", jobs[0].Runs, jobs[0].Skipped)
	}
}

func TestUpdateSchedule(t *testing.T) {
	s := New(quietLogger())
	if err := s.Add(EventPruneJob(&fakePruner{}, "30 4 * * *", time.Hour, quietLogger())); err != nil {
		t.Fatal(err)
	}

	if err := s.Registry().UpdateSchedule(JobEventPrune, "bad"); err == nil {
		t.Error("expected error for invalid schedule")
	}
	if err := s.Registry().UpdateSchedule("missing", "@daily"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("error = %v, want ErrJobNotFound", err)
	}
	if err := s.Registry().UpdateSchedule(JobEventPrune, "@hourly"); err != nil {
		t.Fatalf("UpdateSchedule() error = %v", err)
	}

	info := s.Registry().List()[0]
	if info.Schedule != "@hourly" || info.DefaultSchedule != "30 4 * * *" {
		t.Errorf("schedule = %q default = %q", info.Schedule, info.DefaultSchedule)
	}
}

func TestEventPruneJobCutoff(t *testing.T) {
	p := &fakePruner{}
	job := EventPruneJob(p, "@daily", 24*time.Hour, quietLogger())

	before := time.Now().Add(-24 * time.Hour)
	if err := job.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if p.cutoff.Before(before.Add(-time.Second)) || p.cutoff.After(time.Now().Add(-23*time.Hour)) {
		t.Errorf("cutoff = %v, want about 24h ago", p.cutoff)
	}
}

func TestListSorted(t *testing.T) {
	s := New(quietLogger())
	w := &fakeWorker{}
	for _, j := range []Job{
		QueueJob(w, "@hourly", 5, quietLogger()),
		EventPruneJob(&fakePruner{}, "@daily", time.Hour, quietLogger()),
		DiscoveryJob(w, "@daily", 5, quietLogger()),
	} {
		if err := s.Add(j); err != nil {
			t.Fatal(err)
		}
	}

	jobs := s.Registry().List()
	want := []string{JobEventPrune, JobDiscovery, JobQueueProcess}
	for i, name := range want {
		if jobs[i].Name != name {
			t.Errorf("jobs[%d] = %q, want %q", i, jobs[i].Name, name)
		}
	}
}
