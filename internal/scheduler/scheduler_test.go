package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

type fakeRefresher struct {
	mu          sync.Mutex
	calls       int
	reloaded    bool
	err         error
	hasDeadline bool
}

func (f *fakeRefresher) Refresh(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	_, f.hasDeadline = ctx.Deadline()
	return f.reloaded, f.err
}

func TestAddJobValidation(t *testing.T) {
	svc, err := New(zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer svc.Stop()

	tests := []struct {
		name    string
		job     string
		cron    string
		wantErr error
	}{
		{name: "empty_name", job: " ", cron: "*/5 * * * *", wantErr: ErrEmptyJobName},
		{name: "empty_cron", job: "resync", cron: "", wantErr: ErrEmptyCronExpr},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := svc.AddJob(test.job, test.cron, func() {}); !errors.Is(err, test.wantErr) {
				t.Fatalf("AddJob() error = %v, want %v", err, test.wantErr)
			}
		})
	}

	if _, err := svc.AddJob("resync", "not a cron", func() {}); err == nil {
		t.Fatal("AddJob() accepted an invalid cron expression")
	}
	if _, err := svc.AddJob("resync", "*/5 * * * *", func() {}); err != nil {
		t.Fatalf("AddJob() error = %v", err)
	}
}

func TestNilServiceIsNotInitialized(t *testing.T) {
	var svc *Service
	if _, err := svc.AddJob("job", "* * * * *", func() {}); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("AddJob() error = %v, want ErrNotInitialized", err)
	}
	if err := svc.Stop(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Stop() error = %v, want ErrNotInitialized", err)
	}
}

func TestRegisterResyncJob(t *testing.T) {
	svc, err := New(zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer svc.Stop()

	if err := RegisterResyncJob(svc, nil, "*/5 * * * *"); err == nil {
		t.Fatal("RegisterResyncJob() accepted a nil form")
	}
	if err := RegisterResyncJob(svc, &fakeRefresher{}, "*/5 * * * *"); err != nil {
		t.Fatalf("RegisterResyncJob() error = %v", err)
	}
	jobs := svc.scheduler.Jobs()
	if len(jobs) != 1 || jobs[0].Name() != resyncJobName {
		t.Fatalf("registered jobs = %d, want one %q job", len(jobs), resyncJobName)
	}
}

func TestResyncTaskRefreshesWithDeadline(t *testing.T) {
	for _, refresher := range []*fakeRefresher{
		{reloaded: true},
		{reloaded: false},
		{reloaded: true, err: errors.New("profile unavailable")},
	} {
		resyncTask(refresher, zerolog.Nop())()
		if refresher.calls != 1 {
			t.Fatalf("Refresh calls = %d, want 1", refresher.calls)
		}
		if !refresher.hasDeadline {
			t.Fatal("Refresh context has no deadline")
		}
	}
}
