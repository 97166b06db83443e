package sched

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"creative-ai-studio/internal/domain"
	"creative-ai-studio/internal/domain/model"
)

type stubJobRepo struct {
	mu    sync.Mutex
	stuck []*model.GenerationJob
	saved []*model.GenerationJob
}

func (s *stubJobRepo) Save(ctx context.Context, qx any, job *model.GenerationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.saved = append(s.saved, &cp)
	return nil
}

func (s *stubJobRepo) FindByID(ctx context.Context, qx any, id string) (*model.GenerationJob, error) {
	return nil, domain.ErrNotFound
}

func (s *stubJobRepo) ListByUser(ctx context.Context, qx any, userID string, limit int) ([]*model.GenerationJob, error) {
	return nil, nil
}

func (s *stubJobRepo) ListStuck(ctx context.Context, qx any, olderThanSeconds int) ([]*model.GenerationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stuck, nil
}

func TestReapMarksStuckJobsTimedOut(t *testing.T) {
	t.Parallel()
	repo := &stubJobRepo{}
	polling := model.NewGenerationJob("u1", model.ModalityTextToImage, "req-1")
	polling.Transition(model.JobStatePolling)
	submitted := model.NewGenerationJob("u2", model.ModalityImageToVideo, "req-2")
	repo.stuck = []*model.GenerationJob{polling, submitted}

	l := zerolog.Nop()
	w := NewJobReaper(time.Minute, 30*time.Minute, repo, &l)

	n, err := w.reap(context.Background())
	if err != nil {
		t.Fatalf("reap: %v", err)
	}
	if n != 2 {
		t.Fatalf("reaped = %d, want 2", n)
	}
	for _, j := range repo.saved {
		if j.State != model.JobStateTimedOut {
			t.Fatalf("job %s state = %s, want timed_out", j.ID, j.State)
		}
		if j.Cause == "" {
			t.Fatalf("job %s missing cause", j.ID)
		}
	}
}

func TestReapSkipsTerminalJobs(t *testing.T) {
	t.Parallel()
	repo := &stubJobRepo{}
	done := model.NewGenerationJob("u1", model.ModalityTextToImage, "req-1")
	done.Transition(model.JobStateCompleted)
	repo.stuck = []*model.GenerationJob{done}

	l := zerolog.Nop()
	w := NewJobReaper(time.Minute, 30*time.Minute, repo, &l)

	n, err := w.reap(context.Background())
	if err != nil {
		t.Fatalf("reap: %v", err)
	}
	if n != 0 {
		t.Fatalf("reaped = %d, want 0", n)
	}
	if len(repo.saved) != 0 {
		t.Fatalf("saved %d jobs, want none", len(repo.saved))
	}
}
