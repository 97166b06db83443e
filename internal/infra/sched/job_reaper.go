package sched

import (
	"context"
	"time"

	"creative-ai-studio/internal/domain/model"
	"creative-ai-studio/internal/domain/ports/repository"
	"creative-ai-studio/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// JobReaper periodically marks jobs stuck in a non-terminal state past
// their wall-clock budget as timed out. This covers processes that
// crashed mid-poll and never settled their job row. Credits are not
// touched here; settlement belongs to the coordinator that reserved them.
type JobReaper struct {
	interval  time.Duration
	olderThan time.Duration
	jobs      repository.GenerationJobRepository
	log       *zerolog.Logger
}

func NewJobReaper(interval, olderThan time.Duration, jobs repository.GenerationJobRepository, logger *zerolog.Logger) *JobReaper {
	reapLog := logger.With().Str("component", "JobReaper").Logger()
	if olderThan <= 0 {
		olderThan = 30 * time.Minute
	}
	return &JobReaper{
		interval:  interval,
		olderThan: olderThan,
		jobs:      jobs,
		log:       &reapLog,
	}
}

func (w *JobReaper) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting job reaper")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping job reaper")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.reap(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("job reaper error")
			}
			if n > 0 {
				w.log.Info().Int("count", n).Msg("stale jobs timed out")
			}
		}
	}
}

func (w *JobReaper) reap(ctx context.Context) (int, error) {
	stuck, err := w.jobs.ListStuck(ctx, nil, int(w.olderThan.Seconds()))
	if err != nil {
		return 0, err
	}
	reaped := 0
	for _, job := range stuck {
		if !job.Transition(model.JobStateTimedOut) {
			continue
		}
		job.Cause = "abandoned by a previous run"
		if err := w.jobs.Save(ctx, nil, job); err != nil {
			w.log.Error().Err(err).Str("job_id", job.ID).Msg("failed to reap job")
			continue
		}
		metrics.IncGeneration(string(job.Modality), string(model.JobStateTimedOut))
		reaped++
	}
	return reaped, nil
}
