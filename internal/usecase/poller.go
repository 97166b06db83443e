// File: internal/usecase/poller.go
package usecase

import (
	"context"
	"time"

	"creative-ai-studio/internal/domain"
	"creative-ai-studio/internal/domain/model"
	"creative-ai-studio/internal/domain/ports/adapter"
	"creative-ai-studio/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Clock abstracts waiting so tests advance virtual time instead of sleeping.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func NewRealClock() Clock { return realClock{} }

// PollPolicy bounds one job's polling loop. Image jobs get 60 attempts
// at 3s apart, video jobs 120 at 5s; both are config-overridable.
type PollPolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

type PollPolicies struct {
	Image PollPolicy
	Video PollPolicy
}

func DefaultPollPolicies() PollPolicies {
	return PollPolicies{
		Image: PollPolicy{Interval: 3 * time.Second, MaxAttempts: 60},
		Video: PollPolicy{Interval: 5 * time.Second, MaxAttempts: 120},
	}
}

func (p PollPolicies) For(m model.Modality) PollPolicy {
	if m == model.ModalityImageToVideo {
		return p.Video
	}
	return p.Image
}

// PollOutcome is the terminal verdict of one polling run.
type PollOutcome struct {
	State    model.JobState // completed, failed, timed_out or cancelled
	Artifact adapter.Artifact
	Err      error
}

// PollingOrchestrator drives a submitted job to a terminal state:
//
//	submitted -> polling -> {completed, failed, timed_out, cancelled}
//
// Transient PollOnce errors are retried on the same cadence and count
// against the same attempt budget; exhausting the budget on an error
// yields failed (ErrPollExhausted), exhausting it while the provider
// is still working yields timed_out. Cancellation stops issuing polls
// but sends no cancel call to the provider.
type PollingOrchestrator struct {
	provider adapter.GenerationProviderAdapter
	policies PollPolicies
	clock    Clock
	log      *zerolog.Logger
}

func NewPollingOrchestrator(provider adapter.GenerationProviderAdapter, policies PollPolicies, clock Clock, log *zerolog.Logger) *PollingOrchestrator {
	if clock == nil {
		clock = NewRealClock()
	}
	return &PollingOrchestrator{provider: provider, policies: policies, clock: clock, log: log}
}

// Run polls until the job is terminal. The job's state is mutated here
// and nowhere else; observe receives every state change (may be nil).
func (o *PollingOrchestrator) Run(ctx context.Context, job *model.GenerationJob, handle adapter.JobHandle, observe func(*model.GenerationJob)) PollOutcome {
	policy := o.policies.For(job.Modality)
	polls := 0
	defer func() { metrics.ObservePollAttempts(string(job.Modality), polls) }()
	notify := func() {
		if observe != nil {
			observe(job)
		}
	}

	job.Transition(model.JobStatePolling)
	notify()

	for attempts := 0; attempts < policy.MaxAttempts; attempts++ {
		if err := ctx.Err(); err != nil {
			job.Transition(model.JobStateCancelled)
			notify()
			return PollOutcome{State: model.JobStateCancelled, Err: err}
		}

		status, err := o.provider.PollOnce(ctx, handle)
		polls++
		if err != nil {
			// Transient: stay in polling, spend an attempt.
			o.log.Warn().Err(err).Str("job_id", job.ID).Int("attempt", attempts+1).Msg("status poll failed")
			if attempts >= policy.MaxAttempts-1 {
				job.Cause = domain.ErrPollExhausted.Error()
				job.Transition(model.JobStateFailed)
				notify()
				return PollOutcome{State: model.JobStateFailed, Err: domain.ErrPollExhausted}
			}
			if cancelled := o.wait(ctx, policy.Interval); cancelled {
				job.Transition(model.JobStateCancelled)
				notify()
				return PollOutcome{State: model.JobStateCancelled, Err: ctx.Err()}
			}
			continue
		}

		switch status {
		case model.ProviderStatusCompleted:
			artifact, err := o.provider.FetchResult(ctx, handle)
			if err != nil {
				job.Cause = err.Error()
				job.Transition(model.JobStateFailed)
				notify()
				return PollOutcome{State: model.JobStateFailed, Err: err}
			}
			job.ArtifactURLs = artifact.URLs
			job.Transition(model.JobStateCompleted)
			notify()
			return PollOutcome{State: model.JobStateCompleted, Artifact: artifact}
		case model.ProviderStatusFailed:
			job.Cause = "provider reported failure"
			job.Transition(model.JobStateFailed)
			notify()
			return PollOutcome{State: model.JobStateFailed, Err: domain.ErrGenerationFailed}
		default:
			// IN_QUEUE / IN_PROGRESS: wait and poll again.
			if cancelled := o.wait(ctx, policy.Interval); cancelled {
				job.Transition(model.JobStateCancelled)
				notify()
				return PollOutcome{State: model.JobStateCancelled, Err: ctx.Err()}
			}
		}
	}

	job.Cause = domain.ErrTimedOut.Error()
	job.Transition(model.JobStateTimedOut)
	notify()
	return PollOutcome{State: model.JobStateTimedOut, Err: domain.ErrTimedOut}
}

// wait blocks for the inter-poll delay; returns true when ctx ended first.
func (o *PollingOrchestrator) wait(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return true
	case <-o.clock.After(d):
		return false
	}
}
