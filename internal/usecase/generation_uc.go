// File: internal/usecase/generation_uc.go
package usecase

import (
	"context"
	"fmt"

	"creative-ai-studio/internal/domain"
	"creative-ai-studio/internal/domain/model"
	"creative-ai-studio/internal/domain/ports/adapter"
	"creative-ai-studio/internal/domain/ports/repository"
	"creative-ai-studio/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ GenerationUseCase = (*generationUC)(nil)

// JobUpdate is one element of the stream handed to the presentation
// layer: either a state change or a terminal result carried on the job.
type JobUpdate struct {
	Job     model.GenerationJob
	Balance model.CreditBalance
}

// GenerationUseCase is the coordinator façade: it sequences entitlement
// check, credit reservation, submission and polling, and settles the
// ledger so that a terminal job nets exactly -cost on success and zero
// on failure or timeout.
type GenerationUseCase interface {
	Generate(ctx context.Context, account *model.Account, req *model.GenerationRequest, emit func(JobUpdate)) (*model.GenerationJob, error)
	History(ctx context.Context, userID string, limit int) ([]*model.GenerationJob, error)
}

type generationUC struct {
	entitlements EntitlementUseCase
	accounts     repository.AccountRepository
	jobs         repository.GenerationJobRepository
	provider     adapter.GenerationProviderAdapter
	policies     PollPolicies
	clock        Clock
	log          *zerolog.Logger
}

func NewGenerationUseCase(
	entitlements EntitlementUseCase,
	accounts repository.AccountRepository,
	jobs repository.GenerationJobRepository,
	provider adapter.GenerationProviderAdapter,
	policies PollPolicies,
	clock Clock,
	log *zerolog.Logger,
) *generationUC {
	if clock == nil {
		clock = NewRealClock()
	}
	return &generationUC{
		entitlements: entitlements,
		accounts:     accounts,
		jobs:         jobs,
		provider:     provider,
		policies:     policies,
		clock:        clock,
		log:          log,
	}
}

// Generate runs one job end to end for a single caller. Only one job is
// in flight per user session; the web layer serializes submissions.
func (g *generationUC) Generate(ctx context.Context, account *model.Account, req *model.GenerationRequest, emit func(JobUpdate)) (*model.GenerationJob, error) {
	if account.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	// 1. Request shape; fails fast with no ledger mutation.
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// 2. Entitlement: resolution must be within the image plan tier.
	if req.Modality != model.ModalityImageToVideo {
		width, height := req.Resolution()
		opt, ok := model.FindResolution(width, height)
		if !ok {
			return nil, domain.ErrInvalidArgument
		}
		if !g.entitlements.IsResolutionAllowed(opt, account.Plan) {
			return nil, domain.ErrPlanRestricted
		}
	}

	// 3. Pessimistic reservation before any provider call.
	kind := req.Modality.CreditKind()
	cost := g.entitlements.CostOf(req.Modality)
	ledger := NewCreditLedger(g.accounts, account.ID, account.Balance)
	balance, err := ledger.Reserve(ctx, kind, cost)
	if err != nil {
		return nil, err
	}
	metrics.ObserveCredits(string(kind), "reserve", cost)

	// Refund-once flag is owned here, not by the ledger.
	refunded := false
	refund := func() {
		if refunded {
			return
		}
		refunded = true
		// Settlement must survive a cancelled request context.
		b, rerr := ledger.Refund(context.WithoutCancel(ctx), kind, cost)
		if rerr != nil {
			g.log.Error().Err(rerr).Str("user_id", account.ID).Msg("refund failed; ledger left debited")
			return
		}
		balance = b
		metrics.ObserveCredits(string(kind), "refund", cost)
	}

	// 4. Submit; a rejection or unreachable provider refunds and returns.
	handle, err := g.provider.Submit(ctx, req)
	if err != nil {
		refund()
		return nil, fmt.Errorf("%w: %v", domain.ErrSubmissionFailed, err)
	}

	job := model.NewGenerationJob(account.ID, req.Modality, handle.RequestID)
	g.saveJob(ctx, job)
	g.emitUpdate(emit, job, balance)

	// 5. Drive to a terminal state.
	poller := NewPollingOrchestrator(g.provider, g.policies, g.clock, g.log)
	outcome := poller.Run(ctx, job, handle, func(j *model.GenerationJob) {
		g.saveJob(ctx, j)
		g.emitUpdate(emit, j, ledger.Read())
	})

	metrics.IncGeneration(string(req.Modality), string(outcome.State))

	switch outcome.State {
	case model.JobStateCompleted:
		// 6. Paid outcome: the reservation stays debited.
		return job, nil
	default:
		// 7. Failed, timed out or cancelled: give the credit back once.
		refund()
		g.emitUpdate(emit, job, balance)
		return job, outcome.Err
	}
}

func (g *generationUC) History(ctx context.Context, userID string, limit int) ([]*model.GenerationJob, error) {
	if limit <= 0 {
		limit = 50
	}
	return g.jobs.ListByUser(ctx, nil, userID, limit)
}

func (g *generationUC) saveJob(ctx context.Context, job *model.GenerationJob) {
	if g.jobs == nil {
		return
	}
	if err := g.jobs.Save(context.WithoutCancel(ctx), nil, job); err != nil {
		g.log.Error().Err(err).Str("job_id", job.ID).Msg("persist job state")
	}
}

func (g *generationUC) emitUpdate(emit func(JobUpdate), job *model.GenerationJob, balance model.CreditBalance) {
	if emit == nil {
		return
	}
	emit(JobUpdate{Job: *job, Balance: balance})
}
