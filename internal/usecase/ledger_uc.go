// File: internal/usecase/ledger_uc.go
package usecase

import (
	"context"
	"fmt"
	"sync"

	"creative-ai-studio/internal/domain"
	"creative-ai-studio/internal/domain/model"
	"creative-ai-studio/internal/domain/ports/repository"
	"creative-ai-studio/internal/infra/metrics"
)

// Compile-time check
var _ CreditLedger = (*creditLedger)(nil)

// CreditLedger owns the credit balances of one account for the lifetime
// of a session. Every mutation round-trips through the remote store
// before the in-memory mirror moves; a failed persistence call leaves
// the mirror exactly where the last confirmed write put it.
type CreditLedger interface {
	// Reserve debits amount from the given pool ahead of submission.
	// Fails with domain.ErrInsufficientCredits before any remote call
	// when the pool cannot cover it.
	Reserve(ctx context.Context, kind model.CreditKind, amount int) (model.CreditBalance, error)

	// Refund credits amount back. Not idempotent: the coordinator
	// invokes it at most once per job.
	Refund(ctx context.Context, kind model.CreditKind, amount int) (model.CreditBalance, error)

	// Read returns the last-confirmed mirror without a remote fetch.
	Read() model.CreditBalance
}

type creditLedger struct {
	accounts repository.AccountRepository
	userID   string

	mu     sync.Mutex
	mirror model.CreditBalance
}

func NewCreditLedger(accounts repository.AccountRepository, userID string, current model.CreditBalance) *creditLedger {
	return &creditLedger{accounts: accounts, userID: userID, mirror: current}
}

func (l *creditLedger) Reserve(ctx context.Context, kind model.CreditKind, amount int) (model.CreditBalance, error) {
	if amount <= 0 {
		return l.Read(), domain.ErrInvalidArgument
	}
	return l.apply(ctx, kind, -amount)
}

func (l *creditLedger) Refund(ctx context.Context, kind model.CreditKind, amount int) (model.CreditBalance, error) {
	if amount <= 0 {
		return l.Read(), domain.ErrInvalidArgument
	}
	return l.apply(ctx, kind, amount)
}

func (l *creditLedger) Read() model.CreditBalance {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mirror
}

func (l *creditLedger) apply(ctx context.Context, kind model.CreditKind, delta int) (model.CreditBalance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next, err := l.mirror.Apply(kind, delta)
	if err != nil {
		return l.mirror, err
	}
	// Remote store is the source of truth for this write: persist first,
	// mirror only a confirmed value.
	if err := l.accounts.UpdateBalance(ctx, nil, l.userID, next); err != nil {
		metrics.IncLedgerFailure()
		return l.mirror, fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}
	l.mirror = next
	return next, nil
}
