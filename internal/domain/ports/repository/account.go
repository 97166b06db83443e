package repository

import (
	"context"

	"creative-ai-studio/internal/domain/model"
)

// AccountRepository is the narrow contract against the identity/ledger
// store: read the principal, persist absolute balances.
type AccountRepository interface {
	FindByID(ctx context.Context, qx any, id string) (*model.Account, error)
	FindByEmail(ctx context.Context, qx any, email string) (*model.Account, error)
	Save(ctx context.Context, qx any, a *model.Account) error

	// UpdateBalance persists the absolute balance for the account
	// (last-writer-wins, per the accepted multi-device race).
	UpdateBalance(ctx context.Context, qx any, id string, balance model.CreditBalance) error
}
