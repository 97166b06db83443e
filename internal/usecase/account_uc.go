// File: internal/usecase/account_uc.go
package usecase

import (
	"context"
	"errors"

	"creative-ai-studio/internal/domain"
	"creative-ai-studio/internal/domain/model"
	"creative-ai-studio/internal/domain/ports/repository"
	"creative-ai-studio/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ AccountUseCase = (*accountUC)(nil)

// AccountUseCase exposes account lookup and registration for the web layer.
type AccountUseCase interface {
	RegisterOrFetch(ctx context.Context, email, name string) (*model.Account, error)
	GetByID(ctx context.Context, id string) (*model.Account, error)
}

type accountUC struct {
	accounts repository.AccountRepository
	log      *zerolog.Logger
}

func NewAccountUseCase(accounts repository.AccountRepository, logger *zerolog.Logger) *accountUC {
	return &accountUC{accounts: accounts, log: logger}
}

func (u *accountUC) RegisterOrFetch(ctx context.Context, email, name string) (*model.Account, error) {
	defer logging.TraceDuration(u.log, "AccountUC.RegisterOrFetch")()

	acc, err := u.accounts.FindByEmail(ctx, nil, email)
	if err == nil {
		acc.Touch()
		if name != "" && acc.Name != name {
			acc.Name = name
		}
		if err := u.accounts.Save(ctx, nil, acc); err != nil {
			u.log.Error().Err(err).Msg("failed to update account")
			return nil, err
		}
		return acc, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	acc, err = model.NewAccount("", email, name)
	if err != nil {
		return nil, err
	}
	if err := u.accounts.Save(ctx, nil, acc); err != nil {
		// Lost a concurrent first-login race; the row exists now.
		if errors.Is(err, domain.ErrAlreadyExists) {
			return u.accounts.FindByEmail(ctx, nil, email)
		}
		return nil, err
	}
	u.log.Info().Str("user_id", acc.ID).Msg("account registered")
	return acc, nil
}

func (u *accountUC) GetByID(ctx context.Context, id string) (*model.Account, error) {
	defer logging.TraceDuration(u.log, "AccountUC.GetByID")()
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.accounts.FindByID(ctx, nil, id)
}
