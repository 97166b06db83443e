package model

import (
	"time"

	"creative-ai-studio/internal/domain"

	"github.com/google/uuid"
)

// Account is the authenticated principal as supplied by the identity store.
// The core reads plan and balance from it and writes back only balances,
// and only through the ledger.
type Account struct {
	ID           string
	Email        string
	Name         string
	Plan         UserPlan
	Balance      CreditBalance
	RegisteredAt time.Time
	LastActiveAt time.Time
}

func NewAccount(id, email, name string) (*Account, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if email == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Account{
		ID:           id,
		Email:        email,
		Name:         name,
		Plan:         UserPlan{ImagePlan: ImagePlanFree, VideoPlan: VideoPlanFree},
		Balance:      CreditBalance{ImageCredits: 2},
		RegisteredAt: now,
		LastActiveAt: now,
	}, nil
}

func (a *Account) IsZero() bool { return a == nil || a.ID == "" }
func (a *Account) Touch()       { a.LastActiveAt = time.Now() }
