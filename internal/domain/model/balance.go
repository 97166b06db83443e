package model

import "creative-ai-studio/internal/domain"

type CreditKind string

const (
	CreditKindImage CreditKind = "image"
	CreditKindVideo CreditKind = "video"
)

// CreditBalance holds the two independent credit pools of an account.
// Balances never go negative; mutations happen only through the ledger.
type CreditBalance struct {
	ImageCredits int `json:"image_credits"`
	VideoCredits int `json:"video_credits"`
}

func (b CreditBalance) Of(kind CreditKind) int {
	if kind == CreditKindVideo {
		return b.VideoCredits
	}
	return b.ImageCredits
}

// Apply returns a copy with delta added to the given pool, rejecting
// anything that would drive the pool negative.
func (b CreditBalance) Apply(kind CreditKind, delta int) (CreditBalance, error) {
	next := b
	switch kind {
	case CreditKindImage:
		next.ImageCredits += delta
	case CreditKindVideo:
		next.VideoCredits += delta
	default:
		return b, domain.ErrInvalidArgument
	}
	if next.ImageCredits < 0 || next.VideoCredits < 0 {
		return b, domain.ErrInsufficientCredits
	}
	return next, nil
}
