// File: internal/usecase/entitlement_uc.go
package usecase

import (
	"creative-ai-studio/internal/domain/model"
)

// Compile-time check
var _ EntitlementUseCase = (*entitlementUC)(nil)

// EntitlementUseCase maps a plan to what it may generate. Pure, no I/O.
type EntitlementUseCase interface {
	AllowedResolutions(plan model.UserPlan) []model.ResolutionOption
	CostOf(modality model.Modality) int
	IsResolutionAllowed(opt model.ResolutionOption, plan model.UserPlan) bool
}

type entitlementUC struct{}

func NewEntitlementUseCase() *entitlementUC {
	return &entitlementUC{}
}

// Fixed per-generation pricing: one image credit per image job, two
// video credits per video job. Not configurable per request.
const (
	imageGenerationCost = 1
	videoGenerationCost = 2
)

func (e *entitlementUC) CostOf(modality model.Modality) int {
	if modality == model.ModalityImageToVideo {
		return videoGenerationCost
	}
	return imageGenerationCost
}

func (e *entitlementUC) IsResolutionAllowed(opt model.ResolutionOption, plan model.UserPlan) bool {
	// Unknown tiers level to 0 and therefore behave as free.
	return plan.ImagePlan.Level() >= opt.PlanRequired.Level()
}

func (e *entitlementUC) AllowedResolutions(plan model.UserPlan) []model.ResolutionOption {
	out := make([]model.ResolutionOption, 0, len(model.ResolutionCatalog))
	for _, opt := range model.ResolutionCatalog {
		if e.IsResolutionAllowed(opt, plan) {
			out = append(out, opt)
		}
	}
	return out
}
