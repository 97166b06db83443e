package usecase

import (
	"testing"

	"creative-ai-studio/internal/domain/model"
)

func TestEntitlement_CostOf(t *testing.T) {
	t.Parallel()

	uc := NewEntitlementUseCase()
	if got := uc.CostOf(model.ModalityTextToImage); got != 1 {
		t.Fatalf("text-to-image cost = %d, want 1", got)
	}
	if got := uc.CostOf(model.ModalityImageToImage); got != 1 {
		t.Fatalf("image-to-image cost = %d, want 1", got)
	}
	if got := uc.CostOf(model.ModalityImageToVideo); got != 2 {
		t.Fatalf("image-to-video cost = %d, want 2", got)
	}
}

func TestEntitlement_ResolutionGating(t *testing.T) {
	t.Parallel()

	uc := NewEntitlementUseCase()

	free := model.ResolutionOption{Width: 512, Height: 512, PlanRequired: model.ImagePlanFree}
	pro := model.ResolutionOption{Width: 2048, Height: 2048, PlanRequired: model.ImagePlanPro}
	premium := model.ResolutionOption{Width: 4096, Height: 4096, PlanRequired: model.ImagePlanPremium}

	cases := []struct {
		name string
		plan model.ImagePlan
		opt  model.ResolutionOption
		want bool
	}{
		{"free plan free option", model.ImagePlanFree, free, true},
		{"free plan pro option", model.ImagePlanFree, pro, false},
		{"starter plan pro option", model.ImagePlanStarter, pro, false},
		{"pro plan pro option", model.ImagePlanPro, pro, true},
		{"pro plan premium option", model.ImagePlanPro, premium, false},
		{"premium plan pro option", model.ImagePlanPremium, pro, true},
		{"premium plan premium option", model.ImagePlanPremium, premium, true},
		{"unknown plan behaves as free", model.ImagePlan("enterprise"), pro, false},
	}
	for _, tc := range cases {
		plan := model.UserPlan{ImagePlan: tc.plan}
		if got := uc.IsResolutionAllowed(tc.opt, plan); got != tc.want {
			t.Errorf("%s: IsResolutionAllowed = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestEntitlement_AllowedResolutions(t *testing.T) {
	t.Parallel()

	uc := NewEntitlementUseCase()

	freeOpts := uc.AllowedResolutions(model.UserPlan{ImagePlan: model.ImagePlanFree})
	for _, opt := range freeOpts {
		if opt.PlanRequired.Level() > model.ImagePlanFree.Level() {
			t.Fatalf("free plan offered gated option %+v", opt)
		}
	}

	proOpts := uc.AllowedResolutions(model.UserPlan{ImagePlan: model.ImagePlanPro})
	if len(proOpts) <= len(freeOpts) {
		t.Fatalf("pro plan should unlock more options: free=%d pro=%d", len(freeOpts), len(proOpts))
	}
	if len(proOpts) != len(model.ResolutionCatalog) {
		t.Fatalf("pro plan should see the whole catalog, got %d of %d", len(proOpts), len(model.ResolutionCatalog))
	}
}
