package model

// ImagePlan is the subscription tier gating image generation.
// Tiers form a total order via Level; unknown values behave as free.
type ImagePlan string

const (
	ImagePlanFree    ImagePlan = "free"
	ImagePlanStarter ImagePlan = "starter"
	ImagePlanPro     ImagePlan = "pro"
	ImagePlanPremium ImagePlan = "premium"
)

func (p ImagePlan) Level() int {
	switch p {
	case ImagePlanStarter:
		return 1
	case ImagePlanPro:
		return 2
	case ImagePlanPremium:
		return 3
	default:
		return 0
	}
}

// VideoPlan gates video generation; it is independent of image tiers.
type VideoPlan string

const (
	VideoPlanFree    VideoPlan = "free"
	VideoPlanStarter VideoPlan = "video-starter"
)

// UserPlan is read-only input to the core; it changes only through the
// external billing collaborator.
type UserPlan struct {
	ImagePlan ImagePlan `json:"image_plan"`
	VideoPlan VideoPlan `json:"video_plan"`
}

// ResolutionOption is an entry in the static output-size catalog.
// An option is selectable when the account's image tier level is at
// least PlanRequired's level.
type ResolutionOption struct {
	Label        string    `json:"label"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	PlanRequired ImagePlan `json:"plan_required"`
}

// ResolutionCatalog lists every output size the provider accepts.
var ResolutionCatalog = []ResolutionOption{
	{Label: "512 × 512", Width: 512, Height: 512, PlanRequired: ImagePlanFree},
	{Label: "1024 × 1024", Width: 1024, Height: 1024, PlanRequired: ImagePlanFree},
	{Label: "2048 × 2048", Width: 2048, Height: 2048, PlanRequired: ImagePlanPro},
}

// FindResolution looks up a catalog entry by exact size.
func FindResolution(width, height int) (ResolutionOption, bool) {
	for _, opt := range ResolutionCatalog {
		if opt.Width == width && opt.Height == height {
			return opt, true
		}
	}
	return ResolutionOption{}, false
}
