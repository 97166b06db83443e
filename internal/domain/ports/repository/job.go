package repository

import (
	"context"

	"creative-ai-studio/internal/domain/model"
)

// GenerationJobRepository persists job history. Save upserts by job ID.
type GenerationJobRepository interface {
	Save(ctx context.Context, qx any, job *model.GenerationJob) error
	FindByID(ctx context.Context, qx any, id string) (*model.GenerationJob, error)
	ListByUser(ctx context.Context, qx any, userID string, limit int) ([]*model.GenerationJob, error)

	// ListStuck returns non-terminal jobs not updated since the cutoff.
	ListStuck(ctx context.Context, qx any, olderThanSeconds int) ([]*model.GenerationJob, error)
}
