package adapter

import (
	"context"

	"creative-ai-studio/internal/domain/model"
)

// JobHandle identifies a submitted request at the provider.
type JobHandle struct {
	RequestID string
	Modality  model.Modality
}

// Artifact is what a completed job produced: one or more image URLs,
// or exactly one video URL.
type Artifact struct {
	URLs []string
}

// GenerationProviderAdapter is the port for the remote queue-based
// inference provider. Implementations perform single calls only;
// retry policy lives in the polling orchestrator.
type GenerationProviderAdapter interface {
	// Submit enqueues the request and returns the provider's handle.
	Submit(ctx context.Context, req *model.GenerationRequest) (JobHandle, error)

	// PollOnce reports the current queue status for the handle.
	PollOnce(ctx context.Context, handle JobHandle) (model.ProviderStatus, error)

	// FetchResult retrieves the artifact; only valid once the status is
	// COMPLETED. Completion without a usable artifact is domain.ErrEmptyResult.
	FetchResult(ctx context.Context, handle JobHandle) (Artifact, error)
}
