package fal

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"creative-ai-studio/internal/domain/model"
	"creative-ai-studio/internal/domain/ports/adapter"
)

var _ adapter.GenerationProviderAdapter = (*NoopAdapter)(nil)

// NoopAdapter fakes the provider for dev mode: every submission is
// accepted, sits in queue for a couple of polls, then completes with a
// placeholder artifact.
type NoopAdapter struct {
	seq   atomic.Int64
	mu    sync.Mutex
	polls map[string]int
}

func NewNoopAdapter() *NoopAdapter {
	return &NoopAdapter{polls: make(map[string]int)}
}

func (n *NoopAdapter) Submit(ctx context.Context, req *model.GenerationRequest) (adapter.JobHandle, error) {
	id := fmt.Sprintf("noop-%d", n.seq.Add(1))
	return adapter.JobHandle{RequestID: id, Modality: req.Modality}, nil
}

func (n *NoopAdapter) PollOnce(ctx context.Context, handle adapter.JobHandle) (model.ProviderStatus, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.polls[handle.RequestID]++
	switch n.polls[handle.RequestID] {
	case 1:
		return model.ProviderStatusInQueue, nil
	case 2:
		return model.ProviderStatusInProgress, nil
	default:
		return model.ProviderStatusCompleted, nil
	}
}

func (n *NoopAdapter) FetchResult(ctx context.Context, handle adapter.JobHandle) (adapter.Artifact, error) {
	if handle.Modality == model.ModalityImageToVideo {
		return adapter.Artifact{URLs: []string{"https://example.invalid/" + handle.RequestID + ".mp4"}}, nil
	}
	return adapter.Artifact{URLs: []string{"https://example.invalid/" + handle.RequestID + ".png"}}, nil
}
