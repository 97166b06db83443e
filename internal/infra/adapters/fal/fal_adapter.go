package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"creative-ai-studio/internal/config"
	"creative-ai-studio/internal/domain"
	"creative-ai-studio/internal/domain/model"
	"creative-ai-studio/internal/domain/ports/adapter"
	"creative-ai-studio/internal/infra/metrics"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.GenerationProviderAdapter = (*QueueAdapter)(nil)

// endpoint describes where one modality submits and which result shape
// it comes back with. The three modalities differ only in this data.
type endpoint struct {
	submitPath  string
	requestRoot string // status/result live under <root>/requests/<id>
	videoResult bool
}

var endpoints = map[model.Modality]endpoint{
	model.ModalityTextToImage: {
		submitPath:  "/fal-ai/flux-pro/kontext/max/text-to-image",
		requestRoot: "/fal-ai/flux-pro",
	},
	model.ModalityImageToImage: {
		submitPath:  "/fal-ai/flux-pro/kontext/max",
		requestRoot: "/fal-ai/flux-pro",
	},
	model.ModalityImageToVideo: {
		submitPath:  "/fal-ai/kling-video/v1.6/pro/image-to-video",
		requestRoot: "/fal-ai/kling-video",
		videoResult: true,
	},
}

// QueueAdapter talks to a fal.run-style queue API: POST the request to a
// modality endpoint, then GET status and result by request id. Single
// calls only; the polling orchestrator owns retries.
type QueueAdapter struct {
	key    string
	base   string // e.g. https://queue.fal.run
	client *http.Client
}

func NewQueueAdapter(cfg config.ProviderConfig) (*QueueAdapter, error) {
	if cfg.Key == "" {
		return nil, errors.New("provider key empty")
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://queue.fal.run"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &QueueAdapter{
		key:    cfg.Key,
		base:   base,
		client: &http.Client{Timeout: timeout},
	}, nil
}

func (q *QueueAdapter) Submit(ctx context.Context, req *model.GenerationRequest) (adapter.JobHandle, error) {
	ep, ok := endpoints[req.Modality]
	if !ok {
		return adapter.JobHandle{}, domain.ErrInvalidArgument
	}

	body := map[string]any{"prompt": req.Prompt}
	if req.Modality != model.ModalityImageToVideo {
		width, height := req.Resolution()
		body["width"] = width
		body["height"] = height
	}
	if req.SourceImageURL != "" {
		body["image_url"] = req.SourceImageURL
	}

	var payload struct {
		RequestID string `json:"request_id"`
	}
	if err := q.call(ctx, http.MethodPost, q.base+ep.submitPath, body, &payload, "submit"); err != nil {
		return adapter.JobHandle{}, err
	}
	if payload.RequestID == "" {
		return adapter.JobHandle{}, fmt.Errorf("provider accepted submit without a request id")
	}
	return adapter.JobHandle{RequestID: payload.RequestID, Modality: req.Modality}, nil
}

func (q *QueueAdapter) PollOnce(ctx context.Context, handle adapter.JobHandle) (model.ProviderStatus, error) {
	ep, ok := endpoints[handle.Modality]
	if !ok {
		return "", domain.ErrInvalidArgument
	}
	var payload struct {
		Status string `json:"status"` // IN_QUEUE | IN_PROGRESS | COMPLETED | FAILED
	}
	url := fmt.Sprintf("%s%s/requests/%s/status", q.base, ep.requestRoot, handle.RequestID)
	if err := q.call(ctx, http.MethodGet, url, nil, &payload, "status"); err != nil {
		return "", err
	}
	switch model.ProviderStatus(payload.Status) {
	case model.ProviderStatusInQueue, model.ProviderStatusInProgress,
		model.ProviderStatusCompleted, model.ProviderStatusFailed:
		return model.ProviderStatus(payload.Status), nil
	default:
		return "", fmt.Errorf("unknown provider status %q", payload.Status)
	}
}

func (q *QueueAdapter) FetchResult(ctx context.Context, handle adapter.JobHandle) (adapter.Artifact, error) {
	ep, ok := endpoints[handle.Modality]
	if !ok {
		return adapter.Artifact{}, domain.ErrInvalidArgument
	}
	url := fmt.Sprintf("%s%s/requests/%s", q.base, ep.requestRoot, handle.RequestID)

	if ep.videoResult {
		var payload struct {
			Video struct {
				URL string `json:"url"`
			} `json:"video"`
		}
		if err := q.call(ctx, http.MethodGet, url, nil, &payload, "result"); err != nil {
			return adapter.Artifact{}, err
		}
		if payload.Video.URL == "" {
			return adapter.Artifact{}, domain.ErrEmptyResult
		}
		return adapter.Artifact{URLs: []string{payload.Video.URL}}, nil
	}

	var payload struct {
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	}
	if err := q.call(ctx, http.MethodGet, url, nil, &payload, "result"); err != nil {
		return adapter.Artifact{}, err
	}
	urls := make([]string, 0, len(payload.Images))
	for _, img := range payload.Images {
		if img.URL != "" {
			urls = append(urls, img.URL)
		}
	}
	if len(urls) == 0 {
		return adapter.Artifact{}, domain.ErrEmptyResult
	}
	return adapter.Artifact{URLs: urls}, nil
}

func (q *QueueAdapter) call(ctx context.Context, method, url string, body any, out any, label string) error {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Key "+q.key)

	start := time.Now()
	resp, err := q.client.Do(req)
	latency := int(time.Since(start) / time.Millisecond)
	if err != nil {
		metrics.ObserveProviderCall(label, latency, false)
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		metrics.ObserveProviderCall(label, latency, false)
		return fmt.Errorf("provider http %d", resp.StatusCode)
	}
	metrics.ObserveProviderCall(label, latency, true)
	return json.NewDecoder(resp.Body).Decode(out)
}
