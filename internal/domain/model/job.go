package model

import (
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// JobState is the orchestrator-owned lifecycle of a generation job.
// Terminal states (completed, failed, timed_out, cancelled) are final.
type JobState string

const (
	JobStateSubmitted JobState = "submitted"
	JobStatePolling   JobState = "polling"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
	JobStateTimedOut  JobState = "timed_out"
	JobStateCancelled JobState = "cancelled"
)

func (s JobState) Terminal() bool {
	switch s {
	case JobStateCompleted, JobStateFailed, JobStateTimedOut, JobStateCancelled:
		return true
	}
	return false
}

// ProviderStatus is what the remote queue reports for a request.
type ProviderStatus string

const (
	ProviderStatusInQueue    ProviderStatus = "IN_QUEUE"
	ProviderStatusInProgress ProviderStatus = "IN_PROGRESS"
	ProviderStatusCompleted  ProviderStatus = "COMPLETED"
	ProviderStatusFailed     ProviderStatus = "FAILED"
)

// GenerationJob tracks one submission from acceptance to terminal state.
// RequestID is the opaque handle assigned by the provider; ID is ours.
type GenerationJob struct {
	ID           string    `json:"id"`
	RequestID    string    `json:"request_id"`
	UserID       string    `json:"user_id"`
	Modality     Modality  `json:"modality"`
	State        JobState  `json:"state"`
	ArtifactURLs []string  `json:"artifact_urls,omitempty"`
	Cause        string    `json:"cause,omitempty"`
	SubmittedAt  time.Time `json:"submitted_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func NewGenerationJob(userID string, modality Modality, requestID string) *GenerationJob {
	now := time.Now()
	return &GenerationJob{
		ID:          ulid.MustNew(ulid.Timestamp(now), rand.New(rand.NewSource(now.UnixNano()))).String(),
		RequestID:   requestID,
		UserID:      userID,
		Modality:    modality,
		State:       JobStateSubmitted,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
}

// Transition moves the job forward; terminal states never resurrect.
func (j *GenerationJob) Transition(next JobState) bool {
	if j.State.Terminal() {
		return false
	}
	j.State = next
	j.UpdatedAt = time.Now()
	return true
}
