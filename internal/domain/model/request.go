package model

import (
	"strings"

	"creative-ai-studio/internal/domain"
)

type Modality string

const (
	ModalityTextToImage  Modality = "text-to-image"
	ModalityImageToImage Modality = "image-to-image"
	ModalityImageToVideo Modality = "image-to-video"
)

// CreditKind maps a modality to the credit pool it draws from.
func (m Modality) CreditKind() CreditKind {
	if m == ModalityImageToVideo {
		return CreditKindVideo
	}
	return CreditKindImage
}

func (m Modality) Valid() bool {
	switch m {
	case ModalityTextToImage, ModalityImageToImage, ModalityImageToVideo:
		return true
	}
	return false
}

// GenerationRequest is the user's intent as handed over by the presentation layer.
// Width/Height are only meaningful for image modalities and default to 1024.
type GenerationRequest struct {
	Modality       Modality `json:"modality"`
	Prompt         string   `json:"prompt"`
	SourceImageURL string   `json:"source_image_url,omitempty"`
	Width          int      `json:"width,omitempty"`
	Height         int      `json:"height,omitempty"`
}

// Validate enforces the per-modality input invariants:
// a source image is required for everything except text-to-image,
// and a prompt is required for the image modalities (video prompts
// describe motion and are optional).
func (r *GenerationRequest) Validate() error {
	if !r.Modality.Valid() {
		return domain.ErrInvalidArgument
	}
	prompt := strings.TrimSpace(r.Prompt)
	switch r.Modality {
	case ModalityTextToImage:
		if prompt == "" {
			return domain.ErrInvalidArgument
		}
	case ModalityImageToImage:
		if prompt == "" || r.SourceImageURL == "" {
			return domain.ErrInvalidArgument
		}
	case ModalityImageToVideo:
		if r.SourceImageURL == "" {
			return domain.ErrInvalidArgument
		}
	}
	if r.Width < 0 || r.Height < 0 {
		return domain.ErrInvalidArgument
	}
	return nil
}

// Resolution returns the effective output size for image modalities.
func (r *GenerationRequest) Resolution() (width, height int) {
	width, height = r.Width, r.Height
	if width == 0 {
		width = 1024
	}
	if height == 0 {
		height = 1024
	}
	return width, height
}
