package domain

import (
	"fmt"
	"regexp"
)

// Request bounds. MaxCaptionLen is the single caption-length bound shared by
// the caption and story paths.
const (
	MaxImages     = 15
	MaxCaptions   = 15
	MaxCaptionLen = 2000
)

// Recognized embedded-image payloads. Anything else is rejected before a
// prompt is built.
var imagePrefixRe = regexp.MustCompile(`^data:image/(jpeg|jpg|png|webp|gif|heic);base64,`)

// StoryRequest is the inbound story-generation payload.
type StoryRequest struct {
	Images        []ImageRecord   `json:"images"`
	Contexts      []CaptionRecord `json:"contexts"`
	GlobalAnswers GlobalContext   `json:"globalAnswers"`
}

// ValidateStoryRequest checks shape and bounds of a story request. It
// performs no I/O. All violations are collected into one ValidationError.
// GlobalAnswers is deliberately unchecked here: defaults for missing keys
// are applied by the prompt builder, not by validation.
func ValidateStoryRequest(req StoryRequest) error {
	var violations []string
	violations = append(violations, imageViolations(req.Images)...)
	violations = append(violations, captionViolations(req.Contexts)...)
	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// ValidateImage checks a single image, for the caption endpoint.
func ValidateImage(img ImageRecord) error {
	if violations := imageViolations([]ImageRecord{img}); len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// ValidateImages checks an already-processed image set, the orchestrator's
// post-hoc check after file processing.
func ValidateImages(images []ImageRecord) error {
	if violations := imageViolations(images); len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

func imageViolations(images []ImageRecord) []string {
	var violations []string
	if len(images) == 0 {
		violations = append(violations, "images: at least one image is required")
	}
	if len(images) > MaxImages {
		violations = append(violations, fmt.Sprintf("images: at most %d images allowed, got %d", MaxImages, len(images)))
	}
	seen := make(map[int]struct{}, len(images))
	for i, img := range images {
		if img.OrderIndex <= 0 {
			violations = append(violations, fmt.Sprintf("images[%d]: orderIndex must be a positive integer, got %d", i, img.OrderIndex))
		} else if _, dup := seen[img.OrderIndex]; dup {
			violations = append(violations, fmt.Sprintf("images[%d]: duplicate orderIndex %d", i, img.OrderIndex))
		} else {
			seen[img.OrderIndex] = struct{}{}
		}
		if img.EncodedImage == "" {
			violations = append(violations, fmt.Sprintf("images[%d]: base64 payload is empty", i))
		} else if !imagePrefixRe.MatchString(img.EncodedImage) {
			violations = append(violations, fmt.Sprintf("images[%d]: base64 payload is not a recognized image data URL", i))
		}
		if m := img.Metadata; m != nil {
			if (m.Latitude == nil) != (m.Longitude == nil) {
				violations = append(violations, fmt.Sprintf("images[%d]: latitude and longitude must be provided together", i))
			}
			if m.Latitude != nil && (*m.Latitude < -90 || *m.Latitude > 90) {
				violations = append(violations, fmt.Sprintf("images[%d]: latitude out of range", i))
			}
			if m.Longitude != nil && (*m.Longitude < -180 || *m.Longitude > 180) {
				violations = append(violations, fmt.Sprintf("images[%d]: longitude out of range", i))
			}
		}
	}
	return violations
}

func captionViolations(contexts []CaptionRecord) []string {
	var violations []string
	if len(contexts) > MaxCaptions {
		violations = append(violations, fmt.Sprintf("contexts: at most %d captions allowed, got %d", MaxCaptions, len(contexts)))
	}
	for i, c := range contexts {
		if len(c.Text) == 0 {
			violations = append(violations, fmt.Sprintf("contexts[%d]: text must not be empty", i))
		} else if len(c.Text) > MaxCaptionLen {
			violations = append(violations, fmt.Sprintf("contexts[%d]: text exceeds %d characters", i, MaxCaptionLen))
		}
	}
	return violations
}
