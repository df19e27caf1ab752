// Package prompt builds the instruction strings sent to the captioning and
// storytelling models. Builders are pure functions of their input.
package prompt

import (
	"strings"

	"storybook/internal/domain"
)

const captionFraming = "You are an objective photo analyst. Describe exactly what is visible in the photo: " +
	"the main subjects, the setting, notable objects, and the lighting. " +
	"Write two or three factual sentences and avoid emotional speculation."

// BuildCaptionPrompt turns one image and its optional metadata into a single
// instruction for the captioning model. The embedded image reference is
// always present, even when no metadata exists.
func BuildCaptionPrompt(img domain.ImageRecord) string {
	sb := &strings.Builder{}
	sb.WriteString(captionFraming)
	if img.Metadata != nil && img.Metadata.Device != "" {
		sb.WriteString("\nThis photo was taken with a ")
		sb.WriteString(img.Metadata.Device)
		sb.WriteString(".")
	}
	sb.WriteString("\nPhoto: ")
	sb.WriteString(img.EncodedImage)
	return sb.String()
}
