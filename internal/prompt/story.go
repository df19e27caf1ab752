package prompt

import (
	"fmt"
	"sort"
	"strings"

	"storybook/internal/domain"
)

// Defaults applied when the caller left the well-known context keys empty.
const (
	DefaultPurpose = "Special occasion"
	DefaultMood    = "Joyful and memorable"
)

// CoordinateDecimals is the rounding applied to GPS pairs in the rendered
// prompt.
const CoordinateDecimals = 4

const storyFraming = "You are a warm, evocative storyteller writing a photo album narrative. " +
	"Using the photos, their captions and the answers below, write one page of story per photo, " +
	"keeping a single thread flowing across the album.\n" +
	`Respond with only raw JSON matching {"pages":[{"orderIndex":N,"narrativeText":"..."}]}. ` +
	"Do not wrap the JSON in markdown code fences or add any other text."

// BuildStoryPrompt turns the ordered image set, their captions and the
// global context into one instruction for the storytelling model. Images are
// rendered in ascending OrderIndex regardless of input order; a missing
// caption renders as an empty string and captions without a matching image
// are ignored.
func BuildStoryPrompt(images []domain.ImageRecord, captions []domain.CaptionRecord, global domain.GlobalContext) string {
	sorted := make([]domain.ImageRecord, len(images))
	copy(sorted, images)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].OrderIndex < sorted[j].OrderIndex })

	byIndex := make(map[int]string, len(captions))
	for _, c := range captions {
		byIndex[c.OrderIndex] = c.Text
	}

	sb := &strings.Builder{}
	sb.WriteString(storyFraming)
	sb.WriteString("\n\n")
	sb.WriteString(renderGlobal(global))
	sb.WriteString("\n\nPhotos:\n")
	for _, img := range sorted {
		fmt.Fprintf(sb, "Photo %d%s: %s\n", img.OrderIndex, metadataClause(img.Metadata), byIndex[img.OrderIndex])
	}
	return sb.String()
}

func renderGlobal(g domain.GlobalContext) string {
	purpose := g.Purpose
	if purpose == "" {
		purpose = DefaultPurpose
	}
	mood := g.Mood
	if mood == "" {
		mood = DefaultMood
	}
	lines := []string{"Event: " + purpose, "Mood: " + mood}
	for _, e := range g.Extras() {
		lines = append(lines, e.Key+": "+e.Value)
	}
	return strings.Join(lines, "\n")
}

// metadataClause renders the parenthesized capture facts for one photo, or
// the empty string when no metadata is present. Empty parentheses never
// appear.
func metadataClause(m *domain.PhotoMetadata) string {
	if m == nil {
		return ""
	}
	var parts []string
	if m.TakenAt != nil {
		parts = append(parts, m.TakenAt.Format("January 2, 2006"))
	}
	if m.HasLocation() {
		parts = append(parts, fmt.Sprintf("%.*f, %.*f", CoordinateDecimals, *m.Latitude, CoordinateDecimals, *m.Longitude))
	}
	if m.Device != "" {
		parts = append(parts, m.Device)
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
