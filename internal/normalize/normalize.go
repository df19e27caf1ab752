// Package normalize turns raw model output into typed records.
package normalize

import (
	"encoding/json"
	"strings"

	"storybook/internal/domain"
)

// Caption trims the raw captioning reply. An empty result is an upstream
// failure, not a validation failure: the input was already validated.
func Caption(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", &domain.GatewayError{Message: "empty caption from model"}
	}
	return text, nil
}

type storyPayload struct {
	Pages []domain.PageRecord `json:"pages"`
}

// Story parses the storytelling reply into the typed page list. The model is
// instructed not to emit markdown fences but may anyway, so a surrounding
// fence is stripped before parsing. A parse failure is a GatewayError and is
// never retried. Page entries are trusted as given; ordering and coverage of
// the input image set are not re-validated here.
func Story(raw string) ([]domain.PageRecord, error) {
	text := stripCodeFence(raw)
	if text == "" {
		return nil, &domain.GatewayError{Message: "malformed model output: empty story reply"}
	}
	var payload storyPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, &domain.GatewayError{Message: "malformed model output: " + err.Error()}
	}
	return payload.Pages, nil
}

// stripCodeFence removes one surrounding ``` or ```json fence, if present.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
