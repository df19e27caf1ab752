package handlers

import (
	"encoding/json"
	"net/http"

	"storybook/internal/domain"
	"storybook/internal/normalize"
	"storybook/internal/prompt"
)

type storyResponse struct {
	Pages []domain.PageRecord `json:"pages"`
}

// StoryCreate runs the stateless story path: validate the whole request,
// build the storyteller prompt, issue the single gateway call, parse the
// page list.
func (a *App) StoryCreate(w http.ResponseWriter, r *http.Request) {
	var req domain.StoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, domain.KindValidation, "invalid payload: "+err.Error())
		return
	}
	if err := domain.ValidateStoryRequest(req); err != nil {
		a.fail(w, err)
		return
	}
	raw, err := a.Gateway.Send(r.Context(), prompt.BuildStoryPrompt(req.Images, req.Contexts, req.GlobalAnswers), a.StoryModel)
	if err != nil {
		a.fail(w, err)
		return
	}
	pages, err := normalize.Story(raw)
	if err != nil {
		a.fail(w, err)
		return
	}
	if len(pages) != len(req.Images) {
		a.Log.Warn().Int("pages", len(pages)).Int("images", len(req.Images)).Msg("page count differs from image count")
	}
	a.json(w, http.StatusOK, storyResponse{Pages: pages})
}
