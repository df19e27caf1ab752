package handlers

import (
	"encoding/json"
	"net/http"

	"storybook/internal/domain"
	"storybook/internal/normalize"
	"storybook/internal/prompt"
)

type captionRequest struct {
	Image domain.ImageRecord `json:"image"`
}

type captionResponse struct {
	OrderIndex int    `json:"orderIndex"`
	Caption    string `json:"caption"`
}

// CaptionCreate runs the stateless caption path: validate one image, build
// the analyst prompt, issue one gateway call, normalize the reply.
func (a *App) CaptionCreate(w http.ResponseWriter, r *http.Request) {
	var req captionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, domain.KindValidation, "invalid payload: "+err.Error())
		return
	}
	if err := domain.ValidateImage(req.Image); err != nil {
		a.fail(w, err)
		return
	}
	raw, err := a.Gateway.Send(r.Context(), prompt.BuildCaptionPrompt(req.Image), a.CaptionModel)
	if err != nil {
		a.fail(w, err)
		return
	}
	text, err := normalize.Caption(raw)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, captionResponse{OrderIndex: req.Image.OrderIndex, Caption: text})
}
