package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"storybook/internal/domain"
	"storybook/internal/gateway"
	"storybook/internal/infra"
	"storybook/internal/session"
	"storybook/internal/story"
)

// App is the handler container: gateway client, model configs, file
// processor and the live-workflow registry.
type App struct {
	Config    *infra.Config
	Log       zerolog.Logger
	Gateway   story.Gateway
	Processor story.FileProcessor
	Workflows *session.Registry

	CaptionModel gateway.ModelConfig
	StoryModel   gateway.ModelConfig
}

// NewApp wires the container from config and collaborators.
func NewApp(cfg *infra.Config, log zerolog.Logger, gw story.Gateway, proc story.FileProcessor) *App {
	return &App{
		Config:    cfg,
		Log:       log,
		Gateway:   gw,
		Processor: proc,
		Workflows: session.NewRegistry(cfg.WorkflowTTL),
		CaptionModel: gateway.ModelConfig{
			Model:       cfg.CaptionModel,
			MaxTokens:   cfg.CaptionMaxTokens,
			Temperature: cfg.CaptionTemperature,
			Timeout:     cfg.CaptionTimeout,
		},
		StoryModel: gateway.ModelConfig{
			Model:       cfg.StoryModel,
			MaxTokens:   cfg.StoryMaxTokens,
			Temperature: cfg.StoryTemperature,
			Timeout:     cfg.StoryTimeout,
		},
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, errorBody{Error: kind, Message: message})
}

// fail maps an error to the stable kind + status pair: validation → 400,
// gateway → 502, anything else → 500.
func (a *App) fail(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		a.error(w, http.StatusBadRequest, domain.KindValidation, ve.Error())
		return
	}
	var ge *domain.GatewayError
	if errors.As(err, &ge) {
		a.error(w, http.StatusBadGateway, domain.KindGateway, ge.Error())
		return
	}
	a.Log.Error().Err(err).Msg("unhandled error")
	a.error(w, http.StatusInternalServerError, domain.KindUnknown, err.Error())
}

// Health reports liveness.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
