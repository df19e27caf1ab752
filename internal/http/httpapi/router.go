package httpapi

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"storybook/internal/http/handlers"
	"storybook/internal/middleware"
)

// NewRouter builds the chi router for the API surface.
func NewRouter(app *handlers.App, log zerolog.Logger, allowedOrigins []string) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP, chimw.Recoverer)
	r.Use(middleware.RequestID, middleware.Logger(log), middleware.CORS(allowedOrigins))

	r.Get("/v1/healthz", app.Health)

	r.Post("/v1/captions", app.CaptionCreate)
	r.Post("/v1/stories", app.StoryCreate)

	r.Route("/v1/workflows", func(r chi.Router) {
		r.Post("/", app.WorkflowCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", app.WorkflowGet)
			r.Delete("/", app.WorkflowDelete)
			r.Post("/images", app.WorkflowUploadImages)
			r.Post("/answers", app.WorkflowSetAnswers)
			r.Post("/captions", app.WorkflowGenerateCaptions)
			r.Post("/story", app.WorkflowGenerateStory)
			r.Get("/export", app.WorkflowExport)
		})
	})

	return r
}
