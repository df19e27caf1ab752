package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"storybook/internal/domain"
	"storybook/internal/story"
	"storybook/pkg/archive"
)

func (a *App) newWorkflow() *story.Workflow {
	return story.New(story.Options{
		Gateway:      a.Gateway,
		Processor:    a.Processor,
		CaptionModel: a.CaptionModel,
		StoryModel:   a.StoryModel,
		Logger:       a.Log,
	})
}

func (a *App) workflow(w http.ResponseWriter, r *http.Request) (*story.Workflow, bool) {
	id := chi.URLParam(r, "id")
	wf, ok := a.Workflows.Get(id)
	if !ok {
		a.error(w, http.StatusNotFound, domain.KindValidation, "workflow not found")
		return nil, false
	}
	return wf, true
}

type workflowCreated struct {
	WorkflowID string      `json:"workflow_id"`
	State      story.State `json:"state"`
}

// WorkflowCreate registers a fresh workflow and returns its id.
func (a *App) WorkflowCreate(w http.ResponseWriter, r *http.Request) {
	wf := a.newWorkflow()
	id := a.Workflows.Create(wf)
	a.json(w, http.StatusCreated, workflowCreated{WorkflowID: id, State: wf.Snapshot()})
}

// WorkflowGet returns a state snapshot.
func (a *App) WorkflowGet(w http.ResponseWriter, r *http.Request) {
	wf, ok := a.workflow(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, wf.Snapshot())
}

// WorkflowDelete resets the workflow and drops it from the registry.
func (a *App) WorkflowDelete(w http.ResponseWriter, r *http.Request) {
	wf, ok := a.workflow(w, r)
	if !ok {
		return
	}
	wf.Reset()
	a.Workflows.Delete(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// WorkflowUploadImages accepts a multipart upload and runs the
// image-processing phase over it.
func (a *App) WorkflowUploadImages(w http.ResponseWriter, r *http.Request) {
	wf, ok := a.workflow(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, a.Config.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			a.error(w, http.StatusRequestEntityTooLarge, domain.KindValidation, "upload exceeds size limit")
			return
		}
		a.error(w, http.StatusBadRequest, domain.KindValidation, "invalid multipart payload: "+err.Error())
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}
	files := make([]story.File, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			a.error(w, http.StatusBadRequest, domain.KindValidation, "unreadable file "+h.Filename)
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			a.error(w, http.StatusBadRequest, domain.KindValidation, "unreadable file "+h.Filename)
			return
		}
		files = append(files, story.File{Name: h.Filename, Data: data})
	}
	if err := wf.ProcessFiles(r.Context(), files); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, wf.Snapshot())
}

// WorkflowSetAnswers replaces the workflow's global context.
func (a *App) WorkflowSetAnswers(w http.ResponseWriter, r *http.Request) {
	wf, ok := a.workflow(w, r)
	if !ok {
		return
	}
	var global domain.GlobalContext
	if err := json.NewDecoder(r.Body).Decode(&global); err != nil {
		a.error(w, http.StatusBadRequest, domain.KindValidation, "invalid payload: "+err.Error())
		return
	}
	wf.SetGlobalAnswers(global)
	a.json(w, http.StatusOK, wf.Snapshot())
}

// WorkflowGenerateCaptions runs the caption fan-out phase.
func (a *App) WorkflowGenerateCaptions(w http.ResponseWriter, r *http.Request) {
	wf, ok := a.workflow(w, r)
	if !ok {
		return
	}
	if err := wf.GenerateCaptions(r.Context()); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, wf.Snapshot())
}

// WorkflowGenerateStory runs the story phase and returns the page list.
func (a *App) WorkflowGenerateStory(w http.ResponseWriter, r *http.Request) {
	wf, ok := a.workflow(w, r)
	if !ok {
		return
	}
	if err := wf.GenerateStory(r.Context()); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, storyResponse{Pages: wf.Snapshot().Pages})
}

// WorkflowExport downloads the finished album as a zip: the page list as
// JSON plus the processed photos.
func (a *App) WorkflowExport(w http.ResponseWriter, r *http.Request) {
	wf, ok := a.workflow(w, r)
	if !ok {
		return
	}
	snap := wf.Snapshot()
	if len(snap.Pages) == 0 {
		a.error(w, http.StatusBadRequest, domain.KindValidation, "story has not been generated yet")
		return
	}
	storyJSON, err := json.MarshalIndent(storyResponse{Pages: snap.Pages}, "", "  ")
	if err != nil {
		a.fail(w, err)
		return
	}
	files := []archive.File{{Name: "story.json", Data: storyJSON}}
	for _, img := range snap.Images {
		data := decodeDataURL(img.EncodedImage)
		if data == nil {
			continue
		}
		files = append(files, archive.File{Name: fmt.Sprintf("photo-%d.jpg", img.OrderIndex), Data: data})
	}
	bundle, err := archive.Build(files)
	if err != nil {
		a.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="album.zip"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(bundle)
}

func decodeDataURL(encoded string) []byte {
	_, payload, found := strings.Cut(encoded, ";base64,")
	if !found {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil
	}
	return data
}
