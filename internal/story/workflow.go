// Package story sequences the photo-to-narrative workflow: process files,
// fan out caption calls, issue the single story call. One Workflow owns one
// WorkflowState; callers serialize phase invocations themselves.
package story

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"storybook/internal/domain"
	"storybook/internal/gateway"
	"storybook/internal/normalize"
	"storybook/internal/prompt"
)

// Phase is the single workflow phase tag. At most one phase is active at a
// time by construction.
type Phase string

const (
	PhaseIdle               Phase = "idle"
	PhaseProcessingImages   Phase = "processing_images"
	PhaseGeneratingCaptions Phase = "generating_captions"
	PhaseGeneratingStory    Phase = "generating_story"
	PhaseComplete           Phase = "complete"
	PhaseFailed             Phase = "failed"
)

// State is the workflow aggregate. Subscribers always receive a snapshot
// copy, never a live reference.
type State struct {
	Phase          Phase                  `json:"phase"`
	Images         []domain.ImageRecord   `json:"images"`
	Captions       []domain.CaptionRecord `json:"captions"`
	GlobalAnswers  domain.GlobalContext   `json:"globalAnswers"`
	Pages          []domain.PageRecord    `json:"pages,omitempty"`
	ProcessedCount int                    `json:"processedCount"`
	CaptionedCount int                    `json:"captionedCount"`
	Error          string                 `json:"error,omitempty"`
}

func (s State) clone() State {
	out := s
	out.Images = append([]domain.ImageRecord(nil), s.Images...)
	out.Captions = append([]domain.CaptionRecord(nil), s.Captions...)
	out.Pages = append([]domain.PageRecord(nil), s.Pages...)
	out.GlobalAnswers = s.GlobalAnswers.Clone()
	return out
}

// File is one raw uploaded file handed to the FileProcessor.
type File struct {
	Name string
	Data []byte
}

// FileProcessor is the external collaborator that turns a raw file into a
// validated ImageRecord. The orderIndex is assigned by the workflow from
// upload order.
type FileProcessor interface {
	Process(ctx context.Context, orderIndex int, file File) (domain.ImageRecord, error)
}

// Gateway is the outbound LLM boundary the workflow depends on.
type Gateway interface {
	Send(ctx context.Context, prompt string, cfg gateway.ModelConfig) (string, error)
}

// Options configures a Workflow.
type Options struct {
	Gateway      Gateway
	Processor    FileProcessor
	CaptionModel gateway.ModelConfig
	StoryModel   gateway.ModelConfig
	Logger       zerolog.Logger
}

// Workflow owns one WorkflowState and is its only writer. The mutex guards
// state because caption fan-out reports progress from worker goroutines;
// invoking two phases concurrently on the same instance remains unsupported.
type Workflow struct {
	mu        sync.Mutex
	state     State
	subs      map[int]func(State)
	nextSubID int

	gw         Gateway
	proc       FileProcessor
	captionCfg gateway.ModelConfig
	storyCfg   gateway.ModelConfig
	log        zerolog.Logger
}

// New builds an idle workflow.
func New(opts Options) *Workflow {
	return &Workflow{
		state:      State{Phase: PhaseIdle},
		subs:       make(map[int]func(State)),
		gw:         opts.Gateway,
		proc:       opts.Processor,
		captionCfg: opts.CaptionModel,
		storyCfg:   opts.StoryModel,
		log:        opts.Logger,
	}
}

// Subscribe registers a state-change listener and returns its unsubscribe
// capability. Listeners are called with snapshot copies; unsubscribing
// during a notification is safe.
func (w *Workflow) Subscribe(fn func(State)) (unsubscribe func()) {
	w.mu.Lock()
	id := w.nextSubID
	w.nextSubID++
	w.subs[id] = fn
	w.mu.Unlock()
	return func() {
		w.mu.Lock()
		delete(w.subs, id)
		w.mu.Unlock()
	}
}

// Snapshot returns a copy of the current state.
func (w *Workflow) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.clone()
}

// update applies a mutation under the lock, then notifies subscribers with a
// snapshot taken from an iteration copy of the listener list.
func (w *Workflow) update(mutate func(*State)) {
	w.mu.Lock()
	mutate(&w.state)
	snap := w.state.clone()
	fns := make([]func(State), 0, len(w.subs))
	for _, fn := range w.subs {
		fns = append(fns, fn)
	}
	w.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// fail records the failure into state, notifies subscribers and returns the
// error to the caller. No failure is swallowed.
func (w *Workflow) fail(phase Phase, err error) error {
	w.log.Error().Err(err).Str("phase", string(phase)).Msg("workflow phase failed")
	w.update(func(s *State) {
		s.Phase = PhaseFailed
		s.Error = err.Error()
	})
	return err
}

// ProcessFiles runs the image-processing phase: one collaborator call per
// file in upload order, progress published after every completed file, and a
// post-hoc validation of the resulting set. State is updated and subscribers
// notified on every exit path.
func (w *Workflow) ProcessFiles(ctx context.Context, files []File) error {
	if len(files) == 0 {
		return w.fail(PhaseProcessingImages, domain.NewValidationError("files: at least one file is required"))
	}
	if len(files) > domain.MaxImages {
		return w.fail(PhaseProcessingImages, domain.NewValidationError("files: at most %d files allowed, got %d", domain.MaxImages, len(files)))
	}
	w.update(func(s *State) {
		s.Phase = PhaseProcessingImages
		s.Error = ""
		s.Images = nil
		s.Captions = nil
		s.Pages = nil
		s.ProcessedCount = 0
		s.CaptionedCount = 0
	})

	images := make([]domain.ImageRecord, 0, len(files))
	for i, f := range files {
		rec, err := w.proc.Process(ctx, i+1, f)
		if err != nil {
			return w.fail(PhaseProcessingImages, err)
		}
		images = append(images, rec)
		done := len(images)
		w.update(func(s *State) { s.ProcessedCount = done })
	}
	if err := domain.ValidateImages(images); err != nil {
		return w.fail(PhaseProcessingImages, err)
	}
	w.update(func(s *State) {
		s.Phase = PhaseIdle
		s.Images = images
	})
	w.log.Info().Int("images", len(images)).Msg("image processing complete")
	return nil
}

// GenerateCaptions fans out one caption call per image and joins with
// all-or-nothing semantics: either every caption is committed or none are.
// The first failure cancels the remaining in-flight calls. With zero images
// it returns immediately.
func (w *Workflow) GenerateCaptions(ctx context.Context) error {
	w.mu.Lock()
	images := append([]domain.ImageRecord(nil), w.state.Images...)
	w.mu.Unlock()
	if len(images) == 0 {
		return nil
	}
	w.update(func(s *State) {
		s.Phase = PhaseGeneratingCaptions
		s.Error = ""
		s.Captions = nil
		s.CaptionedCount = 0
	})

	results := make([]domain.CaptionRecord, len(images))
	g, gctx := errgroup.WithContext(ctx)
	for i, img := range images {
		i, img := i, img
		g.Go(func() error {
			raw, err := w.gw.Send(gctx, prompt.BuildCaptionPrompt(img), w.captionCfg)
			if err != nil {
				return err
			}
			text, err := normalize.Caption(raw)
			if err != nil {
				return err
			}
			results[i] = domain.CaptionRecord{OrderIndex: img.OrderIndex, Text: text}
			w.update(func(s *State) { s.CaptionedCount++ })
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		w.update(func(s *State) { s.CaptionedCount = 0 })
		return w.fail(PhaseGeneratingCaptions, err)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].OrderIndex < results[j].OrderIndex })
	w.update(func(s *State) {
		s.Phase = PhaseIdle
		s.Captions = results
	})
	w.log.Info().Int("captions", len(results)).Msg("caption generation complete")
	return nil
}

// GenerateStory issues the single story call. It requires at least one
// image, at least one caption and non-empty purpose and mood answers; these
// are workflow policy, checked here rather than in wire-level validation.
func (w *Workflow) GenerateStory(ctx context.Context) error {
	w.mu.Lock()
	images := append([]domain.ImageRecord(nil), w.state.Images...)
	captions := append([]domain.CaptionRecord(nil), w.state.Captions...)
	global := w.state.GlobalAnswers.Clone()
	w.mu.Unlock()

	var violations []string
	if len(images) == 0 {
		violations = append(violations, "at least one processed image is required")
	}
	if len(captions) == 0 {
		violations = append(violations, "captions must be generated before the story")
	}
	if global.Purpose == "" {
		violations = append(violations, "purpose answer is required")
	}
	if global.Mood == "" {
		violations = append(violations, "mood answer is required")
	}
	if len(violations) > 0 {
		return w.fail(PhaseGeneratingStory, &domain.ValidationError{Violations: violations})
	}

	w.update(func(s *State) {
		s.Phase = PhaseGeneratingStory
		s.Error = ""
		s.Pages = nil
	})
	raw, err := w.gw.Send(ctx, prompt.BuildStoryPrompt(images, captions, global), w.storyCfg)
	if err != nil {
		return w.fail(PhaseGeneratingStory, err)
	}
	pages, err := normalize.Story(raw)
	if err != nil {
		return w.fail(PhaseGeneratingStory, err)
	}
	if len(pages) != len(images) {
		// Pages are accepted as the model returned them; a mismatch with the
		// input image set is observable but not rejected.
		w.log.Warn().Int("pages", len(pages)).Int("images", len(images)).Msg("page count differs from image count")
	}
	w.update(func(s *State) {
		s.Phase = PhaseComplete
		s.Pages = pages
	})
	w.log.Info().Int("pages", len(pages)).Msg("story generation complete")
	return nil
}

// SetGlobalAnswers replaces the global context and notifies. No validation;
// defaults for missing keys are applied at prompt-build time.
func (w *Workflow) SetGlobalAnswers(global domain.GlobalContext) {
	w.update(func(s *State) { s.GlobalAnswers = global.Clone() })
}

// Reset returns the workflow to the empty initial state and notifies.
func (w *Workflow) Reset() {
	w.update(func(s *State) { *s = State{Phase: PhaseIdle} })
}
