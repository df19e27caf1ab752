package story

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"storybook/internal/domain"
	"storybook/internal/gateway"
)

type fakeGateway struct {
	mu    sync.Mutex
	calls int
	send  func(prompt string, cfg gateway.ModelConfig) (string, error)
}

func (f *fakeGateway) Send(_ context.Context, prompt string, cfg gateway.ModelConfig) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.send == nil {
		return "a caption", nil
	}
	return f.send(prompt, cfg)
}

func (f *fakeGateway) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeProcessor struct {
	failOn map[string]bool
}

func (p *fakeProcessor) Process(_ context.Context, orderIndex int, file File) (domain.ImageRecord, error) {
	if p.failOn[file.Name] {
		return domain.ImageRecord{}, fmt.Errorf("cannot decode %s", file.Name)
	}
	return domain.ImageRecord{
		OrderIndex:   orderIndex,
		EncodedImage: "data:image/jpeg;base64," + file.Name,
	}, nil
}

func newTestWorkflow(gw Gateway) *Workflow {
	return New(Options{
		Gateway:   gw,
		Processor: &fakeProcessor{},
		Logger:    zerolog.Nop(),
	})
}

func testFiles(n int) []File {
	files := make([]File, 0, n)
	for i := 1; i <= n; i++ {
		files = append(files, File{Name: fmt.Sprintf("f%d", i), Data: []byte{1}})
	}
	return files
}

func TestProcessFilesPublishesProgress(t *testing.T) {
	t.Parallel()
	w := newTestWorkflow(&fakeGateway{})
	var progress []int
	unsubscribe := w.Subscribe(func(s State) {
		progress = append(progress, s.ProcessedCount)
	})
	defer unsubscribe()

	if err := w.ProcessFiles(context.Background(), testFiles(3)); err != nil {
		t.Fatalf("ProcessFiles returned error: %v", err)
	}
	snap := w.Snapshot()
	if snap.Phase != PhaseIdle {
		t.Fatalf("phase = %q, want idle", snap.Phase)
	}
	if len(snap.Images) != 3 {
		t.Fatalf("images = %d, want 3", len(snap.Images))
	}
	var counts []int
	for _, p := range progress {
		if len(counts) == 0 || counts[len(counts)-1] != p {
			counts = append(counts, p)
		}
	}
	// 0 on phase entry, then 1, 2, 3 after each completed file
	wantPrefix := []int{0, 1, 2, 3}
	if len(counts) < len(wantPrefix) {
		t.Fatalf("progress notifications = %v", counts)
	}
	for i, want := range wantPrefix {
		if counts[i] != want {
			t.Fatalf("progress[%d] = %d, want %d (%v)", i, counts[i], want, counts)
		}
	}
}

func TestProcessFilesBounds(t *testing.T) {
	t.Parallel()
	for _, n := range []int{0, 16} {
		w := newTestWorkflow(&fakeGateway{})
		err := w.ProcessFiles(context.Background(), testFiles(n))
		var ve *domain.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%d files: expected *ValidationError, got %v", n, err)
		}
		snap := w.Snapshot()
		if snap.Phase != PhaseFailed || snap.Error == "" {
			t.Fatalf("%d files: phase %q error %q, want recorded failure", n, snap.Phase, snap.Error)
		}
	}
}

func TestProcessFilesCollaboratorFailureCleansUp(t *testing.T) {
	t.Parallel()
	w := New(Options{
		Gateway:   &fakeGateway{},
		Processor: &fakeProcessor{failOn: map[string]bool{"f2": true}},
		Logger:    zerolog.Nop(),
	})
	err := w.ProcessFiles(context.Background(), testFiles(3))
	if err == nil {
		t.Fatal("expected error")
	}
	snap := w.Snapshot()
	if snap.Phase != PhaseFailed {
		t.Fatalf("phase = %q, want failed", snap.Phase)
	}
	if len(snap.Images) != 0 {
		t.Fatalf("images = %d, want 0 after failed processing", len(snap.Images))
	}
	if !strings.Contains(snap.Error, "f2") {
		t.Fatalf("error = %q, want mention of failing file", snap.Error)
	}
}

func TestGenerateCaptionsNoImagesIsNoOp(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{}
	w := newTestWorkflow(gw)
	if err := w.GenerateCaptions(context.Background()); err != nil {
		t.Fatalf("GenerateCaptions returned error: %v", err)
	}
	if gw.callCount() != 0 {
		t.Fatalf("gateway calls = %d, want 0", gw.callCount())
	}
}

func TestGenerateCaptionsFanOut(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{send: func(prompt string, _ gateway.ModelConfig) (string, error) {
		// echo back which file payload the prompt embeds
		for i := 1; i <= 3; i++ {
			if strings.Contains(prompt, fmt.Sprintf("base64,f%d", i)) {
				return fmt.Sprintf("caption %d", i), nil
			}
		}
		return "", errors.New("unexpected prompt")
	}}
	w := newTestWorkflow(gw)
	if err := w.ProcessFiles(context.Background(), testFiles(3)); err != nil {
		t.Fatalf("ProcessFiles: %v", err)
	}
	if err := w.GenerateCaptions(context.Background()); err != nil {
		t.Fatalf("GenerateCaptions returned error: %v", err)
	}
	snap := w.Snapshot()
	if snap.Phase != PhaseIdle {
		t.Fatalf("phase = %q, want idle", snap.Phase)
	}
	if len(snap.Captions) != 3 {
		t.Fatalf("captions = %d, want 3", len(snap.Captions))
	}
	for i, c := range snap.Captions {
		if c.OrderIndex != i+1 {
			t.Fatalf("captions not ordered by orderIndex: %+v", snap.Captions)
		}
		if c.Text != fmt.Sprintf("caption %d", i+1) {
			t.Fatalf("caption[%d] = %q", i, c.Text)
		}
	}
	if gw.callCount() != 3 {
		t.Fatalf("gateway calls = %d, want 3", gw.callCount())
	}
}

func TestGenerateCaptionsAllOrNothing(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{send: func(prompt string, _ gateway.ModelConfig) (string, error) {
		if strings.Contains(prompt, "base64,f2") {
			return "", &domain.GatewayError{StatusCode: 500, Message: "upstream exploded"}
		}
		return "fine", nil
	}}
	w := newTestWorkflow(gw)
	if err := w.ProcessFiles(context.Background(), testFiles(3)); err != nil {
		t.Fatalf("ProcessFiles: %v", err)
	}
	err := w.GenerateCaptions(context.Background())
	var ge *domain.GatewayError
	if !errors.As(err, &ge) {
		t.Fatalf("expected *GatewayError, got %v", err)
	}
	snap := w.Snapshot()
	if len(snap.Captions) != 0 {
		t.Fatalf("captions = %d, want 0 (all-or-nothing)", len(snap.Captions))
	}
	if snap.Phase != PhaseFailed || snap.Error == "" {
		t.Fatalf("phase %q error %q, want recorded failure", snap.Phase, snap.Error)
	}
	if snap.CaptionedCount != 0 {
		t.Fatalf("captionedCount = %d, want 0 after failed batch", snap.CaptionedCount)
	}
}

func TestGenerateStoryPreconditionsSkipGateway(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{}
	w := newTestWorkflow(gw)
	err := w.GenerateStory(context.Background())
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if gw.callCount() != 0 {
		t.Fatalf("gateway calls = %d, want 0", gw.callCount())
	}
	snap := w.Snapshot()
	if snap.Phase != PhaseFailed || snap.Error == "" {
		t.Fatalf("phase %q error %q, want recorded failure", snap.Phase, snap.Error)
	}
}

func TestGenerateStoryRequiresPurposeAndMood(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{}
	w := newTestWorkflow(gw)
	if err := w.ProcessFiles(context.Background(), testFiles(1)); err != nil {
		t.Fatalf("ProcessFiles: %v", err)
	}
	if err := w.GenerateCaptions(context.Background()); err != nil {
		t.Fatalf("GenerateCaptions: %v", err)
	}
	before := gw.callCount()

	err := w.GenerateStory(context.Background())
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if !strings.Contains(ve.Error(), "purpose") || !strings.Contains(ve.Error(), "mood") {
		t.Fatalf("violations = %q, want purpose and mood", ve.Error())
	}
	if gw.callCount() != before {
		t.Fatalf("gateway calls = %d, want %d", gw.callCount(), before)
	}
}

func TestGenerateStoryHappyPath(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{send: func(prompt string, cfg gateway.ModelConfig) (string, error) {
		if strings.Contains(prompt, "objective photo analyst") {
			return "A dog on a beach", nil
		}
		if !strings.Contains(prompt, "Event: Beach day") || !strings.Contains(prompt, "Mood: calm") {
			return "", fmt.Errorf("story prompt missing context:\n%s", prompt)
		}
		if !strings.Contains(prompt, "A dog on a beach") {
			return "", fmt.Errorf("story prompt missing caption:\n%s", prompt)
		}
		return `{"pages":[{"orderIndex":1,"narrativeText":"The day began by the sea."}]}`, nil
	}}
	w := newTestWorkflow(gw)
	if err := w.ProcessFiles(context.Background(), testFiles(1)); err != nil {
		t.Fatalf("ProcessFiles: %v", err)
	}
	if err := w.GenerateCaptions(context.Background()); err != nil {
		t.Fatalf("GenerateCaptions: %v", err)
	}
	var global domain.GlobalContext
	global.Set(domain.KeyPurpose, "Beach day")
	global.Set(domain.KeyMood, "calm")
	w.SetGlobalAnswers(global)

	if err := w.GenerateStory(context.Background()); err != nil {
		t.Fatalf("GenerateStory returned error: %v", err)
	}
	snap := w.Snapshot()
	if snap.Phase != PhaseComplete {
		t.Fatalf("phase = %q, want complete", snap.Phase)
	}
	if len(snap.Pages) != 1 || snap.Pages[0].NarrativeText != "The day began by the sea." {
		t.Fatalf("pages = %+v", snap.Pages)
	}
}

func TestGenerateStoryMalformedReply(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{send: func(prompt string, _ gateway.ModelConfig) (string, error) {
		if strings.Contains(prompt, "objective photo analyst") {
			return "a caption", nil
		}
		return "Once upon a time, without any JSON at all.", nil
	}}
	w := newTestWorkflow(gw)
	if err := w.ProcessFiles(context.Background(), testFiles(1)); err != nil {
		t.Fatalf("ProcessFiles: %v", err)
	}
	if err := w.GenerateCaptions(context.Background()); err != nil {
		t.Fatalf("GenerateCaptions: %v", err)
	}
	var global domain.GlobalContext
	global.Set(domain.KeyPurpose, "p")
	global.Set(domain.KeyMood, "m")
	w.SetGlobalAnswers(global)

	err := w.GenerateStory(context.Background())
	var ge *domain.GatewayError
	if !errors.As(err, &ge) {
		t.Fatalf("expected *GatewayError, got %v", err)
	}
	snap := w.Snapshot()
	if snap.Phase != PhaseFailed {
		t.Fatalf("phase = %q, want failed (not left in progress)", snap.Phase)
	}
	if snap.Error == "" {
		t.Fatal("state error not recorded")
	}
	if len(snap.Pages) != 0 {
		t.Fatalf("pages = %d, want 0", len(snap.Pages))
	}
}

func TestSubscribeSnapshotIsolation(t *testing.T) {
	t.Parallel()
	w := newTestWorkflow(&fakeGateway{})
	var captured State
	unsubscribe := w.Subscribe(func(s State) { captured = s })
	defer unsubscribe()

	if err := w.ProcessFiles(context.Background(), testFiles(1)); err != nil {
		t.Fatalf("ProcessFiles: %v", err)
	}
	if len(captured.Images) != 1 {
		t.Fatalf("snapshot images = %d, want 1", len(captured.Images))
	}
	captured.Images[0].EncodedImage = "tampered"
	if w.Snapshot().Images[0].EncodedImage == "tampered" {
		t.Fatal("subscriber mutation leaked into workflow state")
	}
}

func TestUnsubscribeDuringNotification(t *testing.T) {
	t.Parallel()
	w := newTestWorkflow(&fakeGateway{})
	calls := 0
	var unsubscribe func()
	unsubscribe = w.Subscribe(func(State) {
		calls++
		unsubscribe()
	})
	w.Reset()
	w.Reset()
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 after self-unsubscribe", calls)
	}
}

func TestResetClearsState(t *testing.T) {
	t.Parallel()
	w := newTestWorkflow(&fakeGateway{})
	if err := w.ProcessFiles(context.Background(), testFiles(2)); err != nil {
		t.Fatalf("ProcessFiles: %v", err)
	}
	var global domain.GlobalContext
	global.Set(domain.KeyPurpose, "x")
	w.SetGlobalAnswers(global)
	w.Reset()

	snap := w.Snapshot()
	if snap.Phase != PhaseIdle || len(snap.Images) != 0 || snap.GlobalAnswers.Purpose != "" || snap.ProcessedCount != 0 {
		t.Fatalf("state not reset: %+v", snap)
	}
}
