package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"storybook/internal/domain"
	"storybook/internal/gateway"
	"storybook/internal/infra"
	"storybook/internal/story"
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
	return f.send(prompt, cfg)
}

func (f *fakeGateway) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeProcessor struct{}

func (fakeProcessor) Process(_ context.Context, orderIndex int, file story.File) (domain.ImageRecord, error) {
	return domain.ImageRecord{
		OrderIndex:   orderIndex,
		EncodedImage: "data:image/jpeg;base64,QUJD",
	}, nil
}

func newTestApp(gw story.Gateway) *App {
	cfg := &infra.Config{
		AppEnv:         "test",
		WorkflowTTL:    time.Minute,
		MaxUploadBytes: 8 << 20,
		CaptionTimeout: time.Second,
		StoryTimeout:   time.Second,
	}
	return NewApp(cfg, zerolog.Nop(), gw, fakeProcessor{})
}
