// Package ingest is the default file-processing collaborator: it decodes an
// uploaded photo, downscales and re-encodes it to a JPEG data URL, and
// extracts capture metadata from EXIF.
package ingest

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"github.com/disintegration/imaging"

	"storybook/internal/domain"
	"storybook/internal/story"
)

const (
	defaultMaxEdge = 1280
	defaultQuality = 80
)

// Processor implements story.FileProcessor.
type Processor struct {
	maxEdge int
	quality int
}

// Option mutates a Processor.
type Option func(*Processor)

// WithMaxEdge caps the longest edge of the re-encoded image.
func WithMaxEdge(px int) Option {
	return func(p *Processor) {
		if px > 0 {
			p.maxEdge = px
		}
	}
}

// WithQuality sets the JPEG re-encode quality (1-100).
func WithQuality(q int) Option {
	return func(p *Processor) {
		if q > 0 && q <= 100 {
			p.quality = q
		}
	}
}

// NewProcessor builds a processor with default downscale settings.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{maxEdge: defaultMaxEdge, quality: defaultQuality}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process turns one raw file into an ImageRecord. EXIF extraction is best
// effort: a photo without usable EXIF still produces a record, just without
// metadata. A file that does not decode as an image fails the call.
func (p *Processor) Process(ctx context.Context, orderIndex int, file story.File) (domain.ImageRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.ImageRecord{}, err
	}
	if len(file.Data) == 0 {
		return domain.ImageRecord{}, domain.NewValidationError("file %q is empty", file.Name)
	}

	// EXIF must be read from the original bytes; re-encoding drops it.
	meta := extractMetadata(file.Data)

	img, err := imaging.Decode(bytes.NewReader(file.Data), imaging.AutoOrientation(true))
	if err != nil {
		return domain.ImageRecord{}, domain.NewValidationError("file %q is not a decodable image: %v", file.Name, err)
	}
	bounds := img.Bounds()
	if bounds.Dx() > p.maxEdge || bounds.Dy() > p.maxEdge {
		img = imaging.Fit(img, p.maxEdge, p.maxEdge, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.quality)); err != nil {
		return domain.ImageRecord{}, fmt.Errorf("encode %q: %w", file.Name, err)
	}

	return domain.ImageRecord{
		OrderIndex:   orderIndex,
		EncodedImage: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Metadata:     meta,
	}, nil
}

var _ story.FileProcessor = (*Processor)(nil)
