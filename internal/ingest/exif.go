package ingest

import (
	"bytes"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"storybook/internal/domain"
)

// extractMetadata pulls capture facts out of the photo's EXIF block. Every
// field is optional and extracted independently; a photo with no usable EXIF
// returns nil.
func extractMetadata(data []byte) *domain.PhotoMetadata {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	meta := &domain.PhotoMetadata{}

	if taken, err := x.DateTime(); err == nil {
		meta.TakenAt = &taken
	}
	// The pair is kept or dropped together.
	if lat, long, err := x.LatLong(); err == nil {
		meta.Latitude = &lat
		meta.Longitude = &long
	}
	meta.Device = deviceString(tagString(x, exif.Make), tagString(x, exif.Model))

	if meta.TakenAt == nil && meta.Latitude == nil && meta.Device == "" {
		return nil
	}
	return meta
}

func tagString(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	value, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(value)
}

// deviceString joins make and model into one human-readable device name.
// Vendors shout ("NIKON CORPORATION"), so an all-caps make is title-cased,
// and a model that already repeats the make is not prefixed again.
func deviceString(maker, model string) string {
	if maker == "" {
		return model
	}
	if maker == strings.ToUpper(maker) {
		maker = cases.Title(language.Und).String(strings.ToLower(maker))
	}
	if model == "" {
		return maker
	}
	if strings.HasPrefix(strings.ToLower(model), strings.ToLower(strings.Fields(maker)[0])) {
		return model
	}
	return maker + " " + model
}
