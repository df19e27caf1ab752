package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// PhotoMetadata carries optional capture facts extracted from a photo.
// Latitude and longitude are paired: either both are set or both are nil.
type PhotoMetadata struct {
	TakenAt   *time.Time `json:"takenAt,omitempty"`
	Latitude  *float64   `json:"latitude,omitempty"`
	Longitude *float64   `json:"longitude,omitempty"`
	Device    string     `json:"device,omitempty"`
}

// HasLocation reports whether both coordinates are present.
func (m *PhotoMetadata) HasLocation() bool {
	return m != nil && m.Latitude != nil && m.Longitude != nil
}

// ImageRecord is one uploaded photo. OrderIndex defines story order and is
// unique within a request; it does not have to be contiguous.
type ImageRecord struct {
	OrderIndex   int            `json:"orderIndex"`
	EncodedImage string         `json:"base64"`
	Metadata     *PhotoMetadata `json:"metadata,omitempty"`
}

// CaptionRecord is the caption produced for the image with the same
// OrderIndex.
type CaptionRecord struct {
	OrderIndex int    `json:"orderIndex"`
	Text       string `json:"text"`
}

// PageRecord is one unit of narrative output, tied to its source photo by
// OrderIndex. AudioURL is reserved for narration and currently unused.
type PageRecord struct {
	OrderIndex    int    `json:"orderIndex"`
	NarrativeText string `json:"narrativeText"`
	Title         string `json:"title,omitempty"`
	AudioURL      string `json:"audioUrl,omitempty"`
}

// Well-known GlobalContext keys. Any other key is passed through to the
// story prompt verbatim, in insertion order.
const (
	KeyPurpose = "purpose"
	KeyMood    = "mood"
)

// Entry is one extra key/value pair of a GlobalContext.
type Entry struct {
	Key   string
	Value string
}

// GlobalContext is the open purpose/mood/etc mapping supplied once per story
// request. The two well-known keys are promoted to fields; everything else is
// kept as ordered extras so the rendered prompt is deterministic.
type GlobalContext struct {
	Purpose string
	Mood    string

	extras []Entry
}

// Set stores a key, replacing any previous value for it. Extra keys keep
// their first-insertion position.
func (g *GlobalContext) Set(key, value string) {
	switch key {
	case KeyPurpose:
		g.Purpose = value
		return
	case KeyMood:
		g.Mood = value
		return
	}
	for i := range g.extras {
		if g.extras[i].Key == key {
			g.extras[i].Value = value
			return
		}
	}
	g.extras = append(g.extras, Entry{Key: key, Value: value})
}

// Get returns the value for key and whether it is present.
func (g *GlobalContext) Get(key string) (string, bool) {
	switch key {
	case KeyPurpose:
		return g.Purpose, g.Purpose != ""
	case KeyMood:
		return g.Mood, g.Mood != ""
	}
	for _, e := range g.extras {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// Extras returns the additional entries in insertion order. The returned
// slice is a copy.
func (g *GlobalContext) Extras() []Entry {
	out := make([]Entry, len(g.extras))
	copy(out, g.extras)
	return out
}

// Len counts all present entries including the well-known keys.
func (g *GlobalContext) Len() int {
	n := len(g.extras)
	if g.Purpose != "" {
		n++
	}
	if g.Mood != "" {
		n++
	}
	return n
}

// Clone returns an independent copy.
func (g GlobalContext) Clone() GlobalContext {
	out := g
	out.extras = make([]Entry, len(g.extras))
	copy(out.extras, g.extras)
	return out
}

// UnmarshalJSON decodes an open JSON object of string values, preserving the
// key order of the document. A standard map would lose that order and make
// the rendered story prompt nondeterministic.
func (g *GlobalContext) UnmarshalJSON(data []byte) error {
	*g = GlobalContext{}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("globalAnswers: expected object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("globalAnswers: unexpected key token %v", keyTok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("globalAnswers: value for %q must be a string", key)
		}
		g.Set(key, value)
	}
	_, err = dec.Token()
	return err
}

// MarshalJSON emits the mapping with well-known keys first, then extras in
// insertion order.
func (g GlobalContext) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(key, value string) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}
	if g.Purpose != "" {
		if err := write(KeyPurpose, g.Purpose); err != nil {
			return nil, err
		}
	}
	if g.Mood != "" {
		if err := write(KeyMood, g.Mood); err != nil {
			return nil, err
		}
	}
	for _, e := range g.extras {
		if err := write(e.Key, e.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
