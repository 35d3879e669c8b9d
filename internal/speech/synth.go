// Package speech turns prompts into audio and answers into text. Prompts are
// synthesized by a chain of remote voices and played through an external
// command; answers are recorded the same way and transcribed remotely.
package speech

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrNoSynthesizer is returned when no configured synthesizer produced audio.
var ErrNoSynthesizer = errors.New("speech: no synthesizer available")

// MIMEMPEG is the content type of synthesized speech.
const MIMEMPEG = "audio/mpeg"

// Audio is an encoded audio clip.
type Audio struct {
	Data     []byte `json:"-"`
	MIMEType string `json:"mimeType"`
}

// Synthesizer converts text into speech audio.
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text string) (Audio, error)
}

// Chain tries each synthesizer in order and returns the first audio produced.
type Chain []Synthesizer

func (c Chain) Name() string { return "chain" }

func (c Chain) Synthesize(ctx context.Context, text string) (Audio, error) {
	var errs []error
	for _, s := range c {
		audio, err := s.Synthesize(ctx, text)
		if err == nil {
			return audio, nil
		}
		if ctx.Err() != nil {
			return Audio{}, ctx.Err()
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
	}
	return Audio{}, errors.Join(append([]error{ErrNoSynthesizer}, errs...)...)
}

// Cache remembers synthesized audio by prompt text.
type Cache struct {
	next  Synthesizer
	clips *lru.Cache[string, Audio]
}

// NewCache wraps next with an LRU cache holding up to size clips.
func NewCache(next Synthesizer, size int) (*Cache, error) {
	clips, err := lru.New[string, Audio](size)
	if err != nil {
		return nil, fmt.Errorf("create speech cache: %w", err)
	}
	return &Cache{next: next, clips: clips}, nil
}

func (c *Cache) Name() string { return c.next.Name() }

func (c *Cache) Synthesize(ctx context.Context, text string) (Audio, error) {
	if audio, ok := c.clips.Get(text); ok {
		return audio, nil
	}
	audio, err := c.next.Synthesize(ctx, text)
	if err != nil {
		return Audio{}, err
	}
	c.clips.Add(text, audio)
	return audio, nil
}

// Len returns the number of cached clips.
func (c *Cache) Len() int { return c.clips.Len() }
