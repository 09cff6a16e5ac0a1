package speech

import (
	"context"
	"errors"
)

// Audio formats, used as file extensions.
const (
	FormatMP3 = "mp3"
	FormatWAV = "wav"
)

// ErrEmptyText is returned when there is nothing to speak.
var ErrEmptyText = errors.New("text is empty")

// Request describes one piece of text to speak.
type Request struct {
	Text string
	// Lang is a BCP 47 language tag such as "en" or "en-GB".
	Lang string
	Slow bool
}

// Audio is encoded speech.
type Audio struct {
	Data   []byte
	Format string
}

// Synthesizer converts text into encoded audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (Audio, error)
}
