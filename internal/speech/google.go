package speech

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v5"
)

const (
	// DefaultGoogleURL is the translate TTS endpoint.
	DefaultGoogleURL = "https://translate.google.com/translate_tts"

	// maxChunk is the longest text the endpoint accepts per request.
	maxChunk = 100

	defaultMaxTries = 3
)

// GoogleTranslate synthesizes MP3 speech through the Google Translate
// TTS endpoint. Text longer than the endpoint limit is split on word
// boundaries and the MP3 frames of each part are concatenated.
type GoogleTranslate struct {
	baseURL  string
	client   *http.Client
	maxTries uint
	newBack  func() backoff.BackOff
}

// GoogleOption configures a GoogleTranslate.
type GoogleOption func(*GoogleTranslate)

// WithBaseURL overrides the endpoint URL.
func WithBaseURL(u string) GoogleOption {
	return func(g *GoogleTranslate) { g.baseURL = u }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) GoogleOption {
	return func(g *GoogleTranslate) { g.client = c }
}

// WithRetry sets the attempt limit and backoff policy for each chunk.
func WithRetry(maxTries uint, newBackOff func() backoff.BackOff) GoogleOption {
	return func(g *GoogleTranslate) {
		if maxTries > 0 {
			g.maxTries = maxTries
		}
		if newBackOff != nil {
			g.newBack = newBackOff
		}
	}
}

// NewGoogleTranslate creates a GoogleTranslate synthesizer.
func NewGoogleTranslate(opts ...GoogleOption) *GoogleTranslate {
	g := &GoogleTranslate{
		baseURL:  DefaultGoogleURL,
		client:   &http.Client{Timeout: 15 * time.Second},
		maxTries: defaultMaxTries,
		newBack: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Synthesize implements Synthesizer.
func (g *GoogleTranslate) Synthesize(ctx context.Context, req Request) (Audio, error) {
	chunks := chunkText(req.Text, maxChunk)
	if len(chunks) == 0 {
		return Audio{}, ErrEmptyText
	}
	lang := req.Lang
	if lang == "" {
		lang = "en"
	}

	var out []byte
	for i, chunk := range chunks {
		data, err := backoff.Retry(ctx, func() ([]byte, error) {
			return g.fetch(ctx, chunk, lang, req.Slow, i, len(chunks))
		},
			backoff.WithBackOff(g.newBack()),
			backoff.WithMaxTries(g.maxTries),
		)
		if err != nil {
			return Audio{}, fmt.Errorf("synthesize chunk %d/%d: %w", i+1, len(chunks), err)
		}
		out = append(out, data...)
	}
	return Audio{Data: out, Format: FormatMP3}, nil
}

func (g *GoogleTranslate) fetch(ctx context.Context, text, lang string, slow bool, idx, total int) ([]byte, error) {
	speed := "1"
	if slow {
		speed = "0.3"
	}
	q := url.Values{
		"ie":       {"UTF-8"},
		"client":   {"tw-ob"},
		"q":        {text},
		"tl":       {lang},
		"ttsspeed": {speed},
		"total":    {strconv.Itoa(total)},
		"idx":      {strconv.Itoa(idx)},
		"textlen":  {strconv.Itoa(utf8.RuneCountInString(text))},
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request tts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("tts endpoint returned %s", resp.Status)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tts response: %w", err)
	}
	if len(data) == 0 {
		return nil, backoff.Permanent(fmt.Errorf("tts endpoint returned no audio"))
	}
	return data, nil
}

// chunkText splits text into pieces of at most max runes, breaking between
// words. Words longer than max are split mid-word.
func chunkText(text string, max int) []string {
	var (
		chunks []string
		cur    strings.Builder
		curLen int
	)
	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, word := range strings.Fields(text) {
		for utf8.RuneCountInString(word) > max {
			flush()
			r := []rune(word)
			chunks = append(chunks, string(r[:max]))
			word = string(r[max:])
		}
		n := utf8.RuneCountInString(word)
		if curLen > 0 && curLen+1+n > max {
			flush()
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(word)
		curLen += n
	}
	flush()
	return chunks
}
