package speech

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/text/language"
	"google.golang.org/genai"
)

const (
	DefaultGeminiModel = "gemini-2.5-flash-preview-tts"
	DefaultGeminiVoice = "Kore"

	geminiSampleRate = 24000
)

// contentGenerator is the subset of *genai.Models used by Gemini.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini synthesizes WAV speech with a Gemini TTS model.
type Gemini struct {
	models contentGenerator
	model  string
	voice  string
}

// NewGemini creates a Gemini synthesizer. Empty model and voice select
// DefaultGeminiModel and DefaultGeminiVoice.
func NewGemini(ctx context.Context, apiKey, model, voice string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGemini(client.Models, model, voice), nil
}

func newGemini(models contentGenerator, model, voice string) *Gemini {
	if model == "" {
		model = DefaultGeminiModel
	}
	if voice == "" {
		voice = DefaultGeminiVoice
	}
	return &Gemini{models: models, model: model, voice: voice}
}

// Synthesize implements Synthesizer.
func (g *Gemini) Synthesize(ctx context.Context, req Request) (Audio, error) {
	if req.Text == "" {
		return Audio{}, ErrEmptyText
	}

	prompt := req.Text
	if req.Slow {
		prompt = "Say slowly: " + prompt
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			LanguageCode: speechLanguage(req.Lang),
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: g.voice},
			},
		},
	})
	if err != nil {
		return Audio{}, fmt.Errorf("generate speech: %w", err)
	}

	pcm, err := inlineAudio(resp)
	if err != nil {
		return Audio{}, err
	}
	data, err := encodeWAV(pcm, geminiSampleRate, 1)
	if err != nil {
		return Audio{}, err
	}
	return Audio{Data: data, Format: FormatWAV}, nil
}

func inlineAudio(resp *genai.GenerateContentResponse) ([]byte, error) {
	if resp == nil {
		return nil, errors.New("generate speech: empty response")
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, nil
			}
		}
	}
	return nil, errors.New("generate speech: response contained no audio")
}

// speechLanguage expands a bare language to language-REGION, which the
// speech API expects. "en" becomes "en-US".
func speechLanguage(lang string) string {
	if lang == "" {
		lang = "en"
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return "en-US"
	}
	base, _ := tag.Base()
	region, _ := tag.Region()
	return base.String() + "-" + region.String()
}
