package calc

import (
	"errors"

	"github.com/roach88/voicecalc/internal/normalize"
)

// Outcome is the result of processing a voice transcript.
// Optional fields marshal as null when absent.
type Outcome struct {
	Success bool    `json:"success"`
	Result  *string `json:"result"`
	Error   *string `json:"error"`
	Steps   *string `json:"steps"`

	// Expression is the cleaned expression that was evaluated.
	Expression string `json:"-"`
	// Code is set when Success is false.
	Code ErrorCode `json:"-"`
}

// Processor turns transcripts into Outcomes.
type Processor struct {
	norm *normalize.Normalizer
	eval *Evaluator
}

// NewProcessor creates a Processor. Nil arguments select the default
// normalizer and a fresh Evaluator.
func NewProcessor(n *normalize.Normalizer, e *Evaluator) *Processor {
	if n == nil {
		n = normalize.New(nil)
	}
	if e == nil {
		e = NewEvaluator()
	}
	return &Processor{norm: n, eval: e}
}

// Evaluator returns the evaluator used by p.
func (p *Processor) Evaluator() *Evaluator {
	return p.eval
}

// Process cleans and evaluates a transcript. It never fails: every error
// is reported through the Outcome.
func (p *Processor) Process(transcript string) Outcome {
	cleaned := p.norm.Clean(transcript)

	value, err := p.eval.Evaluate(cleaned)
	if err != nil {
		return failure(cleaned, err)
	}

	result := value.String()
	steps := cleaned + " = " + result
	return Outcome{
		Success:    true,
		Result:     &result,
		Steps:      &steps,
		Expression: cleaned,
	}
}

func failure(cleaned string, err error) Outcome {
	msg := "Unexpected error: " + err.Error()
	code := ErrCodeUnexpected
	var ce *Error
	if errors.As(err, &ce) {
		msg = ce.Message
		code = ce.Code
	}

	out := Outcome{
		Success:    false,
		Error:      &msg,
		Expression: cleaned,
		Code:       code,
	}
	if code == ErrCodeUnexpected {
		detail := err.Error()
		out.Steps = &detail
	}
	return out
}
