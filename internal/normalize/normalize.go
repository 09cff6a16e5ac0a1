package normalize

import (
	"regexp"
	"strings"
	"sync/atomic"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	// disallowed matches everything outside the expression whitelist.
	disallowed = regexp.MustCompile(`[^0-9a-zA-Z+\-*/().%^ ]`)

	decimalPoint  = regexp.MustCompile(`\s*\.\s*`)
	bareSqrtArg   = regexp.MustCompile(`\bsqrt\s+([0-9]*\.?[0-9]+|[a-z]+)`)
	leadingFiller = regexp.MustCompile(`^(?:calculate|what is|whats)\b\s*`)
	trailingFill  = regexp.MustCompile(`\s*\bequals?$`)
)

// Normalizer cleans transcripts with a swappable Dictionary.
// It is safe for concurrent use.
type Normalizer struct {
	dict atomic.Pointer[Dictionary]
}

// New creates a Normalizer. A nil dictionary selects DefaultDictionary.
func New(d *Dictionary) *Normalizer {
	if d == nil {
		d = DefaultDictionary()
	}
	n := &Normalizer{}
	n.dict.Store(d)
	return n
}

// SetDictionary atomically replaces the active dictionary.
func (n *Normalizer) SetDictionary(d *Dictionary) {
	if d == nil {
		return
	}
	n.dict.Store(d)
}

// Dictionary returns the active dictionary.
func (n *Normalizer) Dictionary() *Dictionary {
	return n.dict.Load()
}

// Clean converts a transcript into an expression string containing only
// whitelisted characters. It returns "" when nothing usable remains.
func (n *Normalizer) Clean(text string) string {
	// cases.Caser is stateful, so one per call.
	s := cases.Lower(language.Und).String(norm.NFKC.String(text))
	s = collapse(s)

	s = n.dict.Load().apply(s)
	s = disallowed.ReplaceAllString(s, "")
	s = collapse(s)

	s = decimalPoint.ReplaceAllString(s, ".")
	s = bareSqrtArg.ReplaceAllString(s, "sqrt($1)")
	s = leadingFiller.ReplaceAllString(s, "")
	s = trailingFill.ReplaceAllString(s, "")

	return strings.TrimSpace(s)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var std = New(nil)

// Clean cleans text with the built-in dictionary.
func Clean(text string) string {
	return std.Clean(text)
}
