package normalize

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// ErrEmptyPhrase is returned when a dictionary entry has no spoken form.
var ErrEmptyPhrase = errors.New("spoken phrase is empty")

// Phrase maps a spoken form to its expression symbol.
type Phrase struct {
	Spoken string `yaml:"spoken" json:"spoken"`
	Symbol string `yaml:"symbol" json:"symbol"`
}

// defaultPhrases is the built-in spoken vocabulary.
var defaultPhrases = []Phrase{
	{Spoken: "plus", Symbol: "+"},
	{Spoken: "minus", Symbol: "-"},
	{Spoken: "times", Symbol: "*"},
	{Spoken: "multiplied by", Symbol: "*"},
	{Spoken: "multiply by", Symbol: "*"},
	{Spoken: "divided by", Symbol: "/"},
	{Spoken: "divide by", Symbol: "/"},
	{Spoken: "over", Symbol: "/"},
	{Spoken: "into", Symbol: "*"},
	{Spoken: "to the power of", Symbol: "**"},
	{Spoken: "power", Symbol: "**"},
	{Spoken: "square root of", Symbol: "sqrt"},
	{Spoken: "squared", Symbol: "**2"},
	{Spoken: "cubed", Symbol: "**3"},
	{Spoken: "modulus", Symbol: "%"},
	{Spoken: "mod", Symbol: "%"},
	{Spoken: "percent", Symbol: "/100"},
	{Spoken: "point", Symbol: "."},
}

// Dictionary is an immutable, ordered set of phrase substitutions.
type Dictionary struct {
	phrases []Phrase
	rules   []rule
}

type rule struct {
	pattern *regexp.Regexp
	symbol  string
}

// NewDictionary compiles phrases into a Dictionary.
// Spoken forms are lowercased and matched longest first; phrases of equal
// length keep their given order.
func NewDictionary(phrases []Phrase) (*Dictionary, error) {
	ordered := make([]Phrase, 0, len(phrases))
	for _, p := range phrases {
		spoken := strings.Join(strings.Fields(strings.ToLower(p.Spoken)), " ")
		if spoken == "" {
			return nil, fmt.Errorf("compile dictionary: %w", ErrEmptyPhrase)
		}
		ordered = append(ordered, Phrase{Spoken: spoken, Symbol: p.Symbol})
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return utf8.RuneCountInString(ordered[i].Spoken) > utf8.RuneCountInString(ordered[j].Spoken)
	})

	rules := make([]rule, 0, len(ordered))
	for _, p := range ordered {
		pattern, err := compilePhrase(p.Spoken)
		if err != nil {
			return nil, fmt.Errorf("compile phrase %q: %w", p.Spoken, err)
		}
		rules = append(rules, rule{pattern: pattern, symbol: " " + p.Symbol + " "})
	}

	return &Dictionary{phrases: ordered, rules: rules}, nil
}

// DefaultDictionary returns the built-in vocabulary.
func DefaultDictionary() *Dictionary {
	d, err := NewDictionary(defaultPhrases)
	if err != nil {
		panic(fmt.Sprintf("normalize: default dictionary: %v", err))
	}
	return d
}

// Phrases returns the phrases in match order.
func (d *Dictionary) Phrases() []Phrase {
	out := make([]Phrase, len(d.phrases))
	copy(out, d.phrases)
	return out
}

// Len returns the number of phrases.
func (d *Dictionary) Len() int {
	return len(d.phrases)
}

// Lookup returns the symbol for a spoken phrase.
func (d *Dictionary) Lookup(spoken string) (string, bool) {
	spoken = strings.Join(strings.Fields(strings.ToLower(spoken)), " ")
	for _, p := range d.phrases {
		if p.Spoken == spoken {
			return p.Symbol, true
		}
	}
	return "", false
}

func (d *Dictionary) apply(s string) string {
	for _, r := range d.rules {
		s = r.pattern.ReplaceAllLiteralString(s, r.symbol)
	}
	return s
}

// compilePhrase builds a whole-word pattern for a spoken phrase. Word
// boundaries are only anchored on sides that start or end with a word
// character so that symbolic phrases like "×" still match.
func compilePhrase(spoken string) (*regexp.Regexp, error) {
	words := strings.Fields(spoken)
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}

	var b strings.Builder
	if isWordByte(spoken[0]) {
		b.WriteString(`\b`)
	}
	b.WriteString(strings.Join(quoted, `\s+`))
	if isWordByte(spoken[len(spoken)-1]) {
		b.WriteString(`\b`)
	}
	return regexp.Compile(b.String())
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// phraseFile is the on-disk layout of a phrase override file.
type phraseFile struct {
	Phrases []Phrase `yaml:"phrases"`
}

// LoadDictionaryFile reads a YAML phrase file and merges it over the
// built-in vocabulary. An entry with an empty symbol removes that phrase.
//
//	phrases:
//	  - spoken: "x"
//	    symbol: "*"
func LoadDictionaryFile(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read phrase file: %w", err)
	}
	return ParseDictionary(data)
}

// ParseDictionary parses YAML phrase overrides and merges them over the
// built-in vocabulary.
func ParseDictionary(data []byte) (*Dictionary, error) {
	var file phraseFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse phrase file: %w", err)
	}
	return NewDictionary(Merge(defaultPhrases, file.Phrases))
}

// Merge overlays overrides onto base. Matching spoken forms are replaced
// in place, new ones are appended, and empty symbols delete the phrase.
func Merge(base, overrides []Phrase) []Phrase {
	merged := make([]Phrase, len(base))
	copy(merged, base)

	for _, o := range overrides {
		key := strings.Join(strings.Fields(strings.ToLower(o.Spoken)), " ")
		idx := -1
		for i, p := range merged {
			if strings.EqualFold(p.Spoken, key) {
				idx = i
				break
			}
		}
		switch {
		case idx >= 0 && o.Symbol == "":
			merged = append(merged[:idx], merged[idx+1:]...)
		case idx >= 0:
			merged[idx].Symbol = o.Symbol
		case o.Symbol != "":
			merged = append(merged, Phrase{Spoken: key, Symbol: o.Symbol})
		}
	}
	return merged
}
