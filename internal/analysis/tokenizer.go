package analysis

import (
	"strings"

	"github.com/pkg/errors"
)

// SplitMode decides where one raw token ends and the next begins.
type SplitMode string

const (
	// SplitWord breaks at every run of runes that are neither alphabetic nor
	// digits, so "big-data" yields "big" and "data".
	SplitWord SplitMode = "word"
	// SplitWhitespace breaks only at whitespace and lets normalization strip
	// interior punctuation, so "big-data" yields "bigdata".
	SplitWhitespace SplitMode = "whitespace"
)

var ErrUnknownSplitMode = errors.New("unknown split mode")

// ParseSplitMode validates s. The empty string selects SplitWord.
func ParseSplitMode(s string) (SplitMode, error) {
	switch SplitMode(s) {
	case "", SplitWord:
		return SplitWord, nil
	case SplitWhitespace:
		return SplitWhitespace, nil
	default:
		return "", errors.Wrapf(ErrUnknownSplitMode, "%q", s)
	}
}

// Tokenizer splits lines into raw tokens and normalizes each of them.
type Tokenizer struct {
	n    *Normalizer
	mode SplitMode
}

// NewTokenizer creates a Tokenizer backed by n. A nil n selects the
// standard normalizer; an empty mode selects SplitWord.
func NewTokenizer(n *Normalizer, mode SplitMode) *Tokenizer {
	if n == nil {
		n = standard
	}
	if mode == "" {
		mode = SplitWord
	}
	return &Tokenizer{n: n, mode: mode}
}

// Split returns the valid tokens of line in input order, duplicates
// included, and the number of raw tokens that normalized to nothing.
func (tz *Tokenizer) Split(line string) (tokens []Token, rejected int) {
	line = tz.n.fold(line)

	var fields []string
	if tz.mode == SplitWhitespace {
		fields = strings.Fields(line)
	} else {
		fields = strings.FieldsFunc(line, func(r rune) bool { return !isWordRune(r) })
	}
	if len(fields) == 0 {
		return nil, 0
	}

	tokens = make([]Token, 0, len(fields))
	for _, f := range fields {
		tok, ok := tz.n.normalizeFolded(f)
		if !ok {
			rejected++
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens, rejected
}
