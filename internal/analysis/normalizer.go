package analysis

import (
	"strings"
	"sync"
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Form selects the Unicode preprocessing applied before stripping.
type Form string

const (
	// FormStandard strips and lowercases the raw text as-is.
	FormStandard Form = "standard"
	// FormNFKC applies compatibility composition first, so that for example
	// the ligature "ﬁ" and the fullwidth "Ａ" fold into their plain letters.
	FormNFKC Form = "nfkc"
)

var ErrUnknownForm = errors.New("unknown normalization form")

// Normalizer maps raw text to Tokens. It is safe for concurrent use.
type Normalizer struct {
	form Form
	// cases.Caser keeps state between calls and must not be shared.
	casers sync.Pool
}

// NewNormalizer creates a Normalizer for the given form.
func NewNormalizer(form Form) (*Normalizer, error) {
	switch form {
	case FormStandard, FormNFKC:
	default:
		return nil, errors.Wrapf(ErrUnknownForm, "%q", form)
	}
	n := &Normalizer{form: form}
	n.casers.New = func() any {
		c := cases.Lower(language.Und)
		return &c
	}
	return n, nil
}

// Form returns the preprocessing form of n.
func (n *Normalizer) Form() Form {
	return n.form
}

// Normalize lowercases raw and then drops every rune that is not alphabetic
// or a digit. It returns false when nothing is left.
func (n *Normalizer) Normalize(raw string) (Token, bool) {
	return n.normalizeFolded(n.fold(raw))
}

// fold applies the Unicode preprocessing of the form.
func (n *Normalizer) fold(s string) string {
	if n.form == FormNFKC {
		return norm.NFKC.String(s)
	}
	return s
}

// normalizeFolded strips after lowering, since lowercasing can add combining
// marks ("İ" becomes "i" plus U+0307).
func (n *Normalizer) normalizeFolded(raw string) (Token, bool) {
	c := n.casers.Get().(*cases.Caser)
	lowered := c.String(raw)
	n.casers.Put(c)

	stripped := strings.Map(keepWordRune, lowered)
	return Token(stripped), stripped != ""
}

var standard, _ = NewNormalizer(FormStandard)

// Normalize applies the standard normalization to raw.
func Normalize(raw string) (Token, bool) {
	return standard.Normalize(raw)
}

// isWordRune reports whether r is alphabetic or a decimal digit. Alphabetic
// covers the vowel signs of Indic scripts and Arabic harakat, not only
// letters.
func isWordRune(r rune) bool {
	return unicode.In(r, unicode.Letter, unicode.Nl, unicode.Other_Alphabetic) || unicode.IsDigit(r)
}

func keepWordRune(r rune) rune {
	if isWordRune(r) {
		return r
	}
	return -1
}
