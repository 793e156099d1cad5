package analysis

import (
	"testing"
)

func FuzzNormalize(f *testing.F) {
	f.Add("Hello")
	f.Add("")
	f.Add("big-data")
	f.Add("café résumé naïve")
	f.Add("ＡＢＣ ﬁne")
	f.Add("123!!")
	f.Add("İstanbul")
	f.Add("हिंदी كَتَبَ")

	f.Fuzz(func(t *testing.T, input string) {
		for _, form := range []Form{FormStandard, FormNFKC} {
			n, err := NewNormalizer(form)
			if err != nil {
				t.Fatal(err)
			}
			tok, ok := n.Normalize(input)
			if ok != tok.Valid() {
				t.Errorf("Normalize(%q) = (%q, %v): ok must match validity", input, tok, ok)
			}
			for _, r := range string(tok) {
				if !isWordRune(r) {
					t.Errorf("Normalize(%q) = %q holds %U", input, tok, r)
				}
			}
			if again, _ := n.Normalize(string(tok)); again != tok {
				t.Errorf("Normalize(%q) = %q, but normalizing that again gives %q", input, tok, again)
			}
		}
	})
}

func FuzzTokenizer(f *testing.F) {
	f.Add("Time flies, time FLIES!")
	f.Add("")
	f.Add("\t\n\r mixed whitespace")

	f.Fuzz(func(t *testing.T, input string) {
		for _, mode := range []SplitMode{SplitWord, SplitWhitespace} {
			tokens, rejected := NewTokenizer(nil, mode).Split(input)
			if rejected < 0 {
				t.Errorf("negative rejected count %d", rejected)
			}
			for _, tok := range tokens {
				if !tok.Valid() {
					t.Errorf("mode %s produced an empty token from %q", mode, input)
				}
			}
		}
	})
}
