package analysis

// Token is a normalized word: letters and digits only, lowercased.
// Tokens compare with plain byte-wise string ordering, which for UTF-8
// equals code point ordering and does not depend on locale.
type Token string

// Valid reports whether t can appear in a chunk or in the final output.
// The empty token is reserved as the merge sentinel.
func (t Token) Valid() bool {
	return t != ""
}
