package password

import (
	"strings"
)

// Composition classifies a candidate by the characters it contains
type Composition int

const (
	// Numeric is digits only
	Numeric Composition = iota
	// Alphabetic is ASCII letters only
	Alphabetic
	// Mixed has at least one letter and one digit
	Mixed
)

// Rank orders compositions by how likely they are to be a password.
// Mixed ranks above Alphabetic, which ranks above Numeric.
func (c Composition) Rank() int {
	return int(c)
}

func (c Composition) String() string {
	switch c {
	case Mixed:
		return "mixed"
	case Alphabetic:
		return "alphabetic"
	default:
		return "numeric"
	}
}

// Candidate is a token that passed the candidate filter
type Candidate struct {
	Text        string
	Composition Composition
}

// Classify tags a token with its composition
func Classify(token string) Candidate {
	hasLetter, hasDigit := letterDigit(token)
	c := Candidate{Text: token, Composition: Numeric}
	switch {
	case hasLetter && hasDigit:
		c.Composition = Mixed
	case hasLetter:
		c.Composition = Alphabetic
	}
	return c
}

// Best returns the first candidate of the highest rank
func Best(candidates []Candidate) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Composition.Rank() > best.Composition.Rank() {
			best = c
		}
	}
	return best, true
}

func letterDigit(s string) (hasLetter, hasDigit bool) {
	for i := 0; i < len(s); i++ {
		b := s[i]
		switch {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z':
			hasLetter = true
		case b >= '0' && b <= '9':
			hasDigit = true
		}
	}
	return hasLetter, hasDigit
}

// vocabulary is the set of whole tokens that can never be a password
type vocabulary map[string]struct{}

var baseExcluded = []string{"http", "https", "www", "com", "net", "org"}

// newVocabulary builds the exclusion set from the fixed URL words and the
// tokens of every URL found in the text
func newVocabulary(urls []string) vocabulary {
	v := make(vocabulary, len(baseExcluded))
	for _, w := range baseExcluded {
		v.add(w)
	}
	for _, u := range urls {
		if i := strings.Index(u, "://"); i >= 0 {
			u = u[i+3:]
		}
		for _, part := range urlTokenSplit.Split(u, -1) {
			v.add(part)
		}
	}
	return v
}

func (v vocabulary) add(word string) {
	if len(word) < 3 {
		return
	}
	v[strings.ToLower(word)] = struct{}{}
}

func (v vocabulary) contains(word string) bool {
	_, ok := v[strings.ToLower(word)]
	return ok
}

// accept is the candidate filter shared by every stage
func (v vocabulary) accept(token string) bool {
	if len(token) < 4 || len(token) > 20 {
		return false
	}
	if v.contains(token) {
		return false
	}
	lower := strings.ToLower(token)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return false
	}
	if strings.Contains(token, "@") {
		return false
	}
	hasLetter, hasDigit := letterDigit(token)
	return hasLetter || hasDigit
}
