// Package password recovers chat-room passwords from message text and images.
package password

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var (
	urlPattern    = regexp.MustCompile(`https?://\S+`)
	urlTokenSplit = regexp.MustCompile(`[/.?&=#]`)

	// after a keyword, the first run of three or more alphanumerics
	afterKeyword = regexp.MustCompile(`[:\s]*([a-zA-Z0-9]{3,})`)

	wordScan = regexp.MustCompile(`\b[a-zA-Z0-9]{4,}\b`)
)

// Keywords that introduce a password, tried in this order on every line
var Keywords = []string{
	"비밀번호", "비번", "패스워드", "암호", "비밀 번호", "입장번호", "입장 번호",
	"password", "pwd", "pw", "pass", "코드", "입장코드", "입장 코드",
}

var keywordPatterns = compileKeywords(Keywords)

type patternGroup struct {
	name     string
	patterns []*regexp.Regexp
}

var compositionGroups = []patternGroup{
	{"mixed", []*regexp.Regexp{
		regexp.MustCompile(`\b([a-zA-Z]+[0-9]+[a-zA-Z0-9]*)\b`),
		regexp.MustCompile(`\b([0-9]+[a-zA-Z]+[a-zA-Z0-9]*)\b`),
	}},
	{"alphabetic", []*regexp.Regexp{
		regexp.MustCompile(`\b([a-zA-Z]{4,})\b`),
	}},
	{"numeric", []*regexp.Regexp{
		regexp.MustCompile(`\b([0-9]{4,})\b`),
	}},
}

var contextualPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:비밀번호|패스워드|비번|암호)[:\s]*([a-zA-Z0-9]{3,})`),
	regexp.MustCompile(`(?:password|pwd|pw)[:\s]*([a-zA-Z0-9]{3,})`),
	regexp.MustCompile(`(?:입장코드|코드)[:\s]*([a-zA-Z0-9]{3,})`),
	regexp.MustCompile(`\s([a-zA-Z0-9]{4,})\s`),
	regexp.MustCompile(`\s([a-zA-Z0-9]{4,})$`),
	regexp.MustCompile(`[^a-zA-Z0-9]([a-zA-Z0-9]{4,})[^a-zA-Z0-9]`),
}

func compileKeywords(keywords []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(keywords))
	for _, k := range keywords {
		out = append(out, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(k)))
	}
	return out
}

// Extractor finds the most likely password in a message
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor creates a new Extractor
func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// ExtractFromText runs the extraction stages in order and returns the first
// accepted candidate. URLs and their path tokens are never returned.
func (e *Extractor) ExtractFromText(text string) (string, bool) {
	urls := urlPattern.FindAllString(text, -1)
	vocab := newVocabulary(urls)
	stripped := urlPattern.ReplaceAllString(text, "")

	if pw, ok := keywordStage(stripped, vocab); ok {
		e.found("keyword", pw)
		return pw, true
	}
	if pw, stage, ok := compositionStage(stripped, vocab); ok {
		e.found(stage, pw)
		return pw, true
	}
	if pw, ok := contextualStage(stripped, vocab); ok {
		e.found("contextual", pw)
		return pw, true
	}
	if c, ok := scanStage(stripped, vocab); ok {
		e.found("scan:"+c.Composition.String(), c.Text)
		return c.Text, true
	}

	e.logger.Debug("No password found in text", zap.Int("length", len(text)))
	return "", false
}

func (e *Extractor) found(stage, pw string) {
	e.logger.Info("Password extracted",
		zap.String("stage", stage),
		zap.Int("length", len(pw)))
}

// keywordStage looks at the text following the first occurrence of each
// keyword on each line
func keywordStage(text string, vocab vocabulary) (string, bool) {
	for _, line := range strings.Split(text, "\n") {
		for _, kw := range keywordPatterns {
			loc := kw.FindStringIndex(line)
			if loc == nil {
				continue
			}
			m := afterKeyword.FindStringSubmatch(line[loc[1]:])
			if m == nil {
				continue
			}
			candidate := strings.TrimSpace(m[1])
			if vocab.accept(candidate) {
				return candidate, true
			}
		}
	}
	return "", false
}

func compositionStage(text string, vocab vocabulary) (string, string, bool) {
	for _, group := range compositionGroups {
		for _, re := range group.patterns {
			if pw, ok := firstAccepted(re, text, vocab); ok {
				return pw, group.name, true
			}
		}
	}
	return "", "", false
}

func contextualStage(text string, vocab vocabulary) (string, bool) {
	for _, re := range contextualPatterns {
		if pw, ok := firstAccepted(re, text, vocab); ok {
			return pw, true
		}
	}
	return "", false
}

func scanStage(text string, vocab vocabulary) (Candidate, bool) {
	var candidates []Candidate
	for _, w := range wordScan.FindAllString(text, -1) {
		if vocab.accept(w) {
			candidates = append(candidates, Classify(w))
		}
	}
	return Best(candidates)
}

func firstAccepted(re *regexp.Regexp, text string, vocab vocabulary) (string, bool) {
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if vocab.accept(m[1]) {
			return m[1], true
		}
	}
	return "", false
}
