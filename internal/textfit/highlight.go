package textfit

import (
	"regexp"
	"strings"
)

// Span is a run of text that is either emphasized (a time token match) or plain.
type Span struct {
	Text     string `json:"text"`
	Emphasis bool   `json:"emphasis,omitempty"`
}

// tokenPattern compiles a literal, case-insensitive matcher for token.
// Returns nil for an empty token.
func tokenPattern(token string) *regexp.Regexp {
	if token == "" {
		return nil
	}

	return regexp.MustCompile("(?i)" + regexp.QuoteMeta(token))
}

// Spans splits text into plain and emphasized runs.
// Every case-insensitive occurrence of token is emphasized independently.
// When token is empty or absent the whole text is a single plain span.
func Spans(text, token string) []Span {
	if text == "" {
		return nil
	}

	re := tokenPattern(token)
	if re == nil {
		return []Span{{Text: text}}
	}

	matches := re.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return []Span{{Text: text}}
	}

	spans := make([]Span, 0, 2*len(matches)+1)
	last := 0

	for _, m := range matches {
		if m[0] > last {
			spans = append(spans, Span{Text: text[last:m[0]]})
		}

		spans = append(spans, Span{Text: text[m[0]:m[1]], Emphasis: true})
		last = m[1]
	}

	if last < len(text) {
		spans = append(spans, Span{Text: text[last:]})
	}

	return spans
}

// Highlight wraps every case-insensitive occurrence of token in text with emphasize.
// The matched text keeps its original casing. Plain runs are passed through escape
// when it is non-nil, which lets callers produce safe markup.
func Highlight(text, token string, emphasize, escape func(string) string) string {
	return Render(Spans(text, token), emphasize, escape)
}

// Render joins spans, applying emphasize to emphasized runs.
func Render(spans []Span, emphasize, escape func(string) string) string {
	var b strings.Builder

	for _, s := range spans {
		t := s.Text
		if escape != nil {
			t = escape(t)
		}

		if s.Emphasis && emphasize != nil {
			t = emphasize(t)
		}

		b.WriteString(t)
	}

	return b.String()
}

// Contains reports whether text contains token, ignoring case.
func Contains(text, token string) bool {
	if token == "" {
		return false
	}

	return strings.Contains(strings.ToLower(text), strings.ToLower(token))
}
