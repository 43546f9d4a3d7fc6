package textfit

import (
	"strings"
	"unicode"
)

// Measurer measures rendered text on a concrete surface.
// Height must account for emphasized spans, which may be wider than plain text.
type Measurer interface {
	// LineHeight is the height of one rendered line, in the measurer's units.
	LineHeight() int

	// Height is the rendered height of spans when wrapped to the surface width.
	Height(spans []Span) int
}

// FitGeometry fits text into maxLines rendered lines of m.
//
// If the highlighted text fits it is returned unchanged. Otherwise the result
// is grown word by word, starting from the words holding the first occurrence
// of token (or from the first word when token is absent), alternately adding
// the next word after and before, and stops at the last word boundary that
// still fits. Every candidate is measured with the token already emphasized.
// Whitespace between kept words is collapsed to single spaces, and a result
// whose text differs from the input is always reported as truncated.
//
// A nil measurer returns text unchanged.
func FitGeometry(text, token string, m Measurer, maxLines int) Result {
	if m == nil || text == "" {
		return whole(text, token)
	}

	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}

	g := geometry{token: token, m: m, limit: m.LineHeight() * maxLines}

	if g.fits(text) {
		return whole(text, token)
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return whole(text, token)
	}

	first, last := tokenWords(text, token)

	g.words = words

	for {
		grew := false

		if last+1 < len(words) && g.fits(g.compose(first, last+1)) {
			last++
			grew = true
		}

		if first > 0 && g.fits(g.compose(first-1, last)) {
			first--
			grew = true
		}

		if !grew {
			break
		}
	}

	display := g.compose(first, last)

	// Rejoining every word still differs from text when only its line
	// breaks or runs of spaces kept it from fitting.
	return Result{
		DisplayText: display,
		IsTruncated: first > 0 || last < len(words)-1 || display != text,
		Spans:       Spans(display, token),
	}
}

type geometry struct {
	token string
	m     Measurer
	limit int
	words []string
}

func (g geometry) fits(candidate string) bool {
	return g.m.Height(Spans(candidate, g.token)) <= g.limit
}

// compose joins words[first..last] and marks cut sides with Ellipsis.
func (g geometry) compose(first, last int) string {
	var b strings.Builder

	if first > 0 {
		b.WriteString(Ellipsis)
	}

	b.WriteString(strings.Join(g.words[first:last+1], " "))

	if last < len(g.words)-1 {
		b.WriteString(Ellipsis)
	}

	return b.String()
}

// tokenWords returns the indexes of the first and last whitespace-separated
// words overlapping the first occurrence of token. Both are 0 when token is absent.
func tokenWords(text, token string) (int, int) {
	runes := []rune(text)

	pos, tlen := indexFold(runes, []rune(token))
	if pos < 0 {
		return 0, 0
	}

	first, last := -1, -1
	word := -1
	inWord := false

	for i, r := range runes {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}

		if !inWord {
			inWord = true
			word++
		}

		if i >= pos && i < pos+tlen {
			if first < 0 {
				first = word
			}

			last = word
		}
	}

	return max(first, 0), max(last, 0)
}
