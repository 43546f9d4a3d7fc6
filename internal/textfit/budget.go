// Package textfit fits quote text into a fixed display budget without
// cutting words or the embedded time token, and marks the token for emphasis.
//
// Two strategies are provided. FitBudget is a pure character-budget heuristic
// that works anywhere. FitGeometry measures candidate text against a Measurer
// for a concrete rendering surface.
package textfit

import (
	"strings"
	"unicode"
)

const (
	// Ellipsis marks a side of the text that was cut.
	Ellipsis = "..."

	// DefaultBudget is a character budget that fills three lines at the usual font sizes.
	DefaultBudget = 120

	// DefaultMaxLines is the number of lines a quote may occupy.
	DefaultMaxLines = 3
)

// Result is a fitted quote.
type Result struct {
	// DisplayText is the text to show, possibly cut and marked with Ellipsis.
	DisplayText string `json:"display_text"`

	// IsTruncated reports whether any part of the original text was dropped.
	IsTruncated bool `json:"is_truncated"`

	// Spans is DisplayText split into plain and emphasized runs.
	Spans []Span `json:"spans"`
}

// Highlighted renders the result with emphasize applied to the time token.
func (r Result) Highlighted(emphasize, escape func(string) string) string {
	return Render(r.Spans, emphasize, escape)
}

func whole(text, token string) Result {
	return Result{DisplayText: text, Spans: Spans(text, token)}
}

// FitBudget fits text into budget characters, keeping token visible.
//
// Text that fits is returned unchanged. Otherwise a budget-sized window is
// centered on the first case-insensitive occurrence of token, shifted into
// bounds, and its edges are snapped inward to the nearest word boundary, so a
// word straddling an edge is dropped rather than cut. Edges never move past
// the token, so it is never split. An edge with no boundary between it and the
// token is cut hard; this only happens when the token's own word does not fit. Ellipsis is added on
// every side that does not reach the end of the text.
//
// When token is absent the window starts at the beginning of the text.
// A token longer than budget is returned whole with ellipses around it.
func FitBudget(text, token string, budget int) Result {
	runes := []rune(text)
	n := len(runes)

	if budget <= 0 || n <= budget {
		return whole(text, token)
	}

	pos, tlen := indexFold(runes, []rune(token))

	start, end := window(n, pos, tlen, budget)

	lo := start + (end-start)/2
	hi := lo

	if pos >= 0 {
		lo, hi = pos, pos+tlen
	}

	start = snapStart(runes, start, min(lo, end))
	end = snapEnd(runes, end, max(hi, start))

	body := strings.TrimFunc(string(runes[start:end]), unicode.IsSpace)

	var b strings.Builder
	if start > 0 {
		b.WriteString(Ellipsis)
	}

	b.WriteString(body)

	if end < n {
		b.WriteString(Ellipsis)
	}

	display := b.String()

	return Result{
		DisplayText: display,
		IsTruncated: true,
		Spans:       Spans(display, token),
	}
}

// window returns the [start, end) rune range of a budget-sized window centered
// on the token at pos, shifted fully into [0, n).
func window(n, pos, tlen, budget int) (int, int) {
	if pos < 0 {
		return 0, budget
	}

	if tlen >= budget {
		return pos, pos + tlen
	}

	start := pos + tlen/2 - budget/2
	end := start + budget

	if start < 0 {
		end -= start
		start = 0
	}

	if end > n {
		start -= end - n
		end = n
	}

	return max(start, 0), end
}

// snapStart moves start forward to the next word start, never beyond limit.
// It returns start unchanged when it is already a boundary or no boundary is
// reachable.
func snapStart(runes []rune, start, limit int) int {
	if start == 0 || isSpace(runes[start-1]) || isSpace(runes[start]) {
		return start
	}

	for i := start + 1; i <= limit; i++ {
		if isSpace(runes[i-1]) {
			return i
		}
	}

	return start
}

// snapEnd moves end back to the previous word end, never before limit.
func snapEnd(runes []rune, end, limit int) int {
	if end == len(runes) || isSpace(runes[end]) || isSpace(runes[end-1]) {
		return end
	}

	for i := end - 1; i >= limit; i-- {
		if isSpace(runes[i]) {
			return i
		}
	}

	return end
}

// indexFold finds the first case-insensitive occurrence of token in runes.
// It returns -1 when token is empty or absent.
func indexFold(runes, token []rune) (int, int) {
	tlen := len(token)
	if tlen == 0 || tlen > len(runes) {
		return -1, 0
	}

	t := string(token)
	for i := 0; i+tlen <= len(runes); i++ {
		if strings.EqualFold(string(runes[i:i+tlen]), t) {
			return i, tlen
		}
	}

	return -1, 0
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r)
}
