package textfit

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const darwin = "A man who dares to waste one hour of time has not discovered the value of life at 09:41"

const orwell = "It was a bright cold day in April, and the clocks were striking thirteen. " +
	"Winston Smith, his chin nuzzled into his breast in an effort to escape the vile wind, " +
	"slipped quickly through the glass doors of Victory Mansions at 09:41, though not quickly " +
	"enough to prevent a swirl of gritty dust from entering along with him."

func TestFitBudget_FitsWhole(t *testing.T) {
	res := FitBudget(darwin, "9:41", 120)

	assert.Equal(t, darwin, res.DisplayText)
	assert.False(t, res.IsTruncated)
	assert.NotContains(t, res.DisplayText, Ellipsis)

	require.NotEmpty(t, res.Spans)
	assert.Equal(t, Span{Text: "9:41", Emphasis: true}, res.Spans[len(res.Spans)-1])
}

func TestFitBudget_ShortTextUnchanged(t *testing.T) {
	texts := []string{
		"",
		"noon",
		"It was noon.",
		darwin,
	}

	for _, text := range texts {
		for _, budget := range []int{utf8.RuneCountInString(text), 108, 120} {
			res := FitBudget(text, "noon", budget)
			assert.Equal(t, text, res.DisplayText)
			assert.False(t, res.IsTruncated)
		}
	}
}

func TestFitBudget_Window(t *testing.T) {
	const text = "aaa bbb ccc ddd eee fff ggg hhh iii jjj"

	tests := []struct {
		name     string
		token    string
		budget   int
		expected string
	}{
		{
			name:     "centered on token",
			token:    "eee",
			budget:   15,
			expected: "...ddd eee fff...",
		},
		{
			name:     "token matched ignoring case",
			token:    "EEE",
			budget:   15,
			expected: "...ddd eee fff...",
		},
		{
			name:     "token at end shifts window into bounds",
			token:    "jjj",
			budget:   15,
			expected: "...ggg hhh iii jjj",
		},
		{
			name:     "token at start",
			token:    "aaa",
			budget:   15,
			expected: "aaa bbb ccc ddd...",
		},
		{
			name:     "absent token starts at beginning",
			token:    "zzz",
			budget:   15,
			expected: "aaa bbb ccc ddd...",
		},
		{
			name:     "token longer than budget kept whole",
			token:    "ccc ddd eee",
			budget:   5,
			expected: "...ccc ddd eee...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := FitBudget(text, tt.token, tt.budget)

			assert.Equal(t, tt.expected, res.DisplayText)
			assert.True(t, res.IsTruncated)
		})
	}
}

func TestFitBudget_Spans(t *testing.T) {
	res := FitBudget("aaa bbb ccc ddd eee fff ggg hhh iii jjj", "eee", 15)

	assert.Equal(t, []Span{
		{Text: "...ddd "},
		{Text: "eee", Emphasis: true},
		{Text: " fff..."},
	}, res.Spans)
}

func TestFitBudget_LongWordsDroppedNotCut(t *testing.T) {
	text := strings.Repeat("x", 40) + " 9:41 " + strings.Repeat("y", 40)

	res := FitBudget(text, "9:41", 20)

	assert.Equal(t, "...9:41...", res.DisplayText)
}

func TestFitBudget_LongEdgeWordsDropped(t *testing.T) {
	const long = "antidisestablishmentarianism"

	text := "aaa " + long + " bb 9:41 cc " + long + " ddd"

	res := FitBudget(text, "9:41", 50)

	assert.Equal(t, "...bb 9:41 cc...", res.DisplayText)
	assert.True(t, res.IsTruncated)
}

func TestFitBudget_HardCutOnlyWhenTokenWordTooLong(t *testing.T) {
	text := strings.Repeat("x", 60) + "9:41" + strings.Repeat("y", 60)

	res := FitBudget(text, "9:41", 20)

	assert.Equal(t, "..."+strings.Repeat("x", 8)+"9:41"+strings.Repeat("y", 8)+"...", res.DisplayText)
	assert.Equal(t, 20+2*len(Ellipsis), utf8.RuneCountInString(res.DisplayText))
}

func TestFitBudget_Properties(t *testing.T) {
	texts := []struct {
		text  string
		token string
	}{
		{orwell, "09:41"},
		{orwell, "9:41"},
		{"Twelve o'clock struck and " + orwell, "twelve o'clock"},
		{orwell + " The bells rang at half past nine", "half past nine"},
		{orwell, "quarter to three"},
	}

	for _, tc := range texts {
		for _, budget := range []int{40, 60, 108, 120} {
			res := FitBudget(tc.text, tc.token, budget)

			require.True(t, res.IsTruncated)
			assert.LessOrEqual(t, utf8.RuneCountInString(res.DisplayText), budget+2*len(Ellipsis),
				"budget %d: %q", budget, res.DisplayText)

			if Contains(tc.text, tc.token) {
				assert.True(t, Contains(res.DisplayText, tc.token),
					"token %q split or dropped at budget %d: %q", tc.token, budget, res.DisplayText)
			} else {
				assert.False(t, strings.HasPrefix(res.DisplayText, Ellipsis))
			}

			body := strings.TrimSuffix(strings.TrimPrefix(res.DisplayText, Ellipsis), Ellipsis)
			assert.Contains(t, tc.text, body)

			words := strings.Fields(tc.text)
			for _, w := range strings.Fields(body) {
				assert.Contains(t, words, w, "word %q was cut at budget %d", w, budget)
			}
		}
	}
}

func TestFitBudget_Deterministic(t *testing.T) {
	first := FitBudget(orwell, "09:41", 60)
	second := FitBudget(orwell, "09:41", 60)

	assert.Equal(t, first, second)
}

func TestFitBudget_NonPositiveBudget(t *testing.T) {
	res := FitBudget(orwell, "09:41", 0)

	assert.Equal(t, orwell, res.DisplayText)
	assert.False(t, res.IsTruncated)
}

// BenchmarkFitBudget measures the character-budget fitter on a long quote.
func BenchmarkFitBudget(b *testing.B) {
	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		FitBudget(orwell, "09:41", DefaultBudget)
	}
}
