package ports

import (
	"context"

	"github.com/jsamuelsen/authorclock/internal/textfit"
)

// Surface is one place the clock is rendered: a browser page, a terminal or
// an e-ink device. The display cycle serializes all calls to a surface.
type Surface interface {
	// Name identifies the surface in logs and health output.
	Name() string

	// Measurer returns the surface's text geometry, or nil when the surface
	// cannot measure text. A nil measurer selects character-budget fitting.
	Measurer() textfit.Measurer

	// Render replaces the surface content with frame.
	Render(ctx context.Context, frame Frame) error

	// ShowError replaces the whole surface with a blocking error banner.
	ShowError(ctx context.Context, message string) error

	// SetVisible fades the quote area in or out.
	SetVisible(ctx context.Context, visible bool) error
}

// Frame is everything a surface shows at one moment.
type Frame struct {
	Quote    QuoteView `json:"quote"`
	DateTime string    `json:"datetime"`
	Weather  string    `json:"weather"`
}

// QuoteView is a fitted quote ready to render.
type QuoteView struct {
	// Time is the "HH:MM" key the quote was looked up by.
	Time string `json:"time"`

	// Text is the fitted text, possibly with ellipsis markers.
	Text string `json:"text"`

	// Spans is Text split into emphasized time-token runs and plain runs.
	Spans []textfit.Span `json:"spans"`

	Truncated bool   `json:"truncated"`
	Title     string `json:"title,omitempty"`
	Author    string `json:"author,omitempty"`

	// FontSize is the configured CSS size picked from the raw quote length.
	FontSize string `json:"font_size,omitempty"`

	// Matched is false when no quote exists for the minute and Text is the
	// configured placeholder.
	Matched bool `json:"matched"`
}

// Attribution formats "Title - Author", omitting whichever part is empty.
func (q QuoteView) Attribution() string {
	switch {
	case q.Title != "" && q.Author != "":
		return q.Title + " - " + q.Author
	case q.Title != "":
		return q.Title
	default:
		return q.Author
	}
}
