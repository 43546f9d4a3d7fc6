package textfit

import (
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// CellMeasurer measures text in terminal cells. One line is one cell high.
type CellMeasurer struct {
	width    int
	emphasis lipgloss.Style
}

// NewCellMeasurer creates a measurer for a box width cells wide.
// Emphasized spans are rendered with emphasis before wrapping.
func NewCellMeasurer(width int, emphasis lipgloss.Style) *CellMeasurer {
	return &CellMeasurer{width: width, emphasis: emphasis}
}

// LineHeight implements Measurer.
func (c *CellMeasurer) LineHeight() int {
	return 1
}

// Height implements Measurer.
func (c *CellMeasurer) Height(spans []Span) int {
	rendered := Render(spans, func(s string) string { return c.emphasis.Render(s) }, nil)

	return lipgloss.Height(c.Wrap(rendered))
}

// Wrap word-wraps rendered text to the measurer's width.
func (c *CellMeasurer) Wrap(rendered string) string {
	if c.width <= 0 {
		return rendered
	}

	return wordwrap.String(rendered, c.width)
}

// FaceMeasurer measures text in pixels with a font face, wrapping greedily on
// whitespace. Bold is synthesized by widening each emphasized glyph.
type FaceMeasurer struct {
	face     font.Face
	width    int
	boldGain int
	spacing  int
}

// FaceOption configures a FaceMeasurer.
type FaceOption func(*FaceMeasurer)

// WithBoldGain sets the extra pixels added to every emphasized glyph.
func WithBoldGain(px int) FaceOption {
	return func(f *FaceMeasurer) {
		f.boldGain = px
	}
}

// WithLineSpacing adds px pixels between lines.
func WithLineSpacing(px int) FaceOption {
	return func(f *FaceMeasurer) {
		f.spacing = px
	}
}

// NewFaceMeasurer creates a measurer for a box width pixels wide.
// A nil face uses basicfont.Face7x13.
func NewFaceMeasurer(face font.Face, width int, opts ...FaceOption) *FaceMeasurer {
	if face == nil {
		face = basicfont.Face7x13
	}

	f := &FaceMeasurer{face: face, width: width, boldGain: 1}
	for _, opt := range opts {
		opt(f)
	}

	return f
}

// LineHeight implements Measurer.
func (f *FaceMeasurer) LineHeight() int {
	return f.face.Metrics().Height.Ceil() + f.spacing
}

// Height implements Measurer.
func (f *FaceMeasurer) Height(spans []Span) int {
	return f.Lines(spans) * f.LineHeight()
}

// Lines returns the number of lines spans wrap to.
func (f *FaceMeasurer) Lines(spans []Span) int {
	space := f.advance(' ', false)
	lines, x := 1, 0
	word, inWord := 0, false

	place := func() {
		switch {
		case x == 0:
			x = word
		case f.width > 0 && x+space+word > f.width:
			lines++
			x = word
		default:
			x += space + word
		}

		word, inWord = 0, false
	}

	for _, s := range spans {
		for _, r := range s.Text {
			switch {
			case r == '\n':
				if inWord {
					place()
				}

				lines++
				x = 0
			case unicode.IsSpace(r):
				if inWord {
					place()
				}
			default:
				word += f.advance(r, s.Emphasis)
				inWord = true
			}
		}
	}

	if inWord {
		place()
	}

	return lines
}

func (f *FaceMeasurer) advance(r rune, bold bool) int {
	adv, ok := f.face.GlyphAdvance(r)
	if !ok {
		adv, _ = f.face.GlyphAdvance('?')
	}

	px := adv.Ceil()
	if bold {
		px += f.boldGain
	}

	return px
}
