// Package terminal renders the clock into a terminal or any other writer.
package terminal

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/jsamuelsen/authorclock/internal/platform/config"
	"github.com/jsamuelsen/authorclock/internal/ports"
	"github.com/jsamuelsen/authorclock/internal/textfit"
)

// clearScreen moves the cursor home and clears the screen.
const clearScreen = "\x1b[H\x1b[2J"

// defaultAccent colors the time token when no accent is configured.
const defaultAccent = "#F2B134"

// Config contains the surface's output and settings.
type Config struct {
	// Out receives every drawn frame.
	Out io.Writer

	// Width is the quote area width in cells. Zero uses the default.
	Width int

	// Accent is the lipgloss color of the time token.
	Accent string

	// Clear redraws in place instead of appending frames.
	Clear bool

	Logger *slog.Logger
}

type styles struct {
	box         lipgloss.Style
	quote       lipgloss.Style
	emphasis    lipgloss.Style
	attribution lipgloss.Style
	footer      lipgloss.Style
	failure     lipgloss.Style
}

func newStyles(accent string) styles {
	return styles{
		box:         lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
		quote:       lipgloss.NewStyle(),
		emphasis:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(accent)),
		attribution: lipgloss.NewStyle().Italic(true).Faint(true),
		footer:      lipgloss.NewStyle().Faint(true),
		failure: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FCA5A5")).
			Foreground(lipgloss.Color("#FCA5A5")).
			Padding(1, 2),
	}
}

// Surface draws frames as a bordered box: the fitted quote, its attribution
// and a footer with the date and weather. It implements ports.Surface.
type Surface struct {
	out      io.Writer
	width    int
	clear    bool
	styles   styles
	measurer *textfit.CellMeasurer
	logger   *slog.Logger

	mu      sync.Mutex
	frame   ports.Frame
	drawn   bool
	hidden  bool
	failure string
}

// New creates a terminal surface. It panics without an output writer.
func New(cfg Config) *Surface {
	if cfg.Out == nil {
		panic("terminal: Surface requires an output writer")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	width := cmp.Or(cfg.Width, config.DefaultTerminalWidth)
	st := newStyles(cmp.Or(cfg.Accent, defaultAccent))

	return &Surface{
		out:      cfg.Out,
		width:    width,
		clear:    cfg.Clear,
		styles:   st,
		measurer: textfit.NewCellMeasurer(width, st.emphasis),
		logger:   logger.With(slog.String("component", "terminal.Surface")),
	}
}

// Name implements ports.Surface.
func (s *Surface) Name() string {
	return "terminal"
}

// Measurer implements ports.Surface. Quotes are fitted to the box width.
func (s *Surface) Measurer() textfit.Measurer {
	return s.measurer
}

// Render implements ports.Surface.
func (s *Surface) Render(_ context.Context, frame ports.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frame = frame
	s.drawn = true
	s.failure = ""

	return s.draw()
}

// ShowError implements ports.Surface. The banner replaces the whole box.
func (s *Surface) ShowError(_ context.Context, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failure = message

	return s.draw()
}

// SetVisible implements ports.Surface. A hidden quote keeps its lines so the
// box does not change height during a fade.
func (s *Surface) SetVisible(_ context.Context, visible bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hidden = !visible
	if !s.drawn || s.failure != "" {
		return nil
	}

	return s.draw()
}

// View returns the current drawing without writing it.
func (s *Surface) View() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.view()
}

// draw writes the current view. Callers hold mu.
func (s *Surface) draw() error {
	var b strings.Builder
	if s.clear {
		b.WriteString(clearScreen)
	}

	b.WriteString(s.view())
	b.WriteByte('\n')

	if _, err := io.WriteString(s.out, b.String()); err != nil {
		return fmt.Errorf("writing terminal frame: %w", err)
	}

	return nil
}

// view builds the drawing. Callers hold mu.
func (s *Surface) view() string {
	if s.failure != "" {
		return s.styles.failure.Width(s.width).Render(s.failure)
	}

	q := s.frame.Quote

	quote := s.measurer.Wrap(textfit.Render(q.Spans, s.emphasize, nil))
	if s.hidden {
		quote = blank(quote)
	}

	parts := []string{s.styles.quote.Width(s.width).Render(quote)}

	if attribution := q.Attribution(); attribution != "" {
		line := s.styles.attribution.Render(attribution)
		if s.hidden {
			line = ""
		}

		parts = append(parts, "", lipgloss.PlaceHorizontal(s.width, lipgloss.Right, line))
	}

	parts = append(parts, "", s.footer())

	return s.styles.box.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// footer puts the date on the left and the weather on the right.
func (s *Surface) emphasize(text string) string {
	return s.styles.emphasis.Render(text)
}

func (s *Surface) footer() string {
	left := s.frame.DateTime
	right := s.frame.Weather

	gap := s.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return s.styles.footer.Render(left + strings.Repeat(" ", gap) + right)
}

// blank replaces text with as many empty lines.
func blank(text string) string {
	return strings.Repeat("\n", lipgloss.Height(text)-1)
}
