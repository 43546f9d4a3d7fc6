package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jsamuelsen/authorclock/internal/platform/config"
	"github.com/jsamuelsen/authorclock/internal/textfit"
)

type fitOptions struct {
	token  string
	budget int
	width  int
	lines  int
	output string
}

// fitOutput is the JSON form of a fitted quote.
type fitOutput struct {
	Mode string `json:"mode"`
	textfit.Result
}

func addFit(topLevel *cobra.Command) {
	opts := &fitOptions{}

	cmd := &cobra.Command{
		Use:   "fit [text]",
		Short: "Fit a quote to the display and emphasize its time phrase.",
		Long: `Fit a quote the way the clock does before showing it.

Without --width the text is cut to a character budget around the time
phrase. With --width it is wrapped to that many terminal cells and cut to
--lines lines. Text is read from the arguments, or from stdin when there
are none.`,
		Example: `
authorclock fit --token "half past three" "It was half past three and the house was quiet."
authorclock fit -t noon -w 40 -l 2 < quote.txt
authorclock fit -t noon -o json "At noon the bells rang."
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := fitText(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			return runFit(cmd.OutOrStdout(), opts, text)
		},
	}

	cmd.Flags().StringVarP(&opts.token, "token", "t", "", "Time phrase to keep visible and emphasize.")
	cmd.Flags().IntVarP(&opts.budget, "budget", "b", config.DefaultCharBudget, "Character budget when --width is not set.")
	cmd.Flags().IntVarP(&opts.width, "width", "w", 0, "Wrap width in cells. Enables line fitting.")
	cmd.Flags().IntVarP(&opts.lines, "lines", "l", config.DefaultMaxLines, "Maximum lines when --width is set.")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "text", "Output format. One of 'text' or 'json'.")

	topLevel.AddCommand(cmd)
}

// fitText joins args, or reads all of in when there are none.
func fitText(args []string, in io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	b, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}

	return strings.TrimSpace(string(b)), nil
}

func runFit(w io.Writer, opts *fitOptions, text string) error {
	if text == "" {
		return errors.New("no text to fit")
	}

	if opts.budget < 1 {
		return fmt.Errorf("budget must be positive, got %d", opts.budget)
	}

	emphasis := lipgloss.NewStyle().Bold(true)

	var (
		mode     = "budget"
		res      textfit.Result
		measurer *textfit.CellMeasurer
	)

	if opts.width > 0 {
		mode = "geometry"
		measurer = textfit.NewCellMeasurer(opts.width, emphasis)
		res = textfit.FitGeometry(text, opts.token, measurer, opts.lines)
	} else {
		res = textfit.FitBudget(text, opts.token, opts.budget)
	}

	switch opts.output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(fitOutput{Mode: mode, Result: res})

	case "text":
		out := res.Highlighted(func(s string) string { return emphasis.Render(s) }, nil)
		if measurer != nil {
			out = measurer.Wrap(out)
		}

		_, err := fmt.Fprintln(w, out)

		return err

	default:
		return fmt.Errorf("unknown output format %q", opts.output)
	}
}
