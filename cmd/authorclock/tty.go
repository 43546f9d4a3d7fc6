package main

import (
	"cmp"
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/authorclock/internal/adapters/terminal"
	"github.com/jsamuelsen/authorclock/internal/ports"
)

type ttyOptions struct {
	width   int
	noClear bool
	quiet   bool
}

func addTTY(topLevel *cobra.Command, root *rootOptions) {
	opts := &ttyOptions{}

	cmd := &cobra.Command{
		Use:   "tty",
		Short: "Draw the clock in the terminal.",
		Long: `Draw the clock in the terminal, redrawing it every minute.

Logs are written to stderr; redirect them or pass --quiet to keep the
display clean. A dataset that fails to load is shown and the command exits
with an error.`,
		Example: `
authorclock tty
authorclock tty --width 80 --quiet
authorclock tty 2>clock.log
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTTY(cmd.Context(), root.profile, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().IntVarP(&opts.width, "width", "w", 0, "Box width in cells. Overrides terminal.width.")
	cmd.Flags().BoolVar(&opts.noClear, "no-clear", false, "Append each frame instead of redrawing the screen.")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Discard console logs. The log file, if enabled, still receives them.")

	topLevel.AddCommand(cmd)
}

func runTTY(ctx context.Context, profile string, opts *ttyOptions, out, errOut io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logOut := errOut
	if opts.quiet {
		logOut = io.Discard
	}

	svc, err := bootstrap(ctx, profile, logOut)
	if err != nil {
		return err
	}

	defer svc.close(context.WithoutCancel(ctx))

	screen := terminal.New(terminal.Config{
		Out:    out,
		Width:  cmp.Or(opts.width, svc.cfg.Terminal.Width),
		Accent: svc.cfg.Terminal.Accent,
		Clear:  !opts.noClear,
		Logger: svc.logger,
	})

	devices, err := svc.deviceSurfaces()
	if err != nil {
		return err
	}

	cycle, err := svc.buildCycle(append([]ports.Surface{screen}, devices...))
	if err != nil {
		return err
	}

	return runCycle(ctx, svc.logger, cycle, true)
}
