package main

import (
	"cmp"
	"os"

	"github.com/spf13/cobra"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	profile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "authorclock",
		Short: "A clock that tells the time with a literary quote for every minute.",
		Long: `authorclock shows the current time as a sentence from a book that
mentions it, with the time phrase emphasized, the author and title below,
and the date and weather in the footer.

Configuration is read from configs/base.yaml, then configs/<profile>.yaml,
then APP_ environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.profile, "profile", "p", defaultProfile(),
		"Config profile, loaded from configs/<profile>.yaml.")

	addServe(cmd, opts)
	addTTY(cmd, opts)
	addFit(cmd)
	addVersion(cmd)

	return cmd
}

// defaultProfile is APP_ENVIRONMENT, or "local" when it is unset.
func defaultProfile() string {
	return cmp.Or(os.Getenv("APP_ENVIRONMENT"), "local")
}
