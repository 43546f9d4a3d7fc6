package main

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

// versionInfo is the build metadata printed by the version command.
type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func currentVersion() versionInfo {
	return versionInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func addVersion(topLevel *cobra.Command) {
	short := false
	output := "json"

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the authorclock version.",
		Example: `
authorclock version
authorclock version --short
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printVersion(cmd.OutOrStdout(), short, output)
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print just the version number.")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "Output format. One of 'json' or 'text'.")

	topLevel.AddCommand(cmd)
}

func printVersion(w io.Writer, short bool, output string) error {
	info := currentVersion()

	if short {
		_, err := fmt.Fprintln(w, info.Version)
		return err
	}

	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(info)

	case "text":
		_, err := fmt.Fprintf(w, "authorclock %s (commit %s, built %s, %s %s)\n",
			info.Version, info.Commit, info.BuildTime, info.GoVersion, info.Platform)

		return err

	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}
