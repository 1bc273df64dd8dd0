package main

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Build information variables (set with -ldflags "-X main.Version=...")
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var versionJSON bool

// VersionOutput represents the version output structure
type VersionOutput struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  "Display version number, build time, commit ID and Go version",
	RunE: func(cmd *cobra.Command, args []string) error {
		version := VersionOutput{
			Version:   Version,
			BuildTime: BuildTime,
			GitCommit: GitCommit,
			GoVersion: runtime.Version(),
		}

		out := cmd.OutOrStdout()
		if versionJSON {
			output, err := json.MarshalIndent(version, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal json: %w", err)
			}
			fmt.Fprintln(out, string(output))
			return nil
		}

		fmt.Fprintln(out, "tgchannel version information:")
		fmt.Fprintf(out, "  Version:   %s\n", version.Version)
		fmt.Fprintf(out, "  BuildTime: %s\n", version.BuildTime)
		fmt.Fprintf(out, "  GitCommit: %s\n", version.GitCommit)
		fmt.Fprintf(out, "  Go:        %s\n", version.GoVersion)
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Output in JSON format")
}
