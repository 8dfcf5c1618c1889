package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X github.com/roach88/busscope/internal/cli.Version=...".
var (
	Version = "dev"
	Commit  = "none"
)

// VersionInfo is the payload of the version command.
type VersionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Go      string `json:"go"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := VersionInfo{Version: Version, Commit: Commit, Go: runtime.Version()}
			return newFormatter(cmd, rootOpts).Emit(info, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "busscope %s (%s, %s)\n", info.Version, info.Commit, info.Go)
				return err
			})
		},
	}
}
