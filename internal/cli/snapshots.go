package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/busscope/internal/store"
)

// SnapshotsOptions holds flags for the snapshots command.
type SnapshotsOptions struct {
	*RootOptions
	Conversation string
	Database     string
}

// NewSnapshotsCommand creates the snapshots command.
func NewSnapshotsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SnapshotsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List stored conversation snapshots",
		Long: `List snapshots in the snapshot database, oldest first.

Examples:
  busscope snapshots --db ./busscope.db
  busscope snapshots --conversation 7c4b0b2e-... --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshots(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Conversation, "conversation", "", "only snapshots of this conversation")
	cmd.Flags().StringVar(&opts.Database, "db", "", "snapshot database (default from config)")
	return cmd
}

func runSnapshots(opts *SnapshotsOptions, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts.RootOptions)

	dbPath := opts.Database
	if dbPath == "" && opts.Config != nil {
		dbPath = opts.Config.Database
	}
	if dbPath == "" {
		return f.FailWith(CodeInput, ExitCommandError, errors.New("a snapshot database is required (--db or database in config)"))
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return f.FailWith(CodeStore, ExitCommandError, fmt.Errorf("open database: %w", err))
	}
	defer st.Close()

	snaps, err := st.ListSnapshots(cmd.Context(), opts.Conversation)
	if err != nil {
		return f.FailWith(CodeStore, ExitFailure, err)
	}
	return f.Emit(snaps, func(w io.Writer) error { return renderSnapshots(w, snaps) })
}
