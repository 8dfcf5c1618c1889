package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/busscope/internal/message"
	"github.com/roach88/busscope/internal/sequence"
	"github.com/roach88/busscope/internal/store"
)

// ConversationOptions holds flags for the conversation command.
type ConversationOptions struct {
	*RootOptions
	File     string // read messages from a JSON file instead of the service
	Snapshot string // read a stored snapshot by id
	Latest   bool   // read the latest stored snapshot of the conversation
	Database string
	Save     bool
}

// NewConversationCommand creates the conversation command.
func NewConversationCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConversationOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "conversation [conversation-id]",
		Short: "Reconstruct a conversation",
		Long: `Reconstruct who sent which message to whom in one conversation.

Messages come from the monitoring service by default, from a JSON file
with --file, or from the snapshot store with --snapshot or --latest.
With --save the fetched messages are stored as a snapshot.

The output lists endpoints, handlers in processing order, and every
route with its arrow type (Command, Event, Local, Timeout).

Exit codes:
  0 - Conversation reconstructed
  1 - Conversation data is inconsistent, or the service failed
  2 - Command error (bad flags, unreadable file, missing database)

Examples:
  busscope conversation 7c4b0b2e-...
  busscope conversation 7c4b0b2e-... --save --db ./busscope.db
  busscope conversation --file ./conversation.json
  busscope conversation 7c4b0b2e-... --latest --db ./busscope.db
  busscope conversation --snapshot 3f2a... --db ./busscope.db --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return runConversation(opts, id, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.File, "file", "", "read messages from a JSON file")
	cmd.Flags().StringVar(&opts.Snapshot, "snapshot", "", "read a stored snapshot by id")
	cmd.Flags().BoolVar(&opts.Latest, "latest", false, "read the latest stored snapshot of the conversation")
	cmd.Flags().StringVar(&opts.Database, "db", "", "snapshot database (default from config)")
	cmd.Flags().BoolVar(&opts.Save, "save", false, "store the fetched messages as a snapshot")
	cmd.MarkFlagsMutuallyExclusive("file", "snapshot", "latest")

	return cmd
}

func runConversation(opts *ConversationOptions, id string, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts.RootOptions)
	ctx := cmd.Context()

	dbPath := opts.Database
	if dbPath == "" && opts.Config != nil {
		dbPath = opts.Config.Database
	}
	needsDB := opts.Snapshot != "" || opts.Latest || opts.Save
	if needsDB && dbPath == "" {
		return f.FailWith(CodeInput, ExitCommandError, errors.New("a snapshot database is required (--db or database in config)"))
	}
	if id == "" && opts.File == "" && opts.Snapshot == "" {
		return f.FailWith(CodeInput, ExitCommandError, errors.New("a conversation id is required"))
	}

	var st *store.Store
	if needsDB {
		var err error
		st, err = store.Open(dbPath)
		if err != nil {
			return f.FailWith(CodeStore, ExitCommandError, fmt.Errorf("open database: %w", err))
		}
		defer st.Close()
	}

	result := ConversationResult{ConversationID: id}
	var msgs []message.Message

	switch {
	case opts.File != "":
		loaded, err := loadMessagesFile(opts.File)
		if err != nil {
			return f.FailWith(CodeInput, ExitCommandError, err)
		}
		msgs = loaded
		result.Source = "file:" + opts.File
		if result.ConversationID == "" && len(msgs) > 0 {
			result.ConversationID = msgs[0].ConversationID
		}

	case opts.Snapshot != "":
		snap, loaded, err := st.LoadSnapshot(ctx, opts.Snapshot)
		if err != nil {
			return f.FailWith(CodeNotFound, ExitFailure, err)
		}
		msgs = loaded
		result.Source = "snapshot"
		result.SnapshotID = snap.ID
		result.ConversationID = snap.ConversationID

	case opts.Latest:
		snap, loaded, err := st.LatestSnapshot(ctx, id)
		if err != nil {
			return f.FailWith(CodeNotFound, ExitFailure, err)
		}
		msgs = loaded
		result.Source = "snapshot"
		result.SnapshotID = snap.ID

	default:
		c, err := opts.newClient()
		if err != nil {
			return err
		}
		pageSize := 0
		if opts.Config != nil {
			pageSize = opts.Config.ConversationPageSize
		}
		msgs, err = c.GetConversation(ctx, id, pageSize)
		if err != nil {
			return f.Fail(err)
		}
		result.Source = c.BaseURL()
	}

	if opts.Save && result.Source != "snapshot" {
		res, err := st.SaveSnapshot(ctx, result.ConversationID, result.Source, msgs)
		if err != nil {
			return f.FailWith(CodeStore, ExitFailure, err)
		}
		result.SnapshotID = res.SnapshotID
		f.VerboseLog("saved snapshot %s (new content: %t)", res.SnapshotID, res.Inserted)
	}

	model, err := sequence.Build(msgs)
	if err != nil {
		slog.Debug("reconstruction failed", "conversation_id", result.ConversationID, "error", err)
		return f.Fail(err)
	}
	result.ModelView = model.View()

	return f.Emit(result, func(w io.Writer) error { return renderConversation(w, result) })
}

// loadMessagesFile reads either a JSON array of messages or an object with
// a "messages" array, as written by `--format json` of this tool or the API.
func loadMessagesFile(path string) ([]message.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read messages file: %w", err)
	}
	data = bytes.TrimSpace(data)

	if bytes.HasPrefix(data, []byte("[")) {
		var msgs []message.Message
		if err := json.Unmarshal(data, &msgs); err != nil {
			return nil, fmt.Errorf("parse messages file %s: %w", path, err)
		}
		return msgs, nil
	}

	var wrapped struct {
		Messages []message.Message `json:"messages"`
		Data     *struct {
			Messages []message.Message `json:"messages"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parse messages file %s: %w", path, err)
	}
	if wrapped.Data != nil && wrapped.Messages == nil {
		return wrapped.Data.Messages, nil
	}
	return wrapped.Messages, nil
}
