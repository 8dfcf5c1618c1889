package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/roach88/busscope/internal/message"
	"github.com/roach88/busscope/internal/sequence"
	"github.com/roach88/busscope/internal/servicecontrol"
	"github.com/roach88/busscope/internal/store"
)

// ConversationResult is the payload of the conversation command.
type ConversationResult struct {
	ConversationID string `json:"conversation_id"`
	SnapshotID     string `json:"snapshot_id,omitempty"`
	Source         string `json:"source"`
	sequence.ModelView
}

// renderConversation writes the reconstructed model as text.
func renderConversation(w io.Writer, r ConversationResult) error {
	fmt.Fprintf(w, "Conversation: %s\n", r.ConversationID)
	if r.SnapshotID != "" {
		fmt.Fprintf(w, "Snapshot: %s\n", r.SnapshotID)
	}
	fmt.Fprintf(w, "Source: %s\n", r.Source)
	s := r.Stats
	fmt.Fprintf(w, "Messages: %d  Roots: %d  Orphans: %d  Handlers: %d  Endpoints: %d\n",
		s.Messages, s.Roots, s.OrphanRoots, s.Handlers, s.Endpoints)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Endpoints ===")
	if len(r.Endpoints) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, e := range r.Endpoints {
		fmt.Fprintf(w, "  %s", e.Name)
		if e.Hosts != "" {
			fmt.Fprintf(w, " (%s)", e.Hosts)
		}
		if e.Versions != "" {
			fmt.Fprintf(w, " version %s", e.Versions)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Handlers ===")
	if len(r.Handlers) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for i, h := range r.Handlers {
		fmt.Fprintf(w, "  %d. %s", i+1, h.Key)
		if h.Name != "" && !h.ConversationStart {
			fmt.Fprintf(w, " %q", h.Name)
		}
		fmt.Fprintf(w, " at %s", formatTime(h.HandledAt))
		if h.ProcessingTimeMS > 0 {
			fmt.Fprintf(w, " (%s)", time.Duration(h.ProcessingTimeMS*float64(time.Millisecond)))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Routes ===")
	if len(r.Routes) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, rt := range r.Routes {
		from := rt.From
		if from == "" {
			from = "(external)"
		}
		fmt.Fprintf(w, "  %s [%s] %s -> %s\n", rt.Name, rt.Type, from, rt.To)
	}
	return nil
}

func renderEndpoints(w io.Writer, groups []servicecontrol.EndpointGroup) error {
	if len(groups) == 0 {
		fmt.Fprintln(w, "No endpoints.")
		return nil
	}
	for _, g := range groups {
		fmt.Fprintf(w, "%s\n", g.Name)
		for _, in := range g.Instances {
			state := "not monitored"
			if in.Monitored {
				state = "monitored"
				if in.MonitorHeartbeat && !in.IsSendingHeartbeats {
					state = "monitored, heartbeats missing"
				}
			}
			fmt.Fprintf(w, "  %s %s (%s)\n", in.ID, in.HostDisplayName, state)
		}
	}
	return nil
}

func renderMessages(w io.Writer, page *servicecontrol.AuditPage, pageNum int) error {
	if pageNum <= 0 {
		pageNum = 1
	}
	fmt.Fprintf(w, "Page %d, %d of %d messages\n", pageNum, len(page.Messages), page.TotalCount)
	for _, m := range page.Messages {
		info := message.NewStatusInfo(m)
		warn := ""
		if info.HasWarning {
			warn = " !"
		}
		from := "-"
		if m.SendingEndpoint != nil {
			from = m.SendingEndpoint.Address()
		}
		fmt.Fprintf(w, "  %s %s %s -> %s [%s]%s %s\n",
			m.ID, m.Name(), from, m.ReceivingEndpoint.Address(),
			info.Description, warn, formatTime(m.ProcessedAt))
	}
	return nil
}

func renderSnapshots(w io.Writer, snaps []store.Snapshot) error {
	if len(snaps) == 0 {
		fmt.Fprintln(w, "No snapshots.")
		return nil
	}
	for _, s := range snaps {
		fmt.Fprintf(w, "%s %s %d messages, created %s\n",
			truncateID(s.ID), s.ConversationID, s.MessageCount, formatTime(s.CreatedAt))
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}

// indent prefixes every line of s.
func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n") + "\n"
}
