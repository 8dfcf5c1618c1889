package message

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"
)

// DomainSnapshot separates snapshot hashes from any other use of SHA-256
// over canonical JSON. The version suffix allows algorithm migration.
const DomainSnapshot = "busscope/snapshot/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SnapshotID computes the content-addressed id of a conversation snapshot.
// Message order does not affect the id.
func SnapshotID(conversationID string, msgs []Message) (string, error) {
	sorted := append([]Message(nil), msgs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ID != sorted[j].ID {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].AuditID < sorted[j].AuditID
	})

	list := make([]any, len(sorted))
	for i, m := range sorted {
		list[i] = canonicalMessage(m)
	}

	canonical, err := MarshalCanonical(map[string]any{
		"conversation_id": conversationID,
		"messages":        list,
	})
	if err != nil {
		return "", fmt.Errorf("SnapshotID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}

// canonicalMessage projects the fields that define a message's identity
// within a snapshot onto canonical-JSON-safe values.
func canonicalMessage(m Message) map[string]any {
	obj := map[string]any{
		"message_id":         m.ID,
		"audit_id":           m.AuditID,
		"conversation_id":    m.ConversationID,
		"message_type":       m.MessageType,
		"intent":             string(m.Intent),
		"status":             string(m.Status),
		"receiving_endpoint": canonicalEndpoint(m.ReceivingEndpoint),
		"time_sent":          canonicalTime(m.TimeSent),
		"processed_at":       canonicalTime(m.ProcessedAt),
		"processing_time":    int64(m.ProcessingTime),
	}
	if m.SendingEndpoint != nil {
		obj["sending_endpoint"] = canonicalEndpoint(*m.SendingEndpoint)
	}

	pairs := m.Headers.Pairs()
	hdrs := make([]any, len(pairs))
	for i, p := range pairs {
		hdrs[i] = map[string]any{"key": p.Key, "value": p.Value}
	}
	obj["headers"] = hdrs
	return obj
}

func canonicalEndpoint(e Endpoint) map[string]any {
	return map[string]any{
		"name":    e.Name,
		"host":    e.Host,
		"host_id": e.HostID,
	}
}

// canonicalTime renders t in UTC; absent times become "".
func canonicalTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// MustSnapshotID is like SnapshotID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSnapshotID(conversationID string, msgs []Message) string {
	id, err := SnapshotID(conversationID, msgs)
	if err != nil {
		panic(err)
	}
	return id
}
