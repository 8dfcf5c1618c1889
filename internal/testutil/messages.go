package testutil

import (
	"time"

	"github.com/roach88/busscope/internal/headers"
	"github.com/roach88/busscope/internal/message"
)

// Msg starts a message builder with the given id received by endpoint
// "name@host". The host part is optional.
func Msg(id, receiver string) *MessageBuilder {
	return &MessageBuilder{m: message.Message{
		ID:                id,
		AuditID:           "audit-" + id,
		ConversationID:    "conv-1",
		MessageType:       "Test.Messages." + id + ", Test.Messages",
		Intent:            message.IntentSend,
		Status:            message.StatusSuccessful,
		ReceivingEndpoint: ParseEndpoint(receiver),
	}}
}

// MessageBuilder assembles a message.Message for tests.
type MessageBuilder struct {
	m       message.Message
	headers []headers.KeyValue
}

// From sets the sending endpoint ("name@host").
func (b *MessageBuilder) From(sender string) *MessageBuilder {
	e := ParseEndpoint(sender)
	b.m.SendingEndpoint = &e
	return b
}

// RelatedTo adds the RelatedTo header.
func (b *MessageBuilder) RelatedTo(parent string) *MessageBuilder {
	return b.Header("NServiceBus.RelatedTo", parent)
}

// Version adds the Version header.
func (b *MessageBuilder) Version(v string) *MessageBuilder {
	return b.Header("NServiceBus.Version", v)
}

// Timeout marks the message as a saga timeout.
func (b *MessageBuilder) Timeout() *MessageBuilder {
	return b.Header("NServiceBus.IsSagaTimeoutMessage", "true")
}

// Header appends a raw header pair.
func (b *MessageBuilder) Header(key, value string) *MessageBuilder {
	b.headers = append(b.headers, headers.KeyValue{Key: key, Value: value})
	return b
}

// Intent sets the intent.
func (b *MessageBuilder) Intent(i message.Intent) *MessageBuilder {
	b.m.Intent = i
	return b
}

// Type sets the message type.
func (b *MessageBuilder) Type(t string) *MessageBuilder {
	b.m.MessageType = t
	return b
}

// Conversation sets the conversation id.
func (b *MessageBuilder) Conversation(id string) *MessageBuilder {
	b.m.ConversationID = id
	return b
}

// Sent sets TimeSent.
func (b *MessageBuilder) Sent(t time.Time) *MessageBuilder {
	b.m.TimeSent = t
	return b
}

// Processed sets ProcessedAt and ProcessingTime.
func (b *MessageBuilder) Processed(t time.Time, d time.Duration) *MessageBuilder {
	b.m.ProcessedAt = t
	b.m.ProcessingTime = d
	return b
}

// Build returns the message.
func (b *MessageBuilder) Build() message.Message {
	m := b.m
	if m.SendingEndpoint != nil {
		e := *m.SendingEndpoint
		m.SendingEndpoint = &e
	}
	m.Headers = headers.New(b.headers)
	return m
}

// ParseEndpoint splits "name@host" into an Endpoint whose HostID is
// "id-<host>". A bare name yields an endpoint without host.
func ParseEndpoint(s string) message.Endpoint {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '@' {
			host := s[i+1:]
			return message.Endpoint{Name: s[:i], Host: host, HostID: "id-" + host}
		}
	}
	return message.Endpoint{Name: s}
}

// Messages builds every builder in order.
func Messages(builders ...*MessageBuilder) []message.Message {
	out := make([]message.Message, len(builders))
	for i, b := range builders {
		out[i] = b.Build()
	}
	return out
}
