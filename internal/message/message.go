package message

import (
	"time"

	"github.com/roach88/busscope/internal/headers"
)

// Intent is the declared purpose of a message send.
type Intent string

const (
	IntentSend        Intent = "send"
	IntentPublish     Intent = "publish"
	IntentReply       Intent = "reply"
	IntentSubscribe   Intent = "subscribe"
	IntentUnsubscribe Intent = "unsubscribe"
)

// ParseIntent maps the service's intent text onto an Intent.
// Matching is case-insensitive; unknown values are kept verbatim.
func ParseIntent(s string) Intent {
	switch lower(s) {
	case "send":
		return IntentSend
	case "publish":
		return IntentPublish
	case "reply":
		return IntentReply
	case "subscribe":
		return IntentSubscribe
	case "unsubscribe":
		return IntentUnsubscribe
	}
	return Intent(s)
}

// Endpoint identifies one physical instance of a logical endpoint.
type Endpoint struct {
	Name   string `json:"name"`
	Host   string `json:"host,omitempty"`
	HostID string `json:"host_id,omitempty"`
}

// Address renders the endpoint as name@host, or just the name when the
// host is unknown.
func (e Endpoint) Address() string {
	if e.Host == "" {
		return e.Name
	}
	return e.Name + "@" + e.Host
}

// Saga references a saga instance touched by a message.
type Saga struct {
	SagaID       string `json:"saga_id"`
	SagaType     string `json:"saga_type,omitempty"`
	ChangeStatus string `json:"change_status,omitempty"`
}

// Message is one audited message.
type Message struct {
	ID                 string          `json:"message_id"`
	AuditID            string          `json:"id,omitempty"`
	ConversationID     string          `json:"conversation_id,omitempty"`
	MessageType        string          `json:"message_type,omitempty"`
	Intent             Intent          `json:"message_intent,omitempty"`
	Status             Status          `json:"status,omitempty"`
	SendingEndpoint    *Endpoint       `json:"sending_endpoint,omitempty"`
	ReceivingEndpoint  Endpoint        `json:"receiving_endpoint"`
	TimeSent           time.Time       `json:"time_sent,omitzero"`
	ProcessedAt        time.Time       `json:"processed_at,omitzero"`
	ProcessingTime     time.Duration   `json:"processing_time,omitempty"`
	CriticalTime       time.Duration   `json:"critical_time,omitempty"`
	DeliveryTime       time.Duration   `json:"delivery_time,omitempty"`
	BodyURL            string          `json:"body_url,omitempty"`
	BodySize           int64           `json:"body_size,omitempty"`
	InstanceID         string          `json:"instance_id,omitempty"`
	IsSystemMessage    bool            `json:"is_system_message,omitempty"`
	Headers            headers.Headers `json:"headers"`
	InvokedSagas       []Saga          `json:"invoked_sagas,omitempty"`
	OriginatesFromSaga *Saga           `json:"originates_from_saga,omitempty"`
}

// Header returns the header value for key, or def when absent.
func (m Message) Header(key, def string) string {
	return m.Headers.Get(key, def)
}

// RelatedTo returns the id of the message that caused this one.
func (m Message) RelatedTo() (string, bool) {
	v, ok := m.Headers.Lookup(headers.RelatedTo)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Version returns the sender's version header, empty when absent.
func (m Message) Version() string {
	return m.Headers.Get(headers.Version, "")
}

// IsSagaTimeout reports whether the message was a saga timeout.
func (m Message) IsSagaTimeout() bool {
	return m.Headers.Bool(headers.IsSagaTimeout)
}

// Name is the human-readable form of the message type.
func (m Message) Name() string {
	return HumanizeType(m.MessageType)
}

// HasSender reports whether a sending endpoint was recorded.
func (m Message) HasSender() bool {
	return m.SendingEndpoint != nil
}
