package servicecontrol

import (
	"github.com/roach88/busscope/internal/headers"
	"github.com/roach88/busscope/internal/message"
)

// EndpointInfo is one endpoint instance known to the service.
type EndpointInfo struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	HostDisplayName     string `json:"host_display_name"`
	Monitored           bool   `json:"monitored"`
	MonitorHeartbeat    bool   `json:"monitor_heartbeat"`
	IsSendingHeartbeats bool   `json:"is_sending_heartbeats"`
}

// EndpointGroup collects the instances sharing one logical name.
type EndpointGroup struct {
	Name      string         `json:"name"`
	Instances []EndpointInfo `json:"instances"`
}

// AuditQuery selects one page of audited messages.
type AuditQuery struct {
	Endpoint  string // restrict to one receiving endpoint; empty for all
	Search    string // full-text query; empty disables search
	Page      int    // 1-based; <= 0 means 1
	PageSize  int    // <= 0 means the client default
	OrderBy   string // e.g. "time_sent"; empty leaves service order
	Ascending bool
}

// AuditPage is one page of audited messages.
type AuditPage struct {
	TotalCount int               `json:"total_count"`
	Messages   []message.Message `json:"messages"`
}

type wireEndpoint struct {
	Name   string `json:"name"`
	Host   string `json:"host"`
	HostID string `json:"host_id"`
}

type wireSaga struct {
	SagaID       string `json:"saga_id"`
	SagaType     string `json:"saga_type"`
	ChangeStatus string `json:"change_status"`
}

// wireMessage mirrors the service's audit message record. Times and
// durations arrive as strings and are parsed in toMessage.
type wireMessage struct {
	ID                 string             `json:"id"`
	MessageID          string             `json:"message_id"`
	MessageType        string             `json:"message_type"`
	SendingEndpoint    *wireEndpoint      `json:"sending_endpoint"`
	ReceivingEndpoint  wireEndpoint       `json:"receiving_endpoint"`
	TimeSent           string             `json:"time_sent"`
	ProcessedAt        string             `json:"processed_at"`
	CriticalTime       string             `json:"critical_time"`
	ProcessingTime     string             `json:"processing_time"`
	DeliveryTime       string             `json:"delivery_time"`
	IsSystemMessage    bool               `json:"is_system_message"`
	ConversationID     string             `json:"conversation_id"`
	Headers            []headers.KeyValue `json:"headers"`
	Status             string             `json:"status"`
	MessageIntent      string             `json:"message_intent"`
	BodyURL            string             `json:"body_url"`
	BodySize           int64              `json:"body_size"`
	InstanceID         string             `json:"instance_id"`
	InvokedSagas       []wireSaga         `json:"invoked_sagas"`
	OriginatesFromSaga *wireSaga          `json:"originates_from_saga"`
}
