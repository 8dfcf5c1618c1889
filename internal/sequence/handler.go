package sequence

import (
	"slices"
	"time"

	"github.com/roach88/busscope/internal/message"
)

// ConversationStartID is the handler id of the implicit step that sent a
// message carrying no RelatedTo header.
const ConversationStartID = "ConversationStart"

// Handler is one logical processing step on one endpoint.
type Handler struct {
	ID       string
	Endpoint *EndpointIdentity

	// Name is the humanized type of the message this handler processed.
	Name string

	// ProcessedAt and ProcessingTime are set once the handler is matched
	// to the message it processed.
	ProcessedAt    time.Time
	ProcessingTime time.Duration

	// EstimatedProcessedAt is the earliest send time of any message this
	// handler emitted.
	EstimatedProcessedAt time.Time

	processed bool
	incoming  *Arrow
	outgoing  []*Arrow
	route     *Route
}

// HandledAt is ProcessedAt when known, else EstimatedProcessedAt, else the
// zero time.
func (h *Handler) HandledAt() time.Time {
	if !h.ProcessedAt.IsZero() {
		return h.ProcessedAt
	}
	return h.EstimatedProcessedAt
}

// Incoming returns the arrow that delivered this handler's message, or nil.
func (h *Handler) Incoming() *Arrow { return h.incoming }

// Outgoing returns the arrows this handler sent, in link order.
func (h *Handler) Outgoing() []*Arrow { return slices.Clone(h.outgoing) }

// Route returns the processing route ending at this handler, or nil.
func (h *Handler) Route() *Route { return h.route }

// IsConversationStart reports whether h is the implicit start step.
func (h *Handler) IsConversationStart() bool { return h.ID == ConversationStartID }

// Processed reports whether the handler was matched to the message it
// processed.
func (h *Handler) Processed() bool { return h.processed }

// SetIncoming links a as the handler's incoming arrow. A handler accepts
// exactly one; a second call returns a *ModelError and leaves the first in
// place.
func (h *Handler) SetIncoming(a *Arrow) error {
	if h.incoming != nil {
		return NewDuplicateIncomingError(h, h.incoming, a)
	}
	h.incoming = a
	return nil
}

// UpdateEstimate lowers EstimatedProcessedAt to t. Zero times are ignored.
func (h *Handler) UpdateEstimate(t time.Time) {
	if t.IsZero() {
		return
	}
	if h.EstimatedProcessedAt.IsZero() || t.Before(h.EstimatedProcessedAt) {
		h.EstimatedProcessedAt = t
	}
}

// markProcessed records the processing occurrence of m on h.
func (h *Handler) markProcessed(m *message.Message) {
	h.processed = true
	h.ProcessedAt = m.ProcessedAt
	h.ProcessingTime = m.ProcessingTime
	h.Name = m.Name()
}

type handlerKey struct {
	id       string
	endpoint string
}

// HandlerRegistry deduplicates handlers by (id, endpoint name).
type HandlerRegistry struct {
	byKey map[handlerKey]*Handler
	order []*Handler
}

// NewHandlerRegistry returns an empty registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{byKey: make(map[handlerKey]*Handler)}
}

// TryRegister stores h unless a handler with the same key exists. It
// returns the stored handler and whether h was newly created. A new handler
// is also attached to its endpoint's handler list.
func (r *HandlerRegistry) TryRegister(h *Handler) (*Handler, bool) {
	k := handlerKey{id: h.ID}
	if h.Endpoint != nil {
		k.endpoint = h.Endpoint.Name
	}
	if existing, ok := r.byKey[k]; ok {
		return existing, false
	}
	r.byKey[k] = h
	r.order = append(r.order, h)
	if h.Endpoint != nil {
		h.Endpoint.handlers = append(h.Endpoint.handlers, h)
	}
	return h, true
}

// All returns every handler in first-seen order.
func (r *HandlerRegistry) All() []*Handler {
	return slices.Clone(r.order)
}

// Len returns the number of distinct handlers.
func (r *HandlerRegistry) Len() int { return len(r.order) }
