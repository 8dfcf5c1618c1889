package sequence

import "time"

// ModelView is the serializable form of a Model. Handlers and arrows are
// referenced by key ("id@endpoint") and message id.
type ModelView struct {
	Endpoints []EndpointView `json:"endpoints"`
	Handlers  []HandlerView  `json:"handlers"`
	Routes    []RouteView    `json:"routes"`
	Stats     Stats          `json:"stats"`
}

// EndpointView describes one logical endpoint.
type EndpointView struct {
	Name     string   `json:"name"`
	Hosts    string   `json:"hosts,omitempty"`
	HostIDs  string   `json:"host_ids,omitempty"`
	Versions string   `json:"versions,omitempty"`
	Handlers []string `json:"handlers"`
}

// HandlerView describes one handler.
type HandlerView struct {
	Key               string    `json:"key"`
	ID                string    `json:"id"`
	Endpoint          string    `json:"endpoint"`
	Name              string    `json:"name,omitempty"`
	HandledAt         time.Time `json:"handled_at,omitzero"`
	ProcessingTimeMS  float64   `json:"processing_time_ms,omitempty"`
	ConversationStart bool      `json:"conversation_start,omitempty"`
	Incoming          string    `json:"incoming,omitempty"`

	// Outgoing lists the keys of the handlers this one sent to.
	Outgoing []string `json:"outgoing"`
}

// RouteView describes one arrow and the handler it feeds.
type RouteView struct {
	Name      string    `json:"name"`
	MessageID string    `json:"message_id"`
	Message   string    `json:"message"`
	Type      ArrowType `json:"type"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to"`
}

// Key returns "id@endpoint".
func (h *Handler) Key() string {
	if h.Endpoint == nil {
		return h.ID
	}
	return h.ID + "@" + h.Endpoint.Name
}

// View projects m for rendering.
func (m *Model) View() ModelView {
	v := ModelView{
		Endpoints: make([]EndpointView, 0, len(m.Endpoints)),
		Handlers:  make([]HandlerView, 0, len(m.Handlers)),
		Routes:    make([]RouteView, 0, len(m.Routes)),
		Stats:     m.Stats,
	}

	for _, e := range m.Endpoints {
		ev := EndpointView{
			Name:     e.Name,
			Hosts:    e.HostNames(),
			HostIDs:  e.HostIDs(),
			Versions: e.Versions(),
			Handlers: []string{},
		}
		for _, h := range e.Handlers() {
			ev.Handlers = append(ev.Handlers, h.Key())
		}
		v.Endpoints = append(v.Endpoints, ev)
	}

	for _, h := range m.Handlers {
		hv := HandlerView{
			Key:               h.Key(),
			ID:                h.ID,
			Name:              h.Name,
			HandledAt:         h.HandledAt(),
			ProcessingTimeMS:  float64(h.ProcessingTime) / float64(time.Millisecond),
			ConversationStart: h.IsConversationStart(),
			Outgoing:          []string{},
		}
		if h.Endpoint != nil {
			hv.Endpoint = h.Endpoint.Name
		}
		if in := h.Incoming(); in != nil {
			hv.Incoming = in.MessageID()
		}
		for _, a := range h.Outgoing() {
			hv.Outgoing = append(hv.Outgoing, a.To.Key())
		}
		v.Handlers = append(v.Handlers, hv)
	}

	for _, r := range m.Routes {
		rv := RouteView{
			Name:      r.Name,
			MessageID: r.Arrow.MessageID(),
			Message:   r.Arrow.Name,
			Type:      r.Arrow.Type,
			To:        r.Handler.Key(),
		}
		if r.Arrow.From != nil {
			rv.From = r.Arrow.From.Key()
		}
		v.Routes = append(v.Routes, rv)
	}
	return v
}
