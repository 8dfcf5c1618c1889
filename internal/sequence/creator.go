package sequence

import (
	"log/slog"
	"slices"

	"github.com/roach88/busscope/internal/message"
)

// Model is the reconstructed conversation.
type Model struct {
	// Handlers are ordered conversation-start handlers first, then by
	// HandledAt ascending.
	Handlers []*Handler

	// Routes and Arrows follow traversal order.
	Routes []*Route
	Arrows []*Arrow

	// Endpoints are the distinct identities in first-touched order.
	Endpoints []*EndpointIdentity

	Roots []*Node
	Stats Stats
}

// Stats summarizes a reconstruction run.
type Stats struct {
	Messages        int `json:"messages"`
	Roots           int `json:"roots"`
	OrphanRoots     int `json:"orphan_roots"`
	Handlers        int `json:"handlers"`
	Endpoints       int `json:"endpoints"`
	Arrows          int `json:"arrows"`
	DedupedHandlers int `json:"deduped_handlers"`
}

// builder holds the per-run registries.
type builder struct {
	endpoints *EndpointRegistry
	handlers  *HandlerRegistry
	touched   []*EndpointIdentity
	deduped   int
}

// Build reconstructs the conversation formed by msgs. The input slice is
// copied; the returned model does not alias it.
//
// Construction runs in two phases. The first registers every sending
// endpoint, then every receiving endpoint, then resolves handlers and arrows
// in traversal order without linking anything. The second links
// each arrow into its handlers and route, and stops at the first handler
// that would receive a second incoming arrow.
func Build(msgs []message.Message) (*Model, error) {
	msgs = slices.Clone(msgs)
	roots := BuildTrees(msgs)

	b := &builder{
		endpoints: NewEndpointRegistry(),
		handlers:  NewHandlerRegistry(),
	}

	walked := Walk(roots)
	for _, m := range walked {
		if s := m.SendingEndpoint; s != nil {
			b.endpoints.ResolveOrCreate(s.Name, s.Host, s.HostID, m.Version())
		}
	}
	for _, m := range walked {
		r := m.ReceivingEndpoint
		b.endpoints.ResolveOrCreate(r.Name, r.Host, r.HostID, receiverVersion(m))
	}

	arrows := make([]*Arrow, 0, len(walked))
	for _, m := range walked {
		arrows = append(arrows, b.resolve(m))
	}

	routes := make([]*Route, 0, len(arrows))
	for _, a := range arrows {
		r, err := link(a)
		if err != nil {
			slog.Debug("conversation model rejected",
				"message_id", a.MessageID(),
				"error", err,
			)
			return nil, err
		}
		routes = append(routes, r)
	}

	model := &Model{
		Handlers:  orderHandlers(b.handlers.All()),
		Routes:    routes,
		Arrows:    arrows,
		Endpoints: b.touched,
		Roots:     roots,
	}
	model.Stats = Stats{
		Messages:        len(msgs),
		Roots:           len(roots),
		OrphanRoots:     countOrphans(roots),
		Handlers:        len(model.Handlers),
		Endpoints:       len(model.Endpoints),
		Arrows:          len(arrows),
		DedupedHandlers: b.deduped,
	}

	slog.Debug("conversation model built",
		"messages", model.Stats.Messages,
		"roots", model.Stats.Roots,
		"orphan_roots", model.Stats.OrphanRoots,
		"handlers", model.Stats.Handlers,
		"endpoints", model.Stats.Endpoints,
	)
	return model, nil
}

// resolve performs the first phase for one message.
func (b *builder) resolve(m *message.Message) *Arrow {
	version := m.Version()

	var from *EndpointIdentity
	if s := m.SendingEndpoint; s != nil {
		from = b.endpoints.ResolveOrCreate(s.Name, s.Host, s.HostID, version)
		b.touch(from)
	}

	recv := m.ReceivingEndpoint
	to := b.endpoints.ResolveOrCreate(recv.Name, recv.Host, recv.HostID, receiverVersion(m))
	b.touch(to)

	var sender *Handler
	if from != nil {
		id, ok := m.RelatedTo()
		if !ok {
			id = ConversationStartID
		}
		candidate := &Handler{ID: id, Endpoint: from}
		if id == ConversationStartID {
			candidate.Name = ConversationStartID
		}
		sender = b.register(candidate)
		sender.UpdateEstimate(m.TimeSent)
	}

	receiver := b.register(&Handler{ID: m.ID, Endpoint: to})
	receiver.markProcessed(m)

	return &Arrow{
		Message: m,
		From:    sender,
		To:      receiver,
		Type:    Classify(m, from, to),
		Name:    m.Name(),
	}
}

// receiverVersion is the message version when the message stays on its
// sending endpoint, and empty otherwise.
func receiverVersion(m *message.Message) string {
	if s := m.SendingEndpoint; s != nil && s.Name == m.ReceivingEndpoint.Name {
		return m.Version()
	}
	return ""
}

func (b *builder) register(h *Handler) *Handler {
	stored, created := b.handlers.TryRegister(h)
	if !created {
		b.deduped++
	}
	return stored
}

func (b *builder) touch(e *EndpointIdentity) {
	if !slices.Contains(b.touched, e) {
		b.touched = append(b.touched, e)
	}
}

// link performs the second phase for one arrow. Nothing is mutated when
// the target handler already has an incoming arrow.
func link(a *Arrow) (*Route, error) {
	if err := a.To.SetIncoming(a); err != nil {
		return nil, err
	}
	r := newRoute(a, a.To)
	a.Route = r
	a.To.route = r
	if a.From != nil {
		a.From.outgoing = append(a.From.outgoing, a)
	}
	return r, nil
}

// orderHandlers places conversation-start handlers first, in first-seen
// order, followed by the rest sorted by HandledAt with ties in first-seen
// order.
func orderHandlers(all []*Handler) []*Handler {
	var start, rest []*Handler
	for _, h := range all {
		if h.IsConversationStart() {
			start = append(start, h)
		} else {
			rest = append(rest, h)
		}
	}
	slices.SortStableFunc(rest, func(a, b *Handler) int {
		return a.HandledAt().Compare(b.HandledAt())
	})
	return append(start, rest...)
}

func countOrphans(roots []*Node) int {
	n := 0
	for _, r := range roots {
		if r.Orphan {
			n++
		}
	}
	return n
}
