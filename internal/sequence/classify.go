package sequence

import "github.com/roach88/busscope/internal/message"

// Classify types the transition of m from one endpoint to another.
// Publish intent wins over a timeout header, which wins over a same
// endpoint call.
func Classify(m *message.Message, from, to *EndpointIdentity) ArrowType {
	switch {
	case m.Intent == message.IntentPublish:
		return Event
	case m.IsSagaTimeout():
		return Timeout
	case from != nil && from == to:
		return Local
	default:
		return Command
	}
}
