package sequence

import (
	"fmt"

	"github.com/roach88/busscope/internal/message"
)

// ArrowType classifies a message transition.
type ArrowType int

const (
	Command ArrowType = iota
	Event
	Local
	Timeout
)

var arrowTypeNames = [...]string{
	Command: "Command",
	Event:   "Event",
	Local:   "Local",
	Timeout: "Timeout",
}

func (t ArrowType) String() string {
	if t < 0 || int(t) >= len(arrowTypeNames) {
		return fmt.Sprintf("ArrowType(%d)", int(t))
	}
	return arrowTypeNames[t]
}

// MarshalText encodes the type by name.
func (t ArrowType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a type name.
func (t *ArrowType) UnmarshalText(b []byte) error {
	v, err := ParseArrowType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ParseArrowType returns the ArrowType named s.
func ParseArrowType(s string) (ArrowType, error) {
	for i, name := range arrowTypeNames {
		if name == s {
			return ArrowType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown arrow type %q", s)
}

// Arrow is one message transition between two handlers. From is nil for a
// message with no recorded sender.
type Arrow struct {
	Message *message.Message
	From    *Handler
	To      *Handler
	Type    ArrowType
	Name    string
	Route   *Route
}

// MessageID returns the id of the carried message.
func (a *Arrow) MessageID() string {
	if a == nil || a.Message == nil {
		return ""
	}
	return a.Message.ID
}

// Route pairs an arrow with the handler it feeds.
type Route struct {
	Arrow   *Arrow
	Handler *Handler
	Name    string
}

func newRoute(a *Arrow, h *Handler) *Route {
	return &Route{
		Arrow:   a,
		Handler: h,
		Name:    fmt.Sprintf("%s(%s)", h.Name, a.MessageID()),
	}
}
