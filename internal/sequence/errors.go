package sequence

import (
	"errors"
	"fmt"
)

// ModelError reports conversation data that cannot form a consistent model.
type ModelError struct {
	// Code identifies the error category.
	Code ModelErrorCode

	// Message is a human-readable description.
	Message string

	// HandlerID and Endpoint identify the handler that was being linked.
	HandlerID string
	Endpoint  string

	// MessageID is the message whose arrow could not be linked.
	MessageID string

	// Details contains additional context.
	Details map[string]string
}

// ModelErrorCode categorizes model errors.
type ModelErrorCode string

const (
	// ErrCodeDuplicateIncoming indicates a handler already has an incoming arrow.
	ErrCodeDuplicateIncoming ModelErrorCode = "DUPLICATE_INCOMING"
)

// Error implements the error interface.
func (e *ModelError) Error() string {
	if e.HandlerID != "" && e.MessageID != "" {
		return fmt.Sprintf("%s: %s (handler=%s@%s, message=%s)", e.Code, e.Message, e.HandlerID, e.Endpoint, e.MessageID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsStructuralError returns true if err is a ModelError of any code.
// Uses errors.As to handle wrapped errors.
func IsStructuralError(err error) bool {
	var me *ModelError
	return errors.As(err, &me)
}

// IsDuplicateIncomingError returns true if err reports a second incoming
// arrow on one handler.
func IsDuplicateIncomingError(err error) bool {
	var me *ModelError
	if errors.As(err, &me) {
		return me.Code == ErrCodeDuplicateIncoming
	}
	return false
}

// NewDuplicateIncomingError creates a ModelError for a handler that already
// has an incoming arrow.
func NewDuplicateIncomingError(h *Handler, existing, attempted *Arrow) *ModelError {
	err := &ModelError{
		Code:      ErrCodeDuplicateIncoming,
		Message:   "handler already has an incoming arrow",
		HandlerID: h.ID,
		MessageID: attempted.MessageID(),
		Details: map[string]string{
			"existing_message": existing.MessageID(),
		},
	}
	if h.Endpoint != nil {
		err.Endpoint = h.Endpoint.Name
	}
	return err
}
