package message

// Status is the processing outcome recorded for a message.
type Status string

const (
	StatusSuccessful           Status = "Successful"
	StatusFailed               Status = "Failed"
	StatusRepeatedFailure      Status = "RepeatedFailure"
	StatusResolvedSuccessfully Status = "ResolvedSuccessfully"
	StatusArchivedFailure      Status = "ArchivedFailure"
	StatusRetryIssued          Status = "RetryIssued"
)

// ParseStatus maps the service's status text onto a Status.
// Unrecognized or empty text is treated as successful.
func ParseStatus(s string) Status {
	switch lower(s) {
	case "failed":
		return StatusFailed
	case "resolved", "resolvedsuccessfully":
		return StatusResolvedSuccessfully
	case "repeatedfailure":
		return StatusRepeatedFailure
	case "archivedfailure":
		return StatusArchivedFailure
	case "retryissued":
		return StatusRetryIssued
	}
	return StatusSuccessful
}

// Description returns the operator-facing text for the status.
func (s Status) Description() string {
	switch s {
	case StatusFailed:
		return "Failed"
	case StatusRepeatedFailure:
		return "Repeated failure"
	case StatusSuccessful:
		return "Successful"
	case StatusResolvedSuccessfully:
		return "Successful after retries"
	case StatusArchivedFailure:
		return "Failed message deleted"
	case StatusRetryIssued:
		return "Retry requested"
	}
	return "Unknown status"
}

// StatusInfo summarizes a message's status for display.
type StatusInfo struct {
	Status      Status `json:"status"`
	Description string `json:"description"`
	HasWarning  bool   `json:"has_warning"`
	Icon        string `json:"icon"`
}

// NewStatusInfo derives display status for m. Negative timings (clock skew
// between hosts) raise a warning.
func NewStatusInfo(m Message) StatusInfo {
	status := m.Status
	if status == "" {
		status = StatusSuccessful
	}
	warn := m.ProcessingTime < 0 || m.CriticalTime < 0 || m.DeliveryTime < 0

	icon := "MessageStatus_" + string(status)
	if warn || status == StatusResolvedSuccessfully {
		icon += "_Warn"
	}

	return StatusInfo{
		Status:      status,
		Description: status.Description(),
		HasWarning:  warn,
		Icon:        icon,
	}
}
