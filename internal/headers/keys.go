package headers

// Logical header names. Lookups accept them with or without the
// NServiceBus. prefix and in any case.
const (
	Version              = "Version"
	EnclosedMessageTypes = "EnclosedMessageTypes"
	Retries              = "Retries"
	RelatedTo            = "RelatedTo"
	ContentType          = "ContentType"
	IsDeferredMessage    = "IsDeferedMessage" // sic, matches the wire name
	ProcessingEnded      = "ProcessingEnded"
	ProcessingStarted    = "ProcessingStarted"
	ConversationID       = "ConversationId"
	CorrelationID        = "CorrelationId"
	MessageID            = "MessageId"
	ExceptionType        = "ExceptionInfo.ExceptionType"
	ExceptionMessage     = "ExceptionInfo.Message"
	ExceptionSource      = "ExceptionInfo.Source"
	ExceptionStackTrace  = "ExceptionInfo.StackTrace"
	FailedQueue          = "FailedQ"
	TimeSent             = "TimeSent"
	TimeOfFailure        = "TimeOfFailure"
	IsSagaTimeout        = "IsSagaTimeoutMessage"
	SagaID               = "SagaId"
	OriginatingSagaID    = "OriginatingSagaId"
	SagaStatus           = "ServiceControl.SagaChangeStatus"
)

// Known lists every logical header name in declaration order.
var Known = []string{
	Version,
	EnclosedMessageTypes,
	Retries,
	RelatedTo,
	ContentType,
	IsDeferredMessage,
	ProcessingEnded,
	ProcessingStarted,
	ConversationID,
	CorrelationID,
	MessageID,
	ExceptionType,
	ExceptionMessage,
	ExceptionSource,
	ExceptionStackTrace,
	FailedQueue,
	TimeSent,
	TimeOfFailure,
	IsSagaTimeout,
	SagaID,
	OriginatingSagaID,
	SagaStatus,
}
