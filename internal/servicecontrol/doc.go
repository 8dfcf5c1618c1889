// Package servicecontrol is a REST client for the message-bus monitoring
// service.
//
// The client fetches endpoints, audited messages, conversations, message
// bodies and saga state, and issues retries for failed messages. Wire
// records use the service's snake_case JSON and are converted into
// message.Message values for the reconstruction core.
//
// # Retries
//
// Every request runs under an exponential backoff (cenkalti/backoff).
// Network errors, 5xx and 429 responses are retried up to
// RetryConfig.MaxAttempts; other 4xx responses fail immediately.
//
// # Error classification
//
// Classify maps a failure onto an ErrorKind such as CONNECTION_REFUSED or
// HTTP_ERROR_503 so that callers can report connectivity problems
// uniformly. Monitor uses it to report periodic health checks.
package servicecontrol
