// Package sequence reconstructs the causal flow of a single conversation.
//
// Given a flat, unordered snapshot of audited messages, Build links each
// message to the one that caused it (the RelatedTo header), walks the
// resulting trees depth first with siblings ordered by processing time, and
// produces the model a sequence diagram is drawn from:
//
//   - Endpoints: one EndpointIdentity per logical endpoint name, with the
//     physical hosts and versions observed under it.
//   - Handlers: one node per (step id, endpoint). A step seen first as the
//     sender of a message and later as the processing of another message
//     collapses into a single Handler.
//   - Arrows: one per message, typed Event, Command, Local or Timeout.
//   - Routes: the pairing of each arrow with the handler it feeds.
//
// Every call to Build owns its registries. Nothing is cached between runs,
// so independent conversations may be reconstructed concurrently.
//
// Recoverable data problems never fail a run: a message whose parent is
// missing, names itself, or sits in a RelatedTo cycle becomes an extra root;
// absent timestamps sort as time zero; malformed boolean headers read as
// false. The one fatal condition is a handler receiving a second incoming
// arrow, reported as a *ModelError with ErrCodeDuplicateIncoming.
package sequence
