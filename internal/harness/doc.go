// Package harness runs conversation scenarios against the reconstruction
// model.
//
// A scenario describes the audited messages of one conversation in compact
// form together with the model the reconstruction is expected to produce.
// Run stores the messages as a snapshot in an in-memory database, loads
// them back, builds the model and evaluates the expectations.
//
// # Scenario Format
//
//	name: order_saga
//	description: "Sales publishes, Billing replies locally"
//	conversation_id: conv-1
//	messages:
//	  - id: M1
//	    to: Sales@host1
//	    processed: 1s
//	    processing_time: 10ms
//	  - id: M2
//	    from: Sales@host1
//	    to: Billing@host2
//	    related_to: M1
//	    intent: publish
//	    sent: 1500ms
//	    processed: 2s
//	expect:
//	  handlers: [M1@Sales, M2@Billing]
//	  arrows: {M2: Event}
//	  endpoints: [Sales, Billing]
//	  routes: ["M1@Sales -> M2@Billing"]
//	  orphans: 0
//
// Times are offsets from a fixed epoch; an omitted or zero offset leaves
// the time unset. A scenario whose data is inconsistent declares the
// expected failure code instead:
//
//	expect:
//	  error: DUPLICATE_INCOMING
//
// # Golden Files
//
// RunWithGolden serializes the resulting trace as canonical JSON and
// compares it with testdata/golden/<name>.golden. Regenerate with
//
//	go test ./internal/harness -update
package harness
