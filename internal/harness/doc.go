// Package harness runs ledger scenarios as executable contract tests.
//
// A scenario is a YAML file that drives a fresh engine through setup steps
// and a flow of requests, checks each completion against an expect clause,
// and finishes with assertions over the trace and the final ledger state.
//
// # Scenario Format
//
//	name: booking_lifecycle
//	description: "A booking moves from requested to rated"
//	config: ledger.cue          # optional, relative to the scenario file
//	caller: casey               # default caller for steps
//	flow_token: booking-flow    # optional fixed flow token
//	setup:
//	  - action: Provider.register
//	    caller: pat
//	    height: 1
//	    args: { name: "Pat", service_area: north, hourly_rate: 40 }
//	flow:
//	  - invoke: Booking.book
//	    height: 2
//	    args: { provider_id: 1, garden_size: 300, ... }
//	    expect:
//	      case: Success
//	      result: { booking_id: 1 }
//	assertions:
//	  - type: trace_count
//	    action: Rating.rate
//	    count: 1
//	  - type: final_state
//	    table: bookings
//	    where: { id: 1 }
//	    expect: { status: completed }
//
// Heights are sticky: a step without a height reuses the previous one,
// starting from 1. An expect clause may name a runtime error code
// (CYCLE_DETECTED, QUOTA_EXCEEDED) instead of, or in addition to, the
// output case of the submitted request.
//
// # Assertion Types
//
//   - trace_contains: an invocation of action with matching args (subset)
//     and, if given, output case
//   - trace_order: the actions' first invocations appear in order
//   - trace_count: action is invoked exactly count times
//   - final_state: exactly one row of a state table matches where, and it
//     carries the expected fields
//
// State tables are those of the ledger snapshot: providers, bookings,
// gardens, measurements, rate_profiles and notifications.
//
// # Determinism
//
// Every run uses an in-memory SQLite log, a fixed flow token and the
// engine's logical clock, so the same scenario always produces the same
// trace. Traces are compared against golden files in canonical JSON.
package harness
