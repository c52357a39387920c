// Package harness runs conformance scenarios against the reconstruction
// engine.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: nested_same_name
//	description: "Inner begin closes first"
//	events:
//	  - {kind: begin, at: 1, name: a}
//	  - {kind: begin, at: 2, name: a}
//	  - {kind: end,   at: 4, name: a}
//	  - {kind: end,   at: 5, name: a}
//	expect:
//	  - {type: Marker, name: a, times: [1, 5]}
//	  - {type: Marker, name: a, times: [2, 4]}
//	assertions:
//	  - type: record_count
//	    kind: Marker
//	    count: 2
//	  - type: final_state
//	    table: records
//	    where: {ordinal: 0}
//	    expect: {t0: 1, t1: 5}
//
// expect is the complete finalized output, compared in order. Assertions
// check properties of the output without listing all of it.
//
// # Assertion Types
//
//   - record_contains: a record with the given type, name and times exists
//   - record_order: the listed records appear in this relative order
//   - record_count: exactly N records match an optional type and name
//   - final_state: one row of the persisted session matches expected columns
//
// # Deterministic Testing
//
// Every scenario runs on a fresh engine and a fresh in-memory store with
// a fixed session ID. Run also replays the events twice and fails the
// scenario if the record-set hashes differ, and it checks that the
// persisted record set hashes the same as the in-memory one.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/nested.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
