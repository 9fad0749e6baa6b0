// Package harness provides conformance testing for dataflow models.
//
// A scenario names a model, schedules it, and checks the result against
// declared expectations. The same scenarios back the "sdfsched test"
// command and the golden tests of this package.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: join
//	description: "Two inputs merge into one output"
//	model: ../models/join.yaml   # relative to the scenario file
//	vars: { w_rate: "2" }        # CUE and HCL models only
//	allow_disconnected: false
//	expect:
//	  firing_vector: { U: 1, V: 2, W: 1 }
//	  external_rates: { in1: 1, in2: 2 }
//	  schedule: ["U x1", "W x1", "V x2"]
//	  cross_iteration_edges: 1
//	  firing_functions:
//	    - ports: { in2: 2, out2: 1 }
//	      precedes: [1]
//
// A scenario that expects rejection sets error fields instead:
//
//	expect:
//	  error_kind: structural
//	  error_code: E202
//	  error_contains: "driven by"
//
// # Determinism
//
// Each model is scheduled twice and the results must be identical. Golden
// snapshots use the text report, which carries no hashes or paths.
package harness
