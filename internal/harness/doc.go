// Package harness runs scripted scenarios against a stamping engine.
//
// A scenario names a world (an inline config, a config file, or the default
// world), a list of mutation steps and assertions on the final layers.
// Scenarios double as regression fixtures: the rendered layers of a run can
// be compared against a golden snapshot.
//
// # Scenario Format
//
//	name: factory_and_park
//	description: "A park cancels part of a factory's pollution"
//	config: ../worlds/city.yaml
//	steps:
//	  - place: { kind: factory, at: [16, 16] }
//	    as: f1
//	  - place: { kind: factory, at: [16, 16] }
//	    expect_error: OCCUPIED
//	  - remove: { ref: f1 }
//	  - set: { layer: pollution, at: [0, 0], value: 7 }
//	assertions:
//	  - type: cell_equals
//	    layer: pollution
//	    at: [0, 0]
//	    value: 7
//	  - type: complement
//	    source: pollution
//	    target: land_value
//	    total: 255
//
// # Assertion Types
//
//   - cell_equals: one cell, addressed by at or index, has value
//   - layer_sum: the sum of a layer equals value
//   - layer_zero: every cell of a layer is zero
//   - complement: source[i] + target[i] equals total everywhere
//   - entity_count: the number of placed entities equals count
//   - dirty_contains: the final step's dirty set contains every listed layer
//
// # Deterministic Testing
//
// Every run gets a fresh engine wired to testutil.DeterministicClock and a
// testutil.TokenSequence seeded with the scenario name, so traces and
// snapshots are identical across runs.
package harness
