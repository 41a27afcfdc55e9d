// Package harness runs derivation scenarios: a repository over one schema
// entity, seeded documents, and a flow of method invocations whose derived
// queries and results are recorded and checked.
//
// # Scenario Format
//
//	name: person_lookup
//	description: "Finder, count and page derivations over Person"
//	schema: ../schemas            # CUE entity declarations
//	entity: Person
//	store: sqlite                 # memory (default) or sqlite
//	id_prefix: p
//	methods:
//	  - name: findByAgeGreaterThan
//	    params: [{name: age}]
//	    returns: List[Person]
//	setup:
//	  - {name: Ada, age: 36}
//	flow:
//	  - invoke: findByAgeGreaterThan
//	    args: [30]
//	    expect:
//	      ids: [p-0001]
//	assertions:
//	  - type: final_count
//	    where: {name: Ada}
//	    count: 1
//
// # Assertion Types
//
//   - final_state: exactly one document matches where and holds the expect fields
//   - final_count: the number of documents matching where
//   - compiles: the number of plan compilations during the run
//
// # Deterministic Runs
//
// Every run gets its own store, plan cache and sequential id generator, so
// the canonical snapshot of a scenario is stable and can be compared with a
// golden file (see RunWithGolden).
package harness
