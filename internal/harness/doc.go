// Package harness provides conformance testing for find-specs.
//
// The harness loads datasets into a fresh in-memory store, runs a
// sequence of adapter operations described by find-spec documents and
// checks their outcomes, the SPARQL each operation sent and the final
// store contents.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	datasets:
//	  - ../datasets/company.nq
//	steps:
//	  - name: people by name
//	    op: findAll
//	    spec:
//	      where: { type: "https://schema.org/Person" }
//	      order: [{ "https://schema.org/name": desc }]
//	    expect:
//	      ids: [urn:ex:jonas, urn:ex:amy]
//	assertions:
//	  - type: query_order
//	    step: people by name
//	    forms: [select, construct]
//	  - type: final_state
//	    query: "SELECT (COUNT(*) AS ?n) WHERE { GRAPH ?g { ?s ?p ?o } }"
//	    expect: { n: "12" }
//
// Steps run find, findAll, count, exists and groupBy with an inline spec
// or a specFile, and save, update, delete and destroy to change the store
// between finds.
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - query_count: Verifies a step sent exactly N documents
//   - query_contains: Verifies a query of a step contains a SPARQL fragment
//   - query_order: Verifies the query forms of a step, in order
//   - final_state: Runs a SELECT and verifies its single row
//
// # Deterministic Testing
//
// Saved entities get identifiers from the scenario's ids list and
// timestamps from a fixed clock, so outcomes are identical across runs
// and can be compared against golden snapshots.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/ordering.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
