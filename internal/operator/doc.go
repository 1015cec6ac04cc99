// Package operator defines the closed algebra of find operators.
//
// Operators appear as values inside a find specification's where clause
// (and, for the two relation operators, inside relations and order). The
// set is closed: Operator and Path are sealed interfaces implemented only
// by the types in this package, so a compiler can switch over every case
// and treat anything else as an unsupported operator.
//
// Path operators implement both interfaces. They nest to any depth:
//
//	SequencePath{SubPaths: []Path{
//	    Predicate("https://schema.org/parent"),
//	    OneOrMorePath{SubPath: Predicate("https://schema.org/parent")},
//	}}
//
// Operators are plain immutable values built with composite literals.
package operator
