package querybuilder

import (
	"strconv"

	"github.com/roach88/quadquery/internal/rdf"
)

// EntityVariable is the variable bound to each matched entity.
const EntityVariable = rdf.Variable("entity")

// VariableAllocator hands out fresh query variables.
//
// Names are a prefix followed by a per-prefix counter ("o0", "o1", "r0"),
// so allocation order alone decides the names and compiling the same
// specification twice yields identical documents. Every name ends in a
// digit and therefore never collides with EntityVariable or the fixed
// result names ("count", "entityIds", "dateGroup").
//
// One allocator backs exactly one compilation. It is not safe for
// concurrent use.
type VariableAllocator struct {
	counters map[string]int
}

// NewVariableAllocator creates an allocator with all counters at zero.
func NewVariableAllocator() *VariableAllocator {
	return &VariableAllocator{counters: map[string]int{}}
}

// Next returns a fresh variable with the given prefix.
func (a *VariableAllocator) Next(prefix string) rdf.Variable {
	n := a.counters[prefix]
	a.counters[prefix] = n + 1
	return rdf.Variable(prefix + strconv.Itoa(n))
}
