package querybuilder

import (
	"time"

	"github.com/roach88/quadquery/internal/operator"
)

// Reserved where and order keys.
const (
	FieldID   = "id"
	FieldType = "type"
)

// FindOptions is a find specification.
//
// Where maps field names (predicate identifiers, or the reserved "id" and
// "type") to a scalar, a []any of scalars or operators, a nested where
// clause (map[string]any) or an operator.
//
// Relations maps predicates to true, a nested relations map, or an
// operator.InverseRelation.
//
// Select is nil (return every asserted property), a []string of
// predicates, or a map[string]any whose values are true, a []string or a
// nested select map.
type FindOptions struct {
	Where      map[string]any
	Order      []OrderTerm
	Relations  map[string]any
	Select     any
	SubQueries []SubQuery
	Limit      int
	Offset     int
}

// OrderTerm is one ordering key. Terms apply in slice order.
//
// When Inverse is set, Field is the predicate related entities use to
// point at the ordered entity and the term sorts on an aggregate of
// Inverse.Predicate; Direction is taken from Inverse when it is set there.
type OrderTerm struct {
	Field     string
	Direction operator.SortDirection
	Inverse   *operator.InverseRelationOrder
}

// Asc orders by field ascending.
func Asc(field string) OrderTerm {
	return OrderTerm{Field: field, Direction: operator.Asc}
}

// Desc orders by field descending.
func Desc(field string) OrderTerm {
	return OrderTerm{Field: field, Direction: operator.Desc}
}

// SubQuery narrows the candidate set to the entities a nested selection
// returns. The nested selection has its own where, order and pagination,
// so it can express "the ten most recent entities matching X".
type SubQuery struct {
	Where  map[string]any
	Order  []OrderTerm
	Limit  int
	Offset int
}

// ExpectsMany reports whether the options can return more than one entity.
func (o FindOptions) ExpectsMany() bool {
	return o.Limit != 1
}

// DateGrouping selects the bucket size of a grouped aggregation.
type DateGrouping string

const (
	GroupByMonth DateGrouping = "month"
	GroupByDay   DateGrouping = "day"
)

// DateRange bounds the date predicate of a grouped aggregation. A zero
// bound is open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// GroupByOptions describes a grouped aggregation.
//
// GroupBy lists property paths; multi-hop paths separate predicates with
// "~". Entities lacking a path are left out of the result.
type GroupByOptions struct {
	Where         map[string]any
	GroupBy       []string
	DateRange     *DateRange
	DateGrouping  DateGrouping
	DatePredicate string
	Limit         int
	Offset        int
}
