package operator

// Kind is the tag identifying an operator in the closed set.
type Kind string

const (
	KindEqual                Kind = "equal"
	KindNot                  Kind = "not"
	KindIn                   Kind = "in"
	KindExists               Kind = "exists"
	KindGreaterThan          Kind = "gt"
	KindGreaterThanOrEqual   Kind = "gte"
	KindLessThan             Kind = "lt"
	KindLessThanOrEqual      Kind = "lte"
	KindContains             Kind = "contains"
	KindInverse              Kind = "inverse"
	KindInverseRelation      Kind = "inverseRelation"
	KindInverseRelationOrder Kind = "inverseRelationOrder"
	KindSequence             Kind = "sequence"
	KindSequencePath         Kind = "sequencePath"
	KindInversePath          Kind = "inversePath"
	KindZeroOrMorePath       Kind = "zeroOrMorePath"
	KindOneOrMorePath        Kind = "oneOrMorePath"
)

// Kinds lists every operator tag.
var Kinds = []Kind{
	KindEqual, KindNot, KindIn, KindExists,
	KindGreaterThan, KindGreaterThanOrEqual, KindLessThan, KindLessThanOrEqual,
	KindContains, KindInverse, KindInverseRelation, KindInverseRelationOrder,
	KindSequence, KindSequencePath, KindInversePath, KindZeroOrMorePath, KindOneOrMorePath,
}

// Valid reports whether k belongs to the closed set.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// SortDirection is the direction of an order term.
type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// Valid reports whether d is asc or desc.
func (d SortDirection) Valid() bool {
	return d == Asc || d == Desc
}

// Operator is a sealed interface over the find operators.
type Operator interface {
	Kind() Kind
	operatorNode() // Marker method - seals interface to this package
}

// Equal matches values equal to Value.
type Equal struct {
	Value any
}

// Not negates Value, which is either another operator or a plain value
// (shorthand for Not{Equal{v}}).
type Not struct {
	Value any
}

// In matches any of Values.
type In struct {
	Values []any
}

// Exists matches when the field has at least one value.
type Exists struct{}

// GreaterThan matches values strictly greater than Value.
type GreaterThan struct {
	Value any
}

// GreaterThanOrEqual matches values greater than or equal to Value.
type GreaterThanOrEqual struct {
	Value any
}

// LessThan matches values strictly less than Value.
type LessThan struct {
	Value any
}

// LessThanOrEqual matches values less than or equal to Value.
type LessThanOrEqual struct {
	Value any
}

// Contains matches string values containing Value, ignoring case.
type Contains struct {
	Value string
}

// Inverse follows the field from object to subject. Value is matched
// against the resource on the other end and may be a scalar, an operator
// or a nested where clause.
type Inverse struct {
	Value any
}

// InverseRelation expands entities that point at the current entity.
// It is only valid inside relations.
//
// ResolvedName is the predicate the related entities use to point back;
// when empty the relation key itself is the predicate. Relations holds
// nested relations of the related entities (bool or map).
type InverseRelation struct {
	ResolvedName string
	Relations    any
}

// InverseRelationOrder orders entities by a property of the entities that
// point at them. It is only valid inside order.
//
// The order key is the predicate the related entities use to point back,
// Predicate is the property sorted on, and Where restricts which related
// entities take part. Ascending order uses the minimum related value and
// descending order the maximum.
type InverseRelationOrder struct {
	Predicate string
	Direction SortDirection
	Where     map[string]any
}

// Sequence follows the field and then each of Predicates in turn before
// matching Value.
type Sequence struct {
	Predicates []string
	Value      any
}

func (Equal) Kind() Kind                { return KindEqual }
func (Not) Kind() Kind                  { return KindNot }
func (In) Kind() Kind                   { return KindIn }
func (Exists) Kind() Kind               { return KindExists }
func (GreaterThan) Kind() Kind          { return KindGreaterThan }
func (GreaterThanOrEqual) Kind() Kind   { return KindGreaterThanOrEqual }
func (LessThan) Kind() Kind             { return KindLessThan }
func (LessThanOrEqual) Kind() Kind      { return KindLessThanOrEqual }
func (Contains) Kind() Kind             { return KindContains }
func (Inverse) Kind() Kind              { return KindInverse }
func (InverseRelation) Kind() Kind      { return KindInverseRelation }
func (InverseRelationOrder) Kind() Kind { return KindInverseRelationOrder }
func (Sequence) Kind() Kind             { return KindSequence }

func (Equal) operatorNode()                {}
func (Not) operatorNode()                  {}
func (In) operatorNode()                   {}
func (Exists) operatorNode()               {}
func (GreaterThan) operatorNode()          {}
func (GreaterThanOrEqual) operatorNode()   {}
func (LessThan) operatorNode()             {}
func (LessThanOrEqual) operatorNode()      {}
func (Contains) operatorNode()             {}
func (Inverse) operatorNode()              {}
func (InverseRelation) operatorNode()      {}
func (InverseRelationOrder) operatorNode() {}
func (Sequence) operatorNode()             {}

// IsOperator reports whether v is an operator rather than plain data.
func IsOperator(v any) bool {
	_, ok := v.(Operator)
	return ok
}

// IsComparison reports whether op only contributes a filter on a value
// and never a pattern of its own.
func IsComparison(op Operator) bool {
	switch op.(type) {
	case Equal, GreaterThan, GreaterThanOrEqual, LessThan, LessThanOrEqual, Contains, In:
		return true
	default:
		return false
	}
}
