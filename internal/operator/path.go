package operator

// Path is a sealed interface over property path expressions.
//
// Predicate is the leaf. SequencePath, InversePath, ZeroOrMorePath and
// OneOrMorePath compose paths and are also operators, so they can be used
// directly as where values. Comparison operators cannot be sub-paths.
type Path interface {
	pathNode() // Marker method - seals interface to this package
}

// Predicate is a single predicate identifier used as a path step.
type Predicate string

// SequencePath concatenates SubPaths left to right.
type SequencePath struct {
	SubPaths []Path
	Value    any
}

// InversePath traverses SubPath from object to subject.
type InversePath struct {
	SubPath Path
	Value   any
}

// ZeroOrMorePath follows SubPath any number of times, including zero.
type ZeroOrMorePath struct {
	SubPath Path
	Value   any
}

// OneOrMorePath follows SubPath at least once.
type OneOrMorePath struct {
	SubPath Path
	Value   any
}

func (Predicate) pathNode()      {}
func (SequencePath) pathNode()   {}
func (InversePath) pathNode()    {}
func (ZeroOrMorePath) pathNode() {}
func (OneOrMorePath) pathNode()  {}

func (SequencePath) Kind() Kind   { return KindSequencePath }
func (InversePath) Kind() Kind    { return KindInversePath }
func (ZeroOrMorePath) Kind() Kind { return KindZeroOrMorePath }
func (OneOrMorePath) Kind() Kind  { return KindOneOrMorePath }

func (SequencePath) operatorNode()   {}
func (InversePath) operatorNode()    {}
func (ZeroOrMorePath) operatorNode() {}
func (OneOrMorePath) operatorNode()  {}

// TerminalValue returns the match value carried by a path operator, or
// nil when the path only has to exist.
func TerminalValue(p Path) any {
	switch path := p.(type) {
	case SequencePath:
		return path.Value
	case InversePath:
		return path.Value
	case ZeroOrMorePath:
		return path.Value
	case OneOrMorePath:
		return path.Value
	default:
		return nil
	}
}
