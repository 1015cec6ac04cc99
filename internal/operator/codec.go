package operator

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/roach88/quadquery/internal/rdf"
)

// OpKey is the object key carrying the operator tag in the JSON form.
const OpKey = "$op"

// Decode converts a generic JSON-shaped tree (maps, slices and scalars as
// produced by encoding/json, yaml.v3 or CUE) into find-spec values.
//
// Objects with an "$op" key become operators, {"@id": ...} objects become
// IRIs and {"@value": ...} objects become literals. Integral JSON numbers
// become int64 so they are typed as integers. Every other object is
// decoded recursively as a nested where clause.
func Decode(v any) (any, error) {
	switch val := v.(type) {
	case nil, string, bool, int, int64, rdf.Term, Operator:
		return val, nil
	case float64:
		return normalizeNumber(val), nil
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n, nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val.String(), err)
		}
		return f, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			decoded, err := Decode(item)
			if err != nil {
				return nil, err
			}
			out[i] = decoded
		}
		return out, nil
	case map[string]any:
		return decodeObject(val)
	default:
		return val, nil
	}
}

// DecodeWhere decodes a where clause object.
func DecodeWhere(v any) (map[string]any, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("where clause must be an object, got %T", v)
	}
	out := make(map[string]any, len(m))
	for key, item := range m {
		decoded, err := Decode(item)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		out[key] = decoded
	}
	return out, nil
}

func normalizeNumber(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}

func decodeObject(m map[string]any) (any, error) {
	if tag, ok := m[OpKey]; ok {
		kind, ok := tag.(string)
		if !ok {
			return nil, fmt.Errorf("%s must be a string, got %T", OpKey, tag)
		}
		return decodeOperator(Kind(kind), m)
	}
	if id, ok := m["@id"]; ok {
		s, ok := id.(string)
		if !ok {
			return nil, fmt.Errorf("@id must be a string, got %T", id)
		}
		return rdf.IRI(s), nil
	}
	if value, ok := m["@value"]; ok {
		return decodeLiteral(value, m)
	}

	out := make(map[string]any, len(m))
	for key, item := range m {
		decoded, err := Decode(item)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		out[key] = decoded
	}
	return out, nil
}

func decodeLiteral(value any, m map[string]any) (rdf.Literal, error) {
	lit := rdf.Literal{}
	switch v := value.(type) {
	case string:
		lit.Value = v
	case bool, float64, int, int64, json.Number:
		term, err := rdf.TermFromValue(normalizeAny(v))
		if err != nil {
			return rdf.Literal{}, err
		}
		lit = term.(rdf.Literal)
	default:
		return rdf.Literal{}, fmt.Errorf("@value must be a scalar, got %T", value)
	}
	if dt, ok := m["@type"].(string); ok {
		lit.Datatype = dt
	}
	if lang, ok := m["@language"].(string); ok {
		lit.Language = lang
		lit.Datatype = ""
	}
	return lit, nil
}

func normalizeAny(v any) any {
	switch n := v.(type) {
	case float64:
		return normalizeNumber(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		f, _ := n.Float64()
		return f
	default:
		return v
	}
}

func decodeOperator(kind Kind, m map[string]any) (Operator, error) {
	value := func() (any, error) { return Decode(m["value"]) }

	switch kind {
	case KindEqual, KindNot, KindGreaterThan, KindGreaterThanOrEqual,
		KindLessThan, KindLessThanOrEqual, KindInverse:
		if _, ok := m["value"]; !ok {
			return nil, &InvalidOperatorError{Kind: kind, Message: "missing value"}
		}
		v, err := value()
		if err != nil {
			return nil, err
		}
		switch kind {
		case KindEqual:
			return Equal{Value: v}, nil
		case KindNot:
			return Not{Value: v}, nil
		case KindGreaterThan:
			return GreaterThan{Value: v}, nil
		case KindGreaterThanOrEqual:
			return GreaterThanOrEqual{Value: v}, nil
		case KindLessThan:
			return LessThan{Value: v}, nil
		case KindLessThanOrEqual:
			return LessThanOrEqual{Value: v}, nil
		default:
			return Inverse{Value: v}, nil
		}

	case KindIn:
		raw, ok := m["values"].([]any)
		if !ok {
			return nil, &InvalidOperatorError{Kind: kind, Message: "values must be an array"}
		}
		decoded, err := Decode(raw)
		if err != nil {
			return nil, err
		}
		return In{Values: decoded.([]any)}, nil

	case KindExists:
		return Exists{}, nil

	case KindContains:
		s, ok := m["value"].(string)
		if !ok {
			return nil, &InvalidOperatorError{Kind: kind, Message: "value must be a string"}
		}
		return Contains{Value: s}, nil

	case KindInverseRelation:
		op := InverseRelation{}
		if name, ok := m["resolvedName"]; ok {
			s, ok := name.(string)
			if !ok {
				return nil, &InvalidOperatorError{Kind: kind, Message: "resolvedName must be a string"}
			}
			op.ResolvedName = s
		}
		if rel, ok := m["relations"]; ok {
			decoded, err := Decode(rel)
			if err != nil {
				return nil, err
			}
			op.Relations = decoded
		}
		return op, nil

	case KindInverseRelationOrder:
		pred, ok := m["predicate"].(string)
		if !ok || pred == "" {
			return nil, &InvalidOperatorError{Kind: kind, Message: "predicate must be a non-empty string"}
		}
		op := InverseRelationOrder{Predicate: pred, Direction: Asc}
		if dir, ok := m["direction"].(string); ok {
			op.Direction = SortDirection(dir)
			if !op.Direction.Valid() {
				return nil, &InvalidOperatorError{Kind: kind, Message: fmt.Sprintf("unknown direction %q", dir)}
			}
		}
		if where, ok := m["where"]; ok {
			decoded, err := DecodeWhere(where)
			if err != nil {
				return nil, err
			}
			op.Where = decoded
		}
		return op, nil

	case KindSequence:
		raw, ok := m["predicates"].([]any)
		if !ok || len(raw) == 0 {
			return nil, &InvalidOperatorError{Kind: kind, Message: "predicates must be a non-empty array"}
		}
		preds := make([]string, len(raw))
		for i, p := range raw {
			s, ok := p.(string)
			if !ok {
				return nil, &InvalidOperatorError{Kind: kind, Message: fmt.Sprintf("predicate %d is not a string", i)}
			}
			preds[i] = s
		}
		v, err := value()
		if err != nil {
			return nil, err
		}
		return Sequence{Predicates: preds, Value: v}, nil

	case KindSequencePath:
		raw, ok := m["subPaths"].([]any)
		if !ok || len(raw) == 0 {
			return nil, &InvalidOperatorError{Kind: kind, Message: "subPaths must be a non-empty array"}
		}
		subs := make([]Path, len(raw))
		for i, item := range raw {
			p, err := DecodePath(item)
			if err != nil {
				return nil, err
			}
			subs[i] = p
		}
		v, err := value()
		if err != nil {
			return nil, err
		}
		return SequencePath{SubPaths: subs, Value: v}, nil

	case KindInversePath, KindZeroOrMorePath, KindOneOrMorePath:
		sub, ok := m["subPath"]
		if !ok {
			return nil, &InvalidOperatorError{Kind: kind, Message: "missing subPath"}
		}
		p, err := DecodePath(sub)
		if err != nil {
			return nil, err
		}
		v, err := value()
		if err != nil {
			return nil, err
		}
		switch kind {
		case KindInversePath:
			return InversePath{SubPath: p, Value: v}, nil
		case KindZeroOrMorePath:
			return ZeroOrMorePath{SubPath: p, Value: v}, nil
		default:
			return OneOrMorePath{SubPath: p, Value: v}, nil
		}

	default:
		return nil, &UnsupportedOperatorError{Kind: kind}
	}
}

// DecodePath decodes a sub-path: a predicate string or a path operator
// object. Any other operator is rejected.
func DecodePath(v any) (Path, error) {
	switch val := v.(type) {
	case string:
		return Predicate(val), nil
	case Path:
		return val, nil
	case map[string]any:
		decoded, err := decodeObject(val)
		if err != nil {
			return nil, err
		}
		if p, ok := decoded.(Path); ok {
			return p, nil
		}
		if op, ok := decoded.(Operator); ok {
			return nil, &InvalidOperatorError{Kind: op.Kind(), Message: "not a path operator"}
		}
		return nil, fmt.Errorf("sub-path must be a predicate or path operator, got %T", decoded)
	default:
		return nil, fmt.Errorf("sub-path must be a predicate or path operator, got %T", v)
	}
}

// Encode is the inverse of Decode: operators become "$op" objects and
// terms become "@id"/"@value" objects.
func Encode(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case rdf.IRI:
		return map[string]any{"@id": string(val)}
	case rdf.Literal:
		out := map[string]any{"@value": val.Value}
		if val.Language != "" {
			out["@language"] = val.Language
		} else if val.Datatype != "" {
			out["@type"] = val.Datatype
		}
		return out
	case Predicate:
		return string(val)
	case Operator:
		return encodeOperator(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Encode(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Encode(item)
		}
		return out
	default:
		return val
	}
}

func encodeOperator(op Operator) map[string]any {
	out := map[string]any{OpKey: string(op.Kind())}
	setValue := func(v any) {
		if v != nil {
			out["value"] = Encode(v)
		}
	}
	switch o := op.(type) {
	case Equal:
		out["value"] = Encode(o.Value)
	case Not:
		out["value"] = Encode(o.Value)
	case In:
		out["values"] = Encode(o.Values)
	case Exists:
	case GreaterThan:
		out["value"] = Encode(o.Value)
	case GreaterThanOrEqual:
		out["value"] = Encode(o.Value)
	case LessThan:
		out["value"] = Encode(o.Value)
	case LessThanOrEqual:
		out["value"] = Encode(o.Value)
	case Contains:
		out["value"] = o.Value
	case Inverse:
		out["value"] = Encode(o.Value)
	case InverseRelation:
		if o.ResolvedName != "" {
			out["resolvedName"] = o.ResolvedName
		}
		if o.Relations != nil {
			out["relations"] = Encode(o.Relations)
		}
	case InverseRelationOrder:
		out["predicate"] = o.Predicate
		out["direction"] = string(o.Direction)
		if o.Where != nil {
			out["where"] = Encode(o.Where)
		}
	case Sequence:
		preds := make([]any, len(o.Predicates))
		for i, p := range o.Predicates {
			preds[i] = p
		}
		out["predicates"] = preds
		setValue(o.Value)
	case SequencePath:
		subs := make([]any, len(o.SubPaths))
		for i, p := range o.SubPaths {
			subs[i] = Encode(p)
		}
		out["subPaths"] = subs
		setValue(o.Value)
	case InversePath:
		out["subPath"] = Encode(o.SubPath)
		setValue(o.Value)
	case ZeroOrMorePath:
		out["subPath"] = Encode(o.SubPath)
		setValue(o.Value)
	case OneOrMorePath:
		out["subPath"] = Encode(o.SubPath)
		setValue(o.Value)
	}
	return out
}

// SortedKeys returns the keys of a where clause in lexical order.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
