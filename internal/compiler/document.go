package compiler

import (
	"encoding/json"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/quadquery/internal/operator"
	"github.com/roach88/quadquery/internal/querybuilder"
)

// Top-level document keys.
const (
	keyPrefixes      = "prefixes"
	keyWhere         = "where"
	keyOrder         = "order"
	keyRelations     = "relations"
	keySelect        = "select"
	keySubQueries    = "subQueries"
	keyLimit         = "limit"
	keyOffset        = "offset"
	keyGroupBy       = "groupBy"
	keyDateRange     = "dateRange"
	keyDateGrouping  = "dateGrouping"
	keyDatePredicate = "datePredicate"
)

var (
	findKeys    = []string{keyWhere, keyOrder, keyRelations, keySelect, keySubQueries, keyLimit, keyOffset}
	groupByKeys = []string{keyWhere, keyGroupBy, keyDateRange, keyDateGrouping, keyDatePredicate, keyLimit, keyOffset}
)

func (s *source) compileDocument(top map[string]any) (*Document, error) {
	prefixes, err := s.prefixes(top[keyPrefixes])
	if err != nil {
		return nil, err
	}
	exp := expander{prefixes: prefixes}

	doc := &Document{Kind: KindFind, Prefixes: prefixes}
	allowed := findKeys
	if _, ok := top[keyGroupBy]; ok {
		doc.Kind, allowed = KindGroupBy, groupByKeys
	} else if _, ok := top[keyDateGrouping]; ok {
		doc.Kind, allowed = KindGroupBy, groupByKeys
	}

	for _, key := range operator.SortedKeys(top) {
		if key == keyPrefixes || slices.Contains(allowed, key) {
			continue
		}
		if doc.Kind == KindGroupBy && slices.Contains(findKeys, key) {
			return nil, s.errorf([]string{key}, "not allowed in a groupBy document")
		}
		return nil, s.errorf([]string{key}, "unknown key")
	}

	where, err := s.where([]string{keyWhere}, top[keyWhere], exp)
	if err != nil {
		return nil, err
	}
	limit, err := s.count([]string{keyLimit}, top[keyLimit])
	if err != nil {
		return nil, err
	}
	offset, err := s.count([]string{keyOffset}, top[keyOffset])
	if err != nil {
		return nil, err
	}

	if doc.Kind == KindGroupBy {
		doc.GroupBy = querybuilder.GroupByOptions{Where: where, Limit: limit, Offset: offset}
		if err := s.groupBy(&doc.GroupBy, top, exp); err != nil {
			return nil, err
		}
		return doc, nil
	}

	doc.Find = querybuilder.FindOptions{Where: where, Limit: limit, Offset: offset}
	if doc.Find.Order, err = s.order([]string{keyOrder}, top[keyOrder], exp); err != nil {
		return nil, err
	}
	if raw, ok := top[keyRelations]; ok {
		relations, err := operator.DecodeWhere(exp.tree(raw))
		if err != nil {
			return nil, s.wrap([]string{keyRelations}, err)
		}
		doc.Find.Relations = relations
	}
	if raw, ok := top[keySelect]; ok && raw != nil {
		sel, err := operator.Decode(exp.tree(raw))
		if err != nil {
			return nil, s.wrap([]string{keySelect}, err)
		}
		doc.Find.Select = sel
	}
	if doc.Find.SubQueries, err = s.subQueries(top[keySubQueries], exp); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *source) prefixes(raw any) (map[string]string, error) {
	if raw == nil {
		return nil, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, s.errorf([]string{keyPrefixes}, "must be an object of prefix to namespace")
	}
	out := make(map[string]string, len(m))
	for _, name := range operator.SortedKeys(m) {
		ns, ok := m[name].(string)
		if !ok || ns == "" {
			return nil, s.errorf([]string{keyPrefixes, name}, "namespace must be a non-empty string")
		}
		out[name] = ns
	}
	return out, nil
}

func (s *source) where(path []string, raw any, exp expander) (map[string]any, error) {
	if raw == nil {
		return nil, nil
	}
	if _, ok := raw.(map[string]any); !ok {
		return nil, s.errorf(path, "must be an object, got %T", raw)
	}
	where, err := operator.DecodeWhere(exp.tree(raw))
	if err != nil {
		return nil, s.wrap(path, err)
	}
	return where, nil
}

// order decodes a list of single-field objects. The field value is a
// direction string or an inverseRelationOrder operator. A bare string
// orders ascending.
func (s *source) order(path []string, raw any, exp expander) ([]querybuilder.OrderTerm, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, s.errorf(path, "must be a list of {field: direction} objects")
	}

	terms := make([]querybuilder.OrderTerm, 0, len(items))
	for i, item := range items {
		itemPath := append(append([]string(nil), path...), strconv.Itoa(i))
		switch v := item.(type) {
		case string:
			terms = append(terms, querybuilder.Asc(exp.key(v)))

		case map[string]any:
			if len(v) != 1 {
				return nil, s.errorf(itemPath, "order entries must name exactly one field, got %d", len(v))
			}
			field := operator.SortedKeys(v)[0]
			fieldPath := append(itemPath, field)
			term := querybuilder.OrderTerm{Field: exp.key(field)}

			switch dir := v[field].(type) {
			case string:
				term.Direction = operator.SortDirection(strings.ToLower(dir))
				if !term.Direction.Valid() {
					return nil, s.errorf(fieldPath, "unknown direction %q", dir)
				}
			case map[string]any:
				decoded, err := operator.Decode(exp.tree(dir))
				if err != nil {
					return nil, s.wrap(fieldPath, err)
				}
				inv, ok := decoded.(operator.InverseRelationOrder)
				if !ok {
					return nil, s.errorf(fieldPath, "order value must be a direction or an %s operator", operator.KindInverseRelationOrder)
				}
				term.Direction = inv.Direction
				term.Inverse = &inv
			default:
				return nil, s.errorf(fieldPath, "order value must be a direction or an %s operator, got %T", operator.KindInverseRelationOrder, dir)
			}
			terms = append(terms, term)

		default:
			return nil, s.errorf(itemPath, "order entries must be strings or objects, got %T", item)
		}
	}
	return terms, nil
}

func (s *source) subQueries(raw any, exp expander) ([]querybuilder.SubQuery, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, s.errorf([]string{keySubQueries}, "must be a list of objects")
	}

	out := make([]querybuilder.SubQuery, 0, len(items))
	for i, item := range items {
		path := []string{keySubQueries, strconv.Itoa(i)}
		m, ok := item.(map[string]any)
		if !ok {
			return nil, s.errorf(path, "must be an object, got %T", item)
		}
		for _, key := range operator.SortedKeys(m) {
			switch key {
			case keyWhere, keyOrder, keyLimit, keyOffset:
			default:
				return nil, s.errorf(append(path, key), "unknown key")
			}
		}

		var (
			sq  querybuilder.SubQuery
			err error
		)
		if sq.Where, err = s.where(append(path, keyWhere), m[keyWhere], exp); err != nil {
			return nil, err
		}
		if sq.Order, err = s.order(append(path, keyOrder), m[keyOrder], exp); err != nil {
			return nil, err
		}
		if sq.Limit, err = s.count(append(path, keyLimit), m[keyLimit]); err != nil {
			return nil, err
		}
		if sq.Offset, err = s.count(append(path, keyOffset), m[keyOffset]); err != nil {
			return nil, err
		}
		out = append(out, sq)
	}
	return out, nil
}

func (s *source) groupBy(opts *querybuilder.GroupByOptions, top map[string]any, exp expander) error {
	switch v := top[keyGroupBy].(type) {
	case nil:
	case string:
		opts.GroupBy = []string{exp.groupPath(v)}
	case []any:
		for i, item := range v {
			p, ok := item.(string)
			if !ok || p == "" {
				return s.errorf([]string{keyGroupBy, strconv.Itoa(i)}, "group paths must be non-empty strings")
			}
			opts.GroupBy = append(opts.GroupBy, exp.groupPath(p))
		}
	default:
		return s.errorf([]string{keyGroupBy}, "must be a string or a list of strings, got %T", v)
	}

	if raw, ok := top[keyDateGrouping]; ok {
		g, _ := raw.(string)
		opts.DateGrouping = querybuilder.DateGrouping(g)
		if opts.DateGrouping != querybuilder.GroupByMonth && opts.DateGrouping != querybuilder.GroupByDay {
			return s.errorf([]string{keyDateGrouping}, "must be %q or %q", querybuilder.GroupByMonth, querybuilder.GroupByDay)
		}
	}

	if raw, ok := top[keyDatePredicate]; ok {
		p, ok := raw.(string)
		if !ok || p == "" {
			return s.errorf([]string{keyDatePredicate}, "must be a non-empty string")
		}
		opts.DatePredicate = exp.key(p)
	}

	if raw, ok := top[keyDateRange]; ok {
		m, ok := raw.(map[string]any)
		if !ok {
			return s.errorf([]string{keyDateRange}, "must be an object with start and end")
		}
		start, err := s.date([]string{keyDateRange, "start"}, m["start"])
		if err != nil {
			return err
		}
		end, err := s.date([]string{keyDateRange, "end"}, m["end"])
		if err != nil {
			return err
		}
		if end.Before(start) {
			return s.errorf([]string{keyDateRange}, "end %s is before start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
		}
		opts.DateRange = &querybuilder.DateRange{Start: start, End: end}
	}
	return nil
}

// date accepts RFC 3339 timestamps and plain dates. YAML may already have
// produced a time.Time.
func (s *source) date(path []string, raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, s.errorf(path, "invalid date %q (expected RFC 3339 or YYYY-MM-DD)", v)
	case nil:
		return time.Time{}, s.errorf(path, "is required")
	default:
		return time.Time{}, s.errorf(path, "must be a date string, got %T", raw)
	}
}

// count decodes a non-negative integer. Absent values are zero.
func (s *source) count(path []string, raw any) (int, error) {
	var n int64
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case int:
		n = int64(v)
	case int64:
		n = v
	case float64:
		if v != math.Trunc(v) {
			return 0, s.errorf(path, "must be an integer, got %v", v)
		}
		n = int64(v)
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return 0, s.errorf(path, "must be an integer, got %s", v.String())
		}
		n = i
	default:
		return 0, s.errorf(path, "must be an integer, got %T", raw)
	}
	if n < 0 {
		return 0, s.errorf(path, "must not be negative, got %d", n)
	}
	return int(n), nil
}
