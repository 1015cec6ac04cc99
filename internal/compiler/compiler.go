// Package compiler turns find-spec documents written in CUE, JSON or YAML
// into query builder options.
//
// A find-spec document is an object with the keys of a find:
//
//	prefixes: s: "http://schema.org/"
//	where: {
//		type: "s:Person"
//		"s:name": {"$op": "contains", value: "jo"}
//	}
//	order: [{"s:name": "asc"}]
//	limit: 10
//
// Documents with a groupBy or dateGrouping key are grouped aggregations
// instead. Compact IRIs whose prefix is declared under prefixes are
// expanded in field names and string values before operators are decoded.
package compiler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/quadquery/internal/querybuilder"
)

// Format is the surface syntax of a find-spec document.
type Format string

const (
	FormatCUE  Format = "cue"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return FormatCUE, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown find-spec extension %q (expected .cue, .json, .yaml or .yml)", filepath.Ext(path))
	}
}

// Kind distinguishes finds from grouped aggregations.
type Kind string

const (
	KindFind    Kind = "find"
	KindGroupBy Kind = "groupBy"
)

// Document is a compiled find-spec document. Find is set when Kind is
// KindFind and GroupBy when Kind is KindGroupBy.
type Document struct {
	Kind     Kind
	Prefixes map[string]string
	Find     querybuilder.FindOptions
	GroupBy  querybuilder.GroupByOptions
}

// CompileFile reads and compiles the document at path.
func CompileFile(path string) (*Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read find spec: %w", err)
	}
	return Compile(data, format, path)
}

// Compile compiles a find-spec document. filename is used for positions
// in CUE error messages and may be empty.
func Compile(data []byte, format Format, filename string) (*Document, error) {
	src := &source{}
	var (
		raw any
		err error
	)
	switch format {
	case FormatCUE:
		raw, err = src.decodeCUE(data, filename)
	case FormatJSON:
		raw, err = decodeJSON(data)
	case FormatYAML:
		raw, err = decodeYAML(data)
	default:
		return nil, fmt.Errorf("unknown find-spec format %q", format)
	}
	if err != nil {
		return nil, err
	}

	top, ok := raw.(map[string]any)
	if !ok {
		return nil, src.errorf(nil, "document must be an object, got %T", raw)
	}
	return src.compileDocument(top)
}

// source tracks the CUE value a document came from so errors can point
// at the offending field.
type source struct {
	value cue.Value
	isCUE bool
}

func (s *source) decodeCUE(data []byte, filename string) (any, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}
	s.value, s.isCUE = v, true

	var raw any
	if err := v.Decode(&raw); err != nil {
		return nil, formatCUEError(err)
	}
	return raw, nil
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, &CompileError{Field: "json", Message: err.Error(), Err: err}
	}
	return raw, nil
}

func decodeYAML(data []byte) (any, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &CompileError{Field: "yaml", Message: err.Error(), Err: err}
	}
	return raw, nil
}

// pos returns the source position of the value at path, when known.
// Numeric segments select list elements.
func (s *source) pos(path []string) token.Pos {
	if !s.isCUE {
		return token.NoPos
	}
	selectors := make([]cue.Selector, 0, len(path))
	for _, seg := range path {
		if i, err := strconv.Atoi(seg); err == nil {
			selectors = append(selectors, cue.Index(i))
			continue
		}
		selectors = append(selectors, cue.Str(seg))
	}
	v := s.value.LookupPath(cue.MakePath(selectors...))
	if !v.Exists() {
		return s.value.Pos()
	}
	return v.Pos()
}

func (s *source) errorf(path []string, format string, args ...any) *CompileError {
	field := strings.Join(path, ".")
	if field == "" {
		field = "document"
	}
	return &CompileError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Pos:     s.pos(path),
	}
}

func (s *source) wrap(path []string, err error) *CompileError {
	ce := s.errorf(path, "%v", err)
	ce.Err = err
	return ce
}
