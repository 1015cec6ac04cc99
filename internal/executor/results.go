package executor

import (
	"encoding/json"

	"github.com/roach88/quadquery/internal/rdf"
)

// sparqlResults is the SPARQL 1.1 Query Results JSON format.
type sparqlResults struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results *struct {
		Bindings []map[string]resultTerm `json:"bindings"`
	} `json:"results,omitempty"`
	Boolean *bool `json:"boolean,omitempty"`
}

type resultTerm struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Language string `json:"xml:lang,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

func decodeResults(body []byte) (*sparqlResults, error) {
	var res sparqlResults
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, errorf("decode results: %v", err)
	}
	return &res, nil
}

func (r *sparqlResults) bindings() ([]rdf.Binding, error) {
	if r.Results == nil {
		return nil, errorf("select response carries no results")
	}
	out := make([]rdf.Binding, 0, len(r.Results.Bindings))
	for _, row := range r.Results.Bindings {
		b := make(rdf.Binding, len(row))
		for name, rt := range row {
			t, err := rt.term()
			if err != nil {
				return nil, err
			}
			b[name] = t
		}
		out = append(out, b)
	}
	return out, nil
}

func (rt resultTerm) term() (rdf.Term, error) {
	switch rt.Type {
	case "uri":
		return rdf.IRI(rt.Value), nil
	case "bnode":
		return rdf.BlankNode(rt.Value), nil
	case "literal", "typed-literal":
		lit := rdf.Literal{Value: rt.Value, Language: rt.Language}
		if rt.Language == "" && rt.Datatype != rdf.XSDString {
			lit.Datatype = rt.Datatype
		}
		return rdf.Normalize(lit), nil
	default:
		return nil, errorf("unknown result term type %q", rt.Type)
	}
}
