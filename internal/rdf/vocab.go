package rdf

// Namespaces used by the query compiler and update compiler.
const (
	RDFNamespace     = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFSNamespace    = "http://www.w3.org/2000/01/rdf-schema#"
	XSDNamespace     = "http://www.w3.org/2001/XMLSchema#"
	DCTermsNamespace = "http://purl.org/dc/terms/"
)

// Vocabulary terms.
const (
	RDFType       = RDFNamespace + "type"
	RDFLangString = RDFNamespace + "langString"

	RDFSSubClassOf = RDFSNamespace + "subClassOf"

	XSDString   = XSDNamespace + "string"
	XSDInteger  = XSDNamespace + "integer"
	XSDInt      = XSDNamespace + "int"
	XSDLong     = XSDNamespace + "long"
	XSDDecimal  = XSDNamespace + "decimal"
	XSDDouble   = XSDNamespace + "double"
	XSDFloat    = XSDNamespace + "float"
	XSDBoolean  = XSDNamespace + "boolean"
	XSDDateTime = XSDNamespace + "dateTime"
	XSDDate     = XSDNamespace + "date"

	DCTermsCreated  = DCTermsNamespace + "created"
	DCTermsModified = DCTermsNamespace + "modified"
)

// MatchedEntity marks the top-level entities of a CONSTRUCT result.
// The compiler adds one "?entity <MatchedEntity> true" triple per matched
// entity to every expansion template; reassembly consumes and drops it.
const MatchedEntity = "urn:quadquery:matched"

// Common terms.
var (
	TypeIRI       = IRI(RDFType)
	SubClassOfIRI = IRI(RDFSSubClassOf)
	True          = Literal{Value: "true", Datatype: XSDBoolean}
	False         = Literal{Value: "false", Datatype: XSDBoolean}
)
