package sparqlparser

import "github.com/alecthomas/participle/v2/lexer"

// The parse tree mirrors the grammar; convert.go turns it into queryir
// documents.

type queryUnit struct {
	Pos lexer.Position

	Prologue  []*prefixDecl   `@@*`
	Select    *selectQuery    `( @@`
	Construct *constructQuery `| @@`
	Ask       *askQuery       `| @@ )`
}

type updateUnit struct {
	Pos lexer.Position

	Prologue   []*prefixDecl      `@@*`
	Operations []*updateOperation `@@ ( ";" @@ )* ";"?`
}

type prefixDecl struct {
	Name string `"PREFIX" @PName`
	IRI  string `@IRIRef`
}

type selectQuery struct {
	Pos lexer.Position

	Distinct   bool          `"SELECT" @"DISTINCT"?`
	Star       bool          `( @"*"`
	Projection []*projection `| @@+ )`
	Where      *groupPattern `"WHERE"? @@`

	GroupBy []string          `( "GROUP" "BY" @Var+ )?`
	OrderBy []*orderCondition `( "ORDER" "BY" @@+ )?`
	Limit   string            `( "LIMIT" @Number )?`
	Offset  string            `( "OFFSET" @Number )?`
}

type constructQuery struct {
	Pos lexer.Position

	Template []*triplesSameSubject `"CONSTRUCT" "{" ( @@ "."? )* "}"`
	Where    *groupPattern         `"WHERE" @@`

	OrderBy []*orderCondition `( "ORDER" "BY" @@+ )?`
	Limit   string            `( "LIMIT" @Number )?`
	Offset  string            `( "OFFSET" @Number )?`
}

type askQuery struct {
	Pos lexer.Position

	Where *groupPattern `"ASK" "WHERE"? @@`
}

type projection struct {
	Var   string      `  @Var`
	Expr  *expression `| "(" @@ "AS"`
	Alias string      `  @Var ")"`
}

type orderCondition struct {
	Direction string      `@( "ASC" | "DESC" )?`
	Expr      *expression `@@`
}

type groupPattern struct {
	Pos lexer.Position

	SubSelect *selectQuery    `"{" ( @@`
	Elements  []*groupElement `| @@* ) "}"`
}

type groupElement struct {
	Pos lexer.Position

	Optional *groupPattern       `  "OPTIONAL" @@`
	Graph    *graphPattern       `| "GRAPH" @@`
	Filter   *expression         `| "FILTER" @@`
	Bind     *bind               `| "BIND" @@`
	Values   *values             `| "VALUES" @@`
	Group    *unionPattern       `| @@`
	Triples  *triplesSameSubject `| @@ "."?`
	Dot      bool                `| @"."`
}

type graphPattern struct {
	Name    *term         `@@`
	Pattern *groupPattern `@@`
}

type unionPattern struct {
	Groups []*groupPattern `@@ ( "UNION" @@ )*`
}

type bind struct {
	Expr *expression `"(" @@ "AS"`
	Var  string      `@Var ")"`
}

type values struct {
	Var    string       `( @Var`
	Single []*dataValue `  "{" @@* "}"`
	Vars   []string     `| "(" @Var* ")"`
	Rows   []*dataRow   `  "{" @@* "}" )`
}

type dataRow struct {
	Values []*dataValue `"(" @@* ")"`
}

type dataValue struct {
	Undef bool  `  @"UNDEF"`
	Term  *term `| @@`
}

type triplesSameSubject struct {
	Pos lexer.Position

	Subject    *term               `@@`
	Predicates []*predicateObjects `@@ ( ";" @@? )*`
}

type predicateObjects struct {
	Path    *path   `@@`
	Objects []*term `@@ ( "," @@ )*`
}

type path struct {
	Steps []*pathElement `@@ ( "/" @@ )*`
}

type pathElement struct {
	Inverse  bool         `@"^"?`
	Primary  *pathPrimary `@@`
	Modifier string       `@( "*" | "+" )?`
}

type pathPrimary struct {
	A     bool    `  @"a"`
	IRI   *iriRef `| @@`
	Var   string  `| @Var`
	Group *path   `| "(" @@ ")"`
}

type term struct {
	Var     string   `  @Var`
	IRI     *iriRef  `| @@`
	Blank   string   `| @BlankNode`
	Literal *literal `| @@`
	Number  string   `| @Number`
	Bool    string   `| @( "true" | "false" )`
}

type iriRef struct {
	Full   string `  @IRIRef`
	Prefix string `| @PName`
}

type literal struct {
	Value    string  `@String`
	Lang     string  `( @LangTag`
	Datatype *iriRef `| "^^" @@ )?`
}

type expression struct {
	Or []*andExpression `@@ ( "||" @@ )*`
}

type andExpression struct {
	And []*relationalExpression `@@ ( "&&" @@ )*`
}

type relationalExpression struct {
	Left  *unaryExpression `@@`
	Op    string           `( @( "=" | "!=" | "<=" | ">=" | "<" | ">" )`
	Right *unaryExpression `  @@`
	NotIn bool             `| ( @"NOT" "IN"`
	In    bool             `  | @"IN" )`
	List  []*expression    `  "(" ( @@ ( "," @@ )* )? ")" )?`
}

type unaryExpression struct {
	Not     *unaryExpression   `  "!" @@`
	Primary *primaryExpression `| @@`
}

type primaryExpression struct {
	Group     *expression   `  "(" @@ ")"`
	NotExists *groupPattern `| "NOT" "EXISTS" @@`
	Exists    *groupPattern `| "EXISTS" @@`
	Aggregate *aggregate    `| @@`
	Call      *functionCall `| @@`
	Term      *term         `| @@`
}

type aggregate struct {
	Function  string      `@( "COUNT" | "MIN" | "MAX" | "SAMPLE" | "GROUP_CONCAT" ) "("`
	Distinct  bool        `@"DISTINCT"?`
	Star      bool        `( @"*"`
	Expr      *expression `| @@ )`
	Separator *string     `( ";" "SEPARATOR" "=" @String )? ")"`
}

type functionCall struct {
	Name string        `@Ident "("`
	Args []*expression `( @@ ( "," @@ )* )? ")"`
}

type updateOperation struct {
	Pos lexer.Position

	InsertData  *quadData `  "INSERT" "DATA" @@`
	DeleteData  *quadData `| "DELETE" "DATA" @@`
	DeleteWhere *quadData `| "DELETE" "WHERE" @@`
	Drop        *drop     `| "DROP" @@`
	Modify      *modify   `| @@`
}

type modify struct {
	Delete *quadData     `( "DELETE" @@ )?`
	Insert *quadData     `( "INSERT" @@ )?`
	Where  *groupPattern `"WHERE" @@`
}

type drop struct {
	Silent bool    `@"SILENT"?`
	Graph  *iriRef `"GRAPH" @@`
}

type quadData struct {
	Items []*quadItem `"{" @@* "}"`
}

type quadItem struct {
	Graph   *graphQuads         `  "GRAPH" @@`
	Triples *triplesSameSubject `| @@ "."?`
}

type graphQuads struct {
	Name    *term                 `@@`
	Triples []*triplesSameSubject `"{" ( @@ "."? )* "}"`
}

// N-Quads documents. A statement without a graph term is a triple in the
// default graph.
type nquadsDocument struct {
	Statements []*nquad `@@*`
}

type nquad struct {
	Pos lexer.Position

	Subject   *term  `@@`
	Predicate string `@IRIRef`
	Object    *term  `@@`
	Graph     *term  `@@? "."`
}
