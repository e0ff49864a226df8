package domain

// CountMode is the `Prefer: count=*` header value.
type CountMode string

const (
	CountExact     CountMode = "exact"
	CountPlanned   CountMode = "planned"
	CountEstimated CountMode = "estimated"
)

// PreferReturn is the `Prefer: return=*` header value.
type PreferReturn string

const (
	ReturnRepresentation PreferReturn = "representation"
	ReturnMinimal        PreferReturn = "minimal"
)

// PreferResolution is the `Prefer: resolution=*` header value (upsert).
type PreferResolution string

const (
	ResolutionMergeDuplicates  PreferResolution = "merge-duplicates"
	ResolutionIgnoreDuplicates PreferResolution = "ignore-duplicates"
)

// Method is the statement kind the grammar resolved to. Modeled as a tagged
// union rather than an open object so the renderer is total: every case in
// internal/querylang/render.go switches exhaustively on Method.
type Method string

const (
	MethodSelect Method = "select"
	MethodInsert Method = "insert"
	MethodUpdate Method = "update"
	MethodDelete Method = "delete"
	MethodUpsert Method = "upsert"
	MethodRPC    Method = "rpc"
)

// FilterOp is one of the operators from the grammar table.
type FilterOp string

const (
	OpEq    FilterOp = "eq"
	OpNeq   FilterOp = "neq"
	OpGt    FilterOp = "gt"
	OpGte   FilterOp = "gte"
	OpLt    FilterOp = "lt"
	OpLte   FilterOp = "lte"
	OpLike  FilterOp = "like"
	OpILike FilterOp = "ilike"
	OpIn    FilterOp = "in"
	OpIs    FilterOp = "is"
	OpCs    FilterOp = "cs"
	OpCd    FilterOp = "cd"
	OpSl    FilterOp = "sl"
	OpSr    FilterOp = "sr"
	OpNxl   FilterOp = "nxl"
	OpNxr   FilterOp = "nxr"
	OpAdj   FilterOp = "adj"
	OpOv    FilterOp = "ov"
	OpFts   FilterOp = "fts"
	OpPlfts FilterOp = "plfts"
	OpPhfts FilterOp = "phfts"
	OpWfts  FilterOp = "wfts"
)

// Filter is one `col=op.value` clause, possibly targeting an embedded
// resource via a dotted path.
type Filter struct {
	Path     []string // dotted path; len 1 for root-table filters
	Column   string
	Operator FilterOp
	Value    string
	Negated  bool // `not.` prefix
}

// OrderTerm is one comma-separated clause of `order=`.
type OrderTerm struct {
	Path        []string
	Column      string
	Ascending   bool
	NullsFirst  *bool
}

// SelectItem is one entry of the `select=` grammar: a plain column, an
// aliased column, or a recursive embed.
type SelectItem struct {
	Alias      string
	Column     string
	Embed      *Embed // non-nil when this item is a relation embed
}

// Embed is a `select=...,embed_name(col,...)` fragment: a recursive
// ParsedQuery-shaped join hint.
type Embed struct {
	Name       string
	FKHint     string // disambiguator from `!fk_hint`
	Select     []SelectItem
	Filters    []Filter
	Order      []OrderTerm
	ToMany     bool // resolved against schema metadata at render time
}

// CountSpec captures the `Prefer: count=*` request.
type CountSpec struct {
	Mode CountMode
}

// RPCCall is the `/rest/v1/rpc/<fn>` request body mapped to named args.
type RPCCall struct {
	Name string
	Args map[string]interface{}
}

// ParsedQuery is the normalised output of the Query Translator.
// Embeds recurse as Embed values, which are themselves ParsedQuery-shaped
// fragments carrying a join hint.
type ParsedQuery struct {
	Schema  string
	Table   string
	Method  Method

	Select []SelectItem
	Filters []Filter
	Order   []OrderTerm
	Limit   *int64
	Offset  *int64
	Count   *CountSpec

	PreferReturn     PreferReturn
	PreferResolution PreferResolution
	ReturnSingle     bool // Accept: application/vnd.pgrst.object+json

	OnConflict []string

	// Body carries decoded JSON rows for INSERT/UPDATE/UPSERT; each row is
	// a column->value map.
	Body []map[string]interface{}

	RPC *RPCCall

	Accept AcceptKind
}

// AcceptKind is the negotiated response shape.
type AcceptKind string

const (
	AcceptJSON   AcceptKind = "json"
	AcceptObject AcceptKind = "object" // application/vnd.pgrst.object+json
	AcceptCSV    AcceptKind = "csv"
)

// RenderedSQL is the output of rendering a ParsedQuery: a single
// parameterised statement plus its positional arguments. No element of
// Params ever appears verbatim in SQL.
type RenderedSQL struct {
	SQL    string
	Params []interface{}
}
