package querylang

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/litepg/litepg-core/internal/domain"
)

// identifierPattern is the only shape allowed for anything interpolated
// into SQL text (table/column/schema names, never values): this is what
// keeps every render path injection-safe even though values are bound as
// positional parameters.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// TotalCountColumn is the synthetic column renderSelect adds to carry the
// `count(*) OVER()` total when Prefer: count was requested. The caller
// reads it off the first row and strips it before returning rows to the
// client, mirroring how PostgREST derives Content-Range from the same
// window function rather than a second round-trip query.
const TotalCountColumn = "__litepg_total_count"

// Relation describes one foreign-key edge used to render an embed as a
// join. ToMany is false for a belongs-to embed (parent holds the FK) and
// true for a has-many embed (child holds the FK); this drives the
// null-vs-[] semantics of an empty embed result.
type Relation struct {
	ToMany       bool
	ParentColumn string
	ChildTable   string
	ChildColumn  string
}

// RelationResolver supplies the foreign-key metadata the renderer needs to
// turn an Embed into a join; it is implemented against the project's
// information_schema by internal/httpapi at request time.
type RelationResolver interface {
	Resolve(parentTable, embedName, fkHint string) (Relation, error)
}

// Render turns a ParsedQuery into a single parameterised SQL statement.
// Every case switches exhaustively on Method per the tagged-union design,
// so an unhandled Method is a programmer error, not a request-time failure.
func Render(pq *domain.ParsedQuery, resolver RelationResolver) (domain.RenderedSQL, error) {
	if err := validateIdentifiers(pq); err != nil {
		return domain.RenderedSQL{}, err
	}

	switch pq.Method {
	case domain.MethodSelect:
		return renderSelect(pq, resolver)
	case domain.MethodInsert:
		return renderInsert(pq)
	case domain.MethodUpdate:
		return renderUpdate(pq)
	case domain.MethodUpsert:
		return renderUpsert(pq)
	case domain.MethodDelete:
		return renderDelete(pq)
	case domain.MethodRPC:
		return renderRPC(pq)
	default:
		return domain.RenderedSQL{}, domain.NewInternalError(fmt.Errorf("unhandled query method %q", pq.Method))
	}
}

func validateIdentifiers(pq *domain.ParsedQuery) error {
	if pq.Table != "" && !identifierPattern.MatchString(pq.Table) {
		return parseError("invalid table name %q", pq.Table)
	}
	if pq.Schema != "" && !identifierPattern.MatchString(pq.Schema) {
		return parseError("invalid schema name %q", pq.Schema)
	}
	for _, f := range pq.Filters {
		if !identifierPattern.MatchString(f.Column) {
			return parseError("invalid filter column %q", f.Column)
		}
	}
	for _, o := range pq.Order {
		if !identifierPattern.MatchString(o.Column) {
			return parseError("invalid order column %q", o.Column)
		}
	}
	return nil
}

func qualifiedTable(pq *domain.ParsedQuery) string {
	if pq.Schema == "" {
		return quoteIdent(pq.Table)
	}
	return quoteIdent(pq.Schema) + "." + quoteIdent(pq.Table)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

type paramBinder struct {
	params []interface{}
}

func (b *paramBinder) bind(v interface{}) string {
	b.params = append(b.params, v)
	return fmt.Sprintf("$%d", len(b.params))
}

func renderSelect(pq *domain.ParsedQuery, resolver RelationResolver) (domain.RenderedSQL, error) {
	binder := &paramBinder{}

	cols, err := renderSelectList(pq.Table, pq.Select, resolver, binder)
	if err != nil {
		return domain.RenderedSQL{}, err
	}
	if pq.Count != nil {
		// planned/estimated modes have no EXPLAIN-based estimator behind
		// them here, so every CountMode degrades to the same exact
		// window-function total.
		cols += ", count(*) OVER() AS " + quoteIdent(TotalCountColumn)
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(cols)
	sb.WriteString(" FROM ")
	sb.WriteString(qualifiedTable(pq))

	if where := renderFilters(pq.Filters, binder); where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}

	if order := renderOrder(pq.Order); order != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(order)
	}

	if pq.Limit != nil {
		sb.WriteString(" LIMIT ")
		sb.WriteString(binder.bind(*pq.Limit))
	}
	if pq.Offset != nil {
		sb.WriteString(" OFFSET ")
		sb.WriteString(binder.bind(*pq.Offset))
	}

	return domain.RenderedSQL{SQL: sb.String(), Params: binder.params}, nil
}

// renderSelectList renders the column list, turning each Embed into a
// `(SELECT coalesce(jsonb_agg(...), '[]') FROM child WHERE child.fk = parent.pk)`
// or `(SELECT to_jsonb(child) FROM child WHERE ...)` scalar subquery
// depending on Relation.ToMany, giving the PostgREST null-vs-[] contract
// for an absent to-one vs an empty to-many.
func renderSelectList(table string, items []domain.SelectItem, resolver RelationResolver, binder *paramBinder) (string, error) {
	var parts []string
	for _, item := range items {
		if item.Embed == nil {
			if item.Column == "*" {
				parts = append(parts, "*")
				continue
			}
			if !identifierPattern.MatchString(item.Column) {
				return "", parseError("invalid select column %q", item.Column)
			}
			col := quoteIdent(item.Column)
			if item.Alias != "" {
				col = col + " AS " + quoteIdent(item.Alias)
			}
			parts = append(parts, col)
			continue
		}

		rel, err := resolver.Resolve(table, item.Embed.Name, item.Embed.FKHint)
		if err != nil {
			return "", err
		}
		item.Embed.ToMany = rel.ToMany

		nestedCols, err := renderSelectList(rel.ChildTable, item.Embed.Select, resolver, binder)
		if err != nil {
			return "", err
		}

		childAlias := item.Embed.Name
		var sub strings.Builder
		if rel.ToMany {
			fmt.Fprintf(&sub, `(SELECT coalesce(jsonb_agg(to_jsonb(%s.*)), '[]'::jsonb) FROM (SELECT %s FROM %s WHERE %s = %s`,
				quoteIdent(childAlias), nestedCols, quoteIdent(rel.ChildTable)+" AS "+quoteIdent(childAlias),
				quoteIdent(childAlias)+"."+quoteIdent(rel.ChildColumn), quoteIdent(table)+"."+quoteIdent(rel.ParentColumn))
		} else {
			fmt.Fprintf(&sub, `(SELECT to_jsonb(%s.*) FROM (SELECT %s FROM %s WHERE %s = %s`,
				quoteIdent(childAlias), nestedCols, quoteIdent(rel.ChildTable)+" AS "+quoteIdent(childAlias),
				quoteIdent(childAlias)+"."+quoteIdent(rel.ChildColumn), quoteIdent(table)+"."+quoteIdent(rel.ParentColumn))
		}

		if where := renderFilters(item.Embed.Filters, binder); where != "" {
			sub.WriteString(" AND ")
			sub.WriteString(where)
		}
		if order := renderOrder(item.Embed.Order); order != "" {
			sub.WriteString(" ORDER BY ")
			sub.WriteString(order)
		}
		sub.WriteString(fmt.Sprintf(") %s)", quoteIdent(childAlias)))

		alias := item.Alias
		if alias == "" {
			alias = item.Embed.Name
		}
		parts = append(parts, sub.String()+" AS "+quoteIdent(alias))
	}
	return strings.Join(parts, ", "), nil
}

func renderFilters(filters []domain.Filter, binder *paramBinder) string {
	var clauses []string
	for _, f := range filters {
		clause := renderOneFilter(f, binder)
		if f.Negated {
			clause = "NOT (" + clause + ")"
		}
		clauses = append(clauses, clause)
	}
	return strings.Join(clauses, " AND ")
}

func renderOneFilter(f domain.Filter, binder *paramBinder) string {
	col := quoteIdent(f.Column)
	switch f.Operator {
	case domain.OpEq:
		return col + " = " + binder.bind(f.Value)
	case domain.OpNeq:
		return col + " <> " + binder.bind(f.Value)
	case domain.OpGt:
		return col + " > " + binder.bind(f.Value)
	case domain.OpGte:
		return col + " >= " + binder.bind(f.Value)
	case domain.OpLt:
		return col + " < " + binder.bind(f.Value)
	case domain.OpLte:
		return col + " <= " + binder.bind(f.Value)
	case domain.OpLike:
		return col + " LIKE " + binder.bind(strings.ReplaceAll(f.Value, "*", "%"))
	case domain.OpILike:
		return col + " ILIKE " + binder.bind(strings.ReplaceAll(f.Value, "*", "%"))
	case domain.OpIn:
		values := strings.Split(strings.Trim(f.Value, "()"), ",")
		placeholders := make([]string, len(values))
		for i, v := range values {
			placeholders[i] = binder.bind(v)
		}
		return col + " IN (" + strings.Join(placeholders, ", ") + ")"
	case domain.OpIs:
		switch f.Value {
		case "null":
			return col + " IS NULL"
		case "true":
			return col + " IS TRUE"
		case "false":
			return col + " IS FALSE"
		default:
			return col + " IS NULL"
		}
	case domain.OpCs:
		return col + " @> " + binder.bind(f.Value)
	case domain.OpCd:
		return col + " <@ " + binder.bind(f.Value)
	case domain.OpOv:
		return col + " && " + binder.bind(f.Value)
	case domain.OpFts:
		return col + " @@ to_tsquery(" + binder.bind(f.Value) + ")"
	case domain.OpPlfts:
		return col + " @@ plainto_tsquery(" + binder.bind(f.Value) + ")"
	case domain.OpPhfts:
		return col + " @@ phraseto_tsquery(" + binder.bind(f.Value) + ")"
	case domain.OpWfts:
		return col + " @@ websearch_to_tsquery(" + binder.bind(f.Value) + ")"
	case domain.OpSl:
		return col + " << " + binder.bind(f.Value)
	case domain.OpSr:
		return col + " >> " + binder.bind(f.Value)
	case domain.OpNxl:
		return col + " &> " + binder.bind(f.Value)
	case domain.OpNxr:
		return col + " &< " + binder.bind(f.Value)
	case domain.OpAdj:
		return col + " -|- " + binder.bind(f.Value)
	default:
		return col + " = " + binder.bind(f.Value)
	}
}

func renderOrder(order []domain.OrderTerm) string {
	var clauses []string
	for _, o := range order {
		dir := "ASC"
		if !o.Ascending {
			dir = "DESC"
		}
		clause := quoteIdent(o.Column) + " " + dir
		if o.NullsFirst != nil {
			if *o.NullsFirst {
				clause += " NULLS FIRST"
			} else {
				clause += " NULLS LAST"
			}
		}
		clauses = append(clauses, clause)
	}
	return strings.Join(clauses, ", ")
}

func renderInsert(pq *domain.ParsedQuery) (domain.RenderedSQL, error) {
	return renderInsertLike(pq, nil)
}

func renderUpsert(pq *domain.ParsedQuery) (domain.RenderedSQL, error) {
	return renderInsertLike(pq, pq.OnConflict)
}

func renderInsertLike(pq *domain.ParsedQuery, onConflict []string) (domain.RenderedSQL, error) {
	if len(pq.Body) == 0 {
		return domain.RenderedSQL{}, parseError("insert/upsert requires a non-empty body")
	}

	cols := bodyColumns(pq.Body)
	binder := &paramBinder{}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(qualifiedTable(pq))
	sb.WriteString(" (")
	sb.WriteString(quoteIdentList(cols))
	sb.WriteString(") VALUES ")

	rowGroups := make([]string, len(pq.Body))
	for i, row := range pq.Body {
		placeholders := make([]string, len(cols))
		for j, col := range cols {
			placeholders[j] = binder.bind(row[col])
		}
		rowGroups[i] = "(" + strings.Join(placeholders, ", ") + ")"
	}
	sb.WriteString(strings.Join(rowGroups, ", "))

	if onConflict != nil {
		sb.WriteString(" ON CONFLICT (")
		sb.WriteString(quoteIdentList(onConflict))
		sb.WriteString(") DO UPDATE SET ")
		sets := make([]string, len(cols))
		for i, col := range cols {
			sets[i] = quoteIdent(col) + " = EXCLUDED." + quoteIdent(col)
		}
		sb.WriteString(strings.Join(sets, ", "))
	}

	if pq.PreferReturn == domain.ReturnRepresentation {
		sb.WriteString(" RETURNING *")
	}

	return domain.RenderedSQL{SQL: sb.String(), Params: binder.params}, nil
}

func renderUpdate(pq *domain.ParsedQuery) (domain.RenderedSQL, error) {
	if len(pq.Body) != 1 {
		return domain.RenderedSQL{}, parseError("update requires exactly one JSON object body")
	}
	binder := &paramBinder{}
	row := pq.Body[0]
	cols := bodyColumns(pq.Body)

	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(qualifiedTable(pq))
	sb.WriteString(" SET ")

	sets := make([]string, len(cols))
	for i, col := range cols {
		if !identifierPattern.MatchString(col) {
			return domain.RenderedSQL{}, parseError("invalid column %q in update body", col)
		}
		sets[i] = quoteIdent(col) + " = " + binder.bind(row[col])
	}
	sb.WriteString(strings.Join(sets, ", "))

	if where := renderFilters(pq.Filters, binder); where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	} else {
		return domain.RenderedSQL{}, parseError("update requires at least one filter")
	}

	if pq.PreferReturn == domain.ReturnRepresentation {
		sb.WriteString(" RETURNING *")
	}

	return domain.RenderedSQL{SQL: sb.String(), Params: binder.params}, nil
}

func renderDelete(pq *domain.ParsedQuery) (domain.RenderedSQL, error) {
	binder := &paramBinder{}

	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(qualifiedTable(pq))

	where := renderFilters(pq.Filters, binder)
	if where == "" {
		return domain.RenderedSQL{}, parseError("delete requires at least one filter")
	}
	sb.WriteString(" WHERE ")
	sb.WriteString(where)

	if pq.PreferReturn == domain.ReturnRepresentation {
		sb.WriteString(" RETURNING *")
	}

	return domain.RenderedSQL{SQL: sb.String(), Params: binder.params}, nil
}

func renderRPC(pq *domain.ParsedQuery) (domain.RenderedSQL, error) {
	if pq.RPC == nil {
		return domain.RenderedSQL{}, domain.NewInternalError(fmt.Errorf("rpc query missing RPCCall"))
	}
	if !identifierPattern.MatchString(pq.RPC.Name) {
		return domain.RenderedSQL{}, parseError("invalid function name %q", pq.RPC.Name)
	}

	binder := &paramBinder{}
	var named []string
	for key, val := range pq.RPC.Args {
		if !identifierPattern.MatchString(key) {
			return domain.RenderedSQL{}, parseError("invalid rpc argument name %q", key)
		}
		named = append(named, quoteIdent(key)+" := "+binder.bind(val))
	}

	sql := fmt.Sprintf("SELECT * FROM %s(%s)", quoteIdent(pq.RPC.Name), strings.Join(named, ", "))
	return domain.RenderedSQL{SQL: sql, Params: binder.params}, nil
}

func bodyColumns(rows []map[string]interface{}) []string {
	seen := map[string]bool{}
	var cols []string
	for _, row := range rows {
		for col := range row {
			if !seen[col] {
				seen[col] = true
				cols = append(cols, col)
			}
		}
	}
	return cols
}

func quoteIdentList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}
