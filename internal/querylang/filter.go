package querylang

import (
	"strings"

	"github.com/litepg/litepg-core/internal/domain"
)

var knownOps = map[string]domain.FilterOp{
	"eq": domain.OpEq, "neq": domain.OpNeq,
	"gt": domain.OpGt, "gte": domain.OpGte,
	"lt": domain.OpLt, "lte": domain.OpLte,
	"like": domain.OpLike, "ilike": domain.OpILike,
	"in": domain.OpIn, "is": domain.OpIs,
	"cs": domain.OpCs, "cd": domain.OpCd,
	"sl": domain.OpSl, "sr": domain.OpSr,
	"nxl": domain.OpNxl, "nxr": domain.OpNxr,
	"adj": domain.OpAdj, "ov": domain.OpOv,
	"fts": domain.OpFts, "plfts": domain.OpPlfts,
	"phfts": domain.OpPhfts, "wfts": domain.OpWfts,
}

// reservedQueryParams never become filter columns.
var reservedQueryParams = map[string]bool{
	"select": true, "order": true, "limit": true, "offset": true,
	"on_conflict": true, "columns": true,
}

// parseFilterValue splits a query-string value of the form
// `[not.]op.value` into its parts.
func parseFilterValue(raw string) (op domain.FilterOp, value string, negated bool, err error) {
	rest := raw
	if strings.HasPrefix(rest, "not.") {
		negated = true
		rest = rest[len("not."):]
	}

	dot := strings.IndexByte(rest, '.')
	if dot < 0 {
		return "", "", false, parseError("filter value %q is missing an operator", raw)
	}
	opToken := rest[:dot]
	value = rest[dot+1:]

	resolved, ok := knownOps[opToken]
	if !ok {
		return "", "", false, parseError("unknown filter operator %q", opToken)
	}
	return resolved, value, negated, nil
}

// parseFilterKey splits a query-string key into a dotted embed path plus
// the terminal column name, e.g. `author.country` -> (["author"], "country").
func parseFilterKey(key string) (path []string, column string) {
	parts := strings.Split(key, ".")
	if len(parts) == 1 {
		return nil, parts[0]
	}
	return parts[:len(parts)-1], parts[len(parts)-1]
}

// ParseFilters extracts every non-reserved query parameter as a Filter,
// supporting dotted embed-scoped columns and repeated keys (AND-combined,
// per PostgREST-style semantics).
func ParseFilters(query map[string][]string) ([]domain.Filter, error) {
	var filters []domain.Filter

	for key, values := range query {
		if reservedQueryParams[key] {
			continue
		}
		path, column := parseFilterKey(key)
		for _, raw := range values {
			op, value, negated, err := parseFilterValue(raw)
			if err != nil {
				return nil, err
			}
			filters = append(filters, domain.Filter{
				Path:     path,
				Column:   column,
				Operator: op,
				Value:    value,
				Negated:  negated,
			})
		}
	}
	return filters, nil
}
