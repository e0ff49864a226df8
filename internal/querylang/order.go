package querylang

import (
	"strings"

	"github.com/litepg/litepg-core/internal/domain"
)

// ParseOrder parses the `order=` query parameter: a comma-separated list of
// `[path.]column[.asc|.desc][.nullsfirst|.nullslast]` terms.
func ParseOrder(raw string) ([]domain.OrderTerm, error) {
	if raw == "" {
		return nil, nil
	}

	var terms []domain.OrderTerm
	for _, clause := range strings.Split(raw, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		parts := strings.Split(clause, ".")
		if len(parts) == 0 {
			continue
		}

		term := domain.OrderTerm{Ascending: true}
		colParts := parts
		for len(colParts) > 1 {
			last := colParts[len(colParts)-1]
			switch last {
			case "asc":
				term.Ascending = true
				colParts = colParts[:len(colParts)-1]
				continue
			case "desc":
				term.Ascending = false
				colParts = colParts[:len(colParts)-1]
				continue
			case "nullsfirst":
				t := true
				term.NullsFirst = &t
				colParts = colParts[:len(colParts)-1]
				continue
			case "nullslast":
				f := false
				term.NullsFirst = &f
				colParts = colParts[:len(colParts)-1]
				continue
			}
			break
		}

		if len(colParts) == 0 {
			return nil, parseError("empty order term in %q", raw)
		}
		term.Path = colParts[:len(colParts)-1]
		term.Column = colParts[len(colParts)-1]
		terms = append(terms, term)
	}
	return terms, nil
}
