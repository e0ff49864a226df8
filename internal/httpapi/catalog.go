package httpapi

import (
	"context"
	"fmt"

	"github.com/litepg/litepg-core/internal/domain"
	"github.com/litepg/litepg-core/internal/querylang"
)

// catalogResolver implements querylang.RelationResolver against
// information_schema, discovering the foreign key backing an embed by
// name or by an explicit `!fk_hint` disambiguator.
type catalogResolver struct {
	engine domain.EngineAdapter
}

func newCatalogResolver(engine domain.EngineAdapter) *catalogResolver {
	return &catalogResolver{engine: engine}
}

const fkLookupQuery = `
	SELECT
		tc.constraint_name,
		kcu.column_name AS child_column,
		ccu.table_name AS other_table,
		ccu.column_name AS other_column,
		kcu.table_name AS this_table
	FROM information_schema.table_constraints tc
	JOIN information_schema.key_column_usage kcu
		ON tc.constraint_name = kcu.constraint_name
	JOIN information_schema.constraint_column_usage ccu
		ON tc.constraint_name = ccu.constraint_name
	WHERE tc.constraint_type = 'FOREIGN KEY'
	  AND (kcu.table_name = $1 OR ccu.table_name = $1)
`

func (c *catalogResolver) Resolve(parentTable, embedName, fkHint string) (querylang.Relation, error) {
	rows, err := c.engine.Exec(context.Background(), fkLookupQuery, []interface{}{parentTable})
	if err != nil {
		return querylang.Relation{}, err
	}

	for _, row := range rows {
		constraintName, _ := row["constraint_name"].(string)
		childColumn, _ := row["child_column"].(string)
		otherTable, _ := row["other_table"].(string)
		otherColumn, _ := row["other_column"].(string)
		thisTable, _ := row["this_table"].(string)

		if fkHint != "" && constraintName != fkHint {
			continue
		}

		if thisTable == parentTable && otherTable == embedName {
			// parent holds the FK: belongs-to, to-one embed.
			return querylang.Relation{
				ToMany:       false,
				ParentColumn: childColumn,
				ChildTable:   otherTable,
				ChildColumn:  otherColumn,
			}, nil
		}
		if otherTable == parentTable && thisTable == embedName {
			// child holds the FK pointing back at the parent: has-many.
			return querylang.Relation{
				ToMany:       true,
				ParentColumn: otherColumn,
				ChildTable:   thisTable,
				ChildColumn:  childColumn,
			}, nil
		}
	}

	return querylang.Relation{}, domain.NewValidationError(domain.CodeUndefinedTable,
		fmt.Sprintf("no relationship found between %q and %q", parentTable, embedName))
}
