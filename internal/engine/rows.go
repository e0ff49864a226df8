package engine

import (
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/litepg/litepg-core/internal/domain"
)

func collectRows(rows pgx.Rows) ([]map[string]interface{}, error) {
	fields := rows.FieldDescriptions()
	result := make([]map[string]interface{}, 0)

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, mapPgError(err)
		}
		row := make(map[string]interface{}, len(fields))
		for i, f := range fields {
			row[string(f.Name)] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err)
	}
	return result, nil
}

func marshalClaims(sc domain.SessionContext) (string, error) {
	claims := map[string]interface{}{"role": string(sc.Role)}
	if sc.UserID != nil {
		claims["sub"] = sc.UserID.String()
	}
	for k, v := range sc.Claims {
		claims[k] = v
	}
	b, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// mapPgError translates driver errors into the single AppError type that
// crosses every subsystem boundary. The handful of SQLSTATE codes with a
// stable wire code keep it; everything else becomes a generic engine error
// carrying the original SQLSTATE for diagnostics.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if ok := asPgError(err, &pgErr); ok {
		switch pgErr.Code {
		case "42P01":
			return domain.NewEngineError(domain.CodeUndefinedTable, pgErr.Message, err)
		case "42703":
			return domain.NewEngineError(domain.CodeUndefinedColumn, pgErr.Message, err)
		case "23505":
			return domain.NewConflictError(domain.ConflictAlreadyExists, domain.CodeUniqueViolation, pgErr.Message)
		default:
			return domain.NewEngineError(pgErr.Code, pgErr.Message, err)
		}
	}
	return domain.NewEngineError("", err.Error(), err)
}

func asPgError(err error, target **pgconn.PgError) bool {
	for err != nil {
		if pe, ok := err.(*pgconn.PgError); ok {
			*target = pe
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}
