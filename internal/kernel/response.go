// Package kernel composes the middleware chain and dispatches to endpoint
// executors, wiring chi middleware and route groups through a reusable
// Kernel type instead of inline main() wiring, since this service hosts
// many projects behind one process rather than one fixed route table.
package kernel

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/litepg/litepg-core/internal/domain"
)

// QueryResult is what an endpoint executor hands the Response Formatter:
// the rows plus enough metadata to render headers and body shape.
type QueryResult struct {
	Rows         []map[string]interface{}
	TotalCount   *int64 // non-nil when Prefer: count was requested
	ReturnSingle bool
	Accept       domain.AcceptKind
	PreferReturn domain.PreferReturn
	RangeStart   int64
	RangeEnd     int64
	// Columns is the declared select= order. When set, CSV rendering
	// follows it instead of deriving column order from a row map.
	Columns []string
}

// WriteQueryResult renders a QueryResult as the data API's body, headers,
// and status code: JSON array, single object, or CSV;
// Content-Range and a 204 on minimal-return writes.
func WriteQueryResult(w http.ResponseWriter, r *http.Request, res QueryResult) {
	isWrite := r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodDelete
	if res.PreferReturn == domain.ReturnMinimal && isWrite {
		writeContentRange(w, res)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if res.ReturnSingle {
		if len(res.Rows) == 0 {
			writeAppError(w, domain.NewNotFoundError("no rows matched the single-object request"))
			return
		}
		if len(res.Rows) > 1 {
			writeAppError(w, &domain.AppError{
				Kind: domain.KindValidation, Code: domain.CodeSingleRowExpected,
				Message: "more than one row matched a single-object request",
			})
			return
		}
		writeContentRange(w, res)
		writeJSON(w, http.StatusOK, res.Rows[0])
		return
	}

	switch res.Accept {
	case domain.AcceptCSV:
		writeCSV(w, res.Rows, res.Columns)
	default:
		writeContentRange(w, res)
		writeJSON(w, http.StatusOK, res.Rows)
	}
}

func writeContentRange(w http.ResponseWriter, res QueryResult) {
	if res.TotalCount != nil {
		w.Header().Set("Content-Range", fmt.Sprintf("%d-%d/%d", res.RangeStart, res.RangeEnd, *res.TotalCount))
	} else {
		w.Header().Set("Content-Range", fmt.Sprintf("%d-%d/*", res.RangeStart, res.RangeEnd))
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeCSV renders rows as CSV using columns for the header and field order
// when given (the declared select= order); with no explicit select (e.g.
// select=*) it falls back to deriving column names from the first row,
// sorted for a stable header.
func writeCSV(w http.ResponseWriter, rows []map[string]interface{}, columns []string) {
	w.Header().Set("Content-Type", "text/csv")
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	defer cw.Flush()

	if len(rows) == 0 {
		return
	}

	cols := columns
	if len(cols) == 0 {
		cols = make([]string, 0, len(rows[0]))
		for col := range rows[0] {
			cols = append(cols, col)
		}
		sort.Strings(cols)
	}
	_ = cw.Write(cols)

	for _, row := range rows {
		record := make([]string, len(cols))
		for i, col := range cols {
			record[i] = fmt.Sprintf("%v", row[col])
		}
		_ = cw.Write(record)
	}
}

// WriteAuthResult renders a successful auth-state-machine result as JSON,
// the data-API equivalent being WriteQueryResult.
func WriteAuthResult(w http.ResponseWriter, status int, body interface{}) {
	writeJSON(w, status, body)
}

func writeAppError(w http.ResponseWriter, err error) {
	WriteError(w, err)
}
