package httpapi

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/litepg/litepg-core/internal/domain"
	"github.com/litepg/litepg-core/internal/kernel"
	"github.com/litepg/litepg-core/internal/querylang"
)

// DataExecutor handles /rest/v1/{table} and /rest/v1/rpc/{fn}, translating
// the request into a ParsedQuery, rendering it to SQL, and running it
// through the project's RLS binder.
type DataExecutor struct {
	kernel *kernel.Kernel
}

func NewDataExecutor(k *kernel.Kernel) *DataExecutor {
	return &DataExecutor{kernel: k}
}

func (h *DataExecutor) RegisterRoutes(r chi.Router) {
	r.Route("/rest/v1", func(r chi.Router) {
		r.Post("/rpc/{fn}", h.RPC)
		r.Get("/{table}", h.Query)
		r.Post("/{table}", h.Query)
		r.Patch("/{table}", h.Query)
		r.Delete("/{table}", h.Query)
	})
}

func (h *DataExecutor) Query(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	rc := kernel.FromContext(r.Context())

	body, _ := io.ReadAll(r.Body)

	pq, err := querylang.Translate(querylang.Request{
		HTTPMethod:  r.Method,
		Schema:      "public",
		Table:       table,
		RawQuery:    r.URL.Query(),
		Body:        body,
		Prefer:      r.Header.Get("Prefer"),
		AcceptValue: r.Header.Get("Accept"),
		RangeHeader: r.Header.Get("Range"),
	})
	if err != nil {
		kernel.WriteError(w, err)
		return
	}

	h.run(w, r, rc, pq)
}

func (h *DataExecutor) RPC(w http.ResponseWriter, r *http.Request) {
	fn := chi.URLParam(r, "fn")
	rc := kernel.FromContext(r.Context())

	body, _ := io.ReadAll(r.Body)
	pq, err := querylang.TranslateRPC(fn, body)
	if err != nil {
		kernel.WriteError(w, err)
		return
	}

	h.run(w, r, rc, pq)
}

func (h *DataExecutor) run(w http.ResponseWriter, r *http.Request, rc *domain.RequestContext, pq *domain.ParsedQuery) {
	ctx := r.Context()
	binder, err := h.kernel.Binder(ctx, rc.ProjectID)
	if err != nil {
		kernel.WriteError(w, err)
		return
	}

	eng, err := h.kernel.EngineFor(ctx, rc.ProjectID)
	if err != nil {
		kernel.WriteError(w, err)
		return
	}
	resolver := newCatalogResolver(eng)

	rendered, err := querylang.Render(pq, resolver)
	if err != nil {
		kernel.WriteError(w, err)
		return
	}

	var rows []map[string]interface{}
	runErr := binder.Run(ctx, rc.SessionContext, func(ctx context.Context, tx domain.Tx) error {
		result, err := tx.Exec(ctx, rendered.SQL, rendered.Params)
		if err != nil {
			return err
		}
		rows = result
		return nil
	})
	if runErr != nil {
		kernel.WriteError(w, runErr)
		return
	}

	var total *int64
	if pq.Count != nil {
		n := extractTotalCount(rows)
		total = &n
	}

	var start, end int64
	if pq.Offset != nil {
		start = *pq.Offset
	}
	end = start + int64(len(rows)) - 1
	if end < start {
		end = start
	}

	kernel.WriteQueryResult(w, r, kernel.QueryResult{
		Rows:         rows,
		TotalCount:   total,
		ReturnSingle: pq.ReturnSingle,
		Accept:       pq.Accept,
		PreferReturn: pq.PreferReturn,
		RangeStart:   start,
		RangeEnd:     end,
		Columns:      selectColumns(pq.Select),
	})
}

// extractTotalCount reads the count(*) OVER() window value renderSelect
// attaches to every row when Prefer: count was requested, then strips the
// synthetic column so it never reaches the client.
func extractTotalCount(rows []map[string]interface{}) int64 {
	if len(rows) == 0 {
		return 0
	}
	var total int64
	switch v := rows[0][querylang.TotalCountColumn].(type) {
	case int64:
		total = v
	case int32:
		total = int64(v)
	case int:
		total = int64(v)
	}
	for _, row := range rows {
		delete(row, querylang.TotalCountColumn)
	}
	return total
}

// selectColumns returns the declared select= order for CSV rendering, or
// nil when the select includes a wildcard and no explicit order exists.
func selectColumns(items []domain.SelectItem) []string {
	cols := make([]string, 0, len(items))
	for _, item := range items {
		if item.Column == "*" && item.Embed == nil {
			return nil
		}
		name := item.Alias
		if name == "" {
			if item.Embed != nil {
				name = item.Embed.Name
			} else {
				name = item.Column
			}
		}
		cols = append(cols, name)
	}
	return cols
}
