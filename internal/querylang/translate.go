package querylang

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/litepg/litepg-core/internal/domain"
)

// Request is the normalised HTTP-layer input the translator works from,
// populated by internal/httpapi before a ParsedQuery is built.
type Request struct {
	HTTPMethod string
	Schema     string
	Table      string
	RawQuery   url.Values
	Body       []byte

	Prefer      string // raw Prefer header, possibly comma-separated
	AcceptValue string // raw Accept header
	RangeHeader string // raw Range header: "0-24"
}

// Translate turns one HTTP request into a ParsedQuery. It never touches
// the database; all it
// produces is data plus validation errors.
func Translate(req Request) (*domain.ParsedQuery, error) {
	pq := &domain.ParsedQuery{
		Schema: req.Schema,
		Table:  req.Table,
	}

	selectRaw := req.RawQuery.Get("select")
	items, err := ParseSelect(selectRaw)
	if err != nil {
		return nil, err
	}
	pq.Select = items

	filters, err := ParseFilters(req.RawQuery)
	if err != nil {
		return nil, err
	}
	pq.Filters = filters

	order, err := ParseOrder(req.RawQuery.Get("order"))
	if err != nil {
		return nil, err
	}
	pq.Order = order

	if err := partitionEmbedClauses(pq); err != nil {
		return nil, err
	}

	if limRaw := req.RawQuery.Get("limit"); limRaw != "" {
		n, err := strconv.ParseInt(limRaw, 10, 64)
		if err != nil {
			return nil, parseError("invalid limit %q", limRaw)
		}
		pq.Limit = &n
	}
	if offRaw := req.RawQuery.Get("offset"); offRaw != "" {
		n, err := strconv.ParseInt(offRaw, 10, 64)
		if err != nil {
			return nil, parseError("invalid offset %q", offRaw)
		}
		pq.Offset = &n
	}

	if limit, offset, ok := parseRangeHeader(req.RangeHeader); ok {
		if pq.Limit == nil {
			pq.Limit = &limit
		}
		if pq.Offset == nil {
			pq.Offset = &offset
		}
	}

	applyPrefer(pq, req.Prefer)

	if onConflict := req.RawQuery.Get("on_conflict"); onConflict != "" {
		pq.OnConflict = strings.Split(onConflict, ",")
	}

	pq.Accept = classifyAccept(req.AcceptValue)
	if pq.Accept == domain.AcceptObject {
		pq.ReturnSingle = true
	}

	switch strings.ToUpper(req.HTTPMethod) {
	case "GET", "HEAD":
		pq.Method = domain.MethodSelect
	case "POST":
		if pq.PreferResolution != "" {
			pq.Method = domain.MethodUpsert
		} else {
			pq.Method = domain.MethodInsert
		}
		if err := decodeBody(req.Body, pq); err != nil {
			return nil, err
		}
	case "PATCH":
		pq.Method = domain.MethodUpdate
		if err := decodeBody(req.Body, pq); err != nil {
			return nil, err
		}
	case "DELETE":
		pq.Method = domain.MethodDelete
	default:
		return nil, parseError("unsupported method %q", req.HTTPMethod)
	}

	if pq.Method == domain.MethodDelete && len(pq.Filters) == 0 {
		return nil, domain.NewValidationError(domain.CodeParseError, "DELETE requires at least one filter")
	}

	return pq, nil
}

// TranslateRPC builds a ParsedQuery for POST /rest/v1/rpc/<fn>.
func TranslateRPC(name string, body []byte) (*domain.ParsedQuery, error) {
	args := map[string]interface{}{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &args); err != nil {
			return nil, parseError("invalid rpc argument body: %v", err)
		}
	}
	return &domain.ParsedQuery{
		Method: domain.MethodRPC,
		RPC:    &domain.RPCCall{Name: name, Args: args},
		Accept: domain.AcceptJSON,
	}, nil
}

func decodeBody(body []byte, pq *domain.ParsedQuery) error {
	if len(body) == 0 {
		return nil
	}

	var single map[string]interface{}
	if err := json.Unmarshal(body, &single); err == nil {
		pq.Body = []map[string]interface{}{single}
		return nil
	}

	var many []map[string]interface{}
	if err := json.Unmarshal(body, &many); err == nil {
		pq.Body = many
		return nil
	}

	return parseError("request body is neither a JSON object nor an array of objects")
}

func applyPrefer(pq *domain.ParsedQuery, prefer string) {
	pq.PreferReturn = domain.ReturnMinimal

	for _, directive := range strings.Split(prefer, ",") {
		directive = strings.TrimSpace(directive)
		switch {
		case directive == "return=representation":
			pq.PreferReturn = domain.ReturnRepresentation
		case directive == "return=minimal":
			pq.PreferReturn = domain.ReturnMinimal
		case directive == "resolution=merge-duplicates":
			pq.PreferResolution = domain.ResolutionMergeDuplicates
		case directive == "resolution=ignore-duplicates":
			pq.PreferResolution = domain.ResolutionIgnoreDuplicates
		case strings.HasPrefix(directive, "count="):
			mode := domain.CountMode(strings.TrimPrefix(directive, "count="))
			pq.Count = &domain.CountSpec{Mode: mode}
		}
	}
}

func classifyAccept(accept string) domain.AcceptKind {
	switch {
	case strings.Contains(accept, "application/vnd.pgrst.object+json"):
		return domain.AcceptObject
	case strings.Contains(accept, "text/csv"):
		return domain.AcceptCSV
	default:
		return domain.AcceptJSON
	}
}

// partitionEmbedClauses moves every dotted-path filter and order term (e.g.
// `orchestral_sections.name=eq.percussion`) out of the root ParsedQuery and
// into the Filters/Order of the matching Embed node, so the renderer applies
// it inside the embed's subquery instead of narrowing the root rows.
func partitionEmbedClauses(pq *domain.ParsedQuery) error {
	rootFilters := pq.Filters[:0:0]
	for _, f := range pq.Filters {
		if len(f.Path) == 0 {
			rootFilters = append(rootFilters, f)
			continue
		}
		embed, err := findEmbed(pq.Select, f.Path)
		if err != nil {
			return err
		}
		f.Path = nil
		embed.Filters = append(embed.Filters, f)
	}
	pq.Filters = rootFilters

	rootOrder := pq.Order[:0:0]
	for _, o := range pq.Order {
		if len(o.Path) == 0 {
			rootOrder = append(rootOrder, o)
			continue
		}
		embed, err := findEmbed(pq.Select, o.Path)
		if err != nil {
			return err
		}
		o.Path = nil
		embed.Order = append(embed.Order, o)
	}
	pq.Order = rootOrder

	return nil
}

// findEmbed walks path (an embed name per nesting level) against items,
// returning the Embed node the final path segment names.
func findEmbed(items []domain.SelectItem, path []string) (*domain.Embed, error) {
	name := path[0]
	for i := range items {
		item := &items[i]
		if item.Embed != nil && item.Embed.Name == name {
			if len(path) == 1 {
				return item.Embed, nil
			}
			return findEmbed(item.Embed.Select, path[1:])
		}
	}
	return nil, domain.NewValidationError(domain.CodeParseError,
		"filter/order references embed \""+name+"\" not present in select")
}

// parseRangeHeader parses a `Range: 0-24` style header into limit/offset.
func parseRangeHeader(raw string) (limit, offset int64, ok bool) {
	if raw == "" {
		return 0, 0, false
	}
	parts := strings.SplitN(raw, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	start, err1 := strconv.ParseInt(parts[0], 10, 64)
	end, err2 := strconv.ParseInt(parts[1], 10, 64)
	if err1 != nil || err2 != nil || end < start {
		return 0, 0, false
	}
	return end - start + 1, start, true
}
