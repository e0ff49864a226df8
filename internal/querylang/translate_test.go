package querylang

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litepg/litepg-core/internal/domain"
)

func TestTranslateSelectDefaults(t *testing.T) {
	pq, err := Translate(Request{
		HTTPMethod: "GET",
		Schema:     "public",
		Table:      "instruments",
		RawQuery:   url.Values{"select": {"name,orchestral_sections(*)"}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MethodSelect, pq.Method)
	assert.Equal(t, domain.ReturnMinimal, pq.PreferReturn)
	require.Len(t, pq.Select, 2)
}

func TestTranslateDeleteWithoutFilterIsRejected(t *testing.T) {
	_, err := Translate(Request{
		HTTPMethod: "DELETE",
		Schema:     "public",
		Table:      "instruments",
		RawQuery:   url.Values{},
	})
	require.Error(t, err)
}

func TestTranslateDeleteWithFilterIsAccepted(t *testing.T) {
	pq, err := Translate(Request{
		HTTPMethod: "DELETE",
		Schema:     "public",
		Table:      "instruments",
		RawQuery:   url.Values{"id": {"eq.1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MethodDelete, pq.Method)
}

func TestTranslatePostWithoutResolutionIsInsert(t *testing.T) {
	pq, err := Translate(Request{
		HTTPMethod: "POST",
		Table:      "instruments",
		RawQuery:   url.Values{},
		Body:       []byte(`{"name":"oboe"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MethodInsert, pq.Method)
	require.Len(t, pq.Body, 1)
	assert.Equal(t, "oboe", pq.Body[0]["name"])
}

func TestTranslatePostWithResolutionIsUpsert(t *testing.T) {
	pq, err := Translate(Request{
		HTTPMethod: "POST",
		Table:      "instruments",
		RawQuery:   url.Values{"on_conflict": {"name"}},
		Prefer:     "resolution=merge-duplicates",
		Body:       []byte(`[{"name":"oboe"},{"name":"bassoon"}]`),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MethodUpsert, pq.Method)
	assert.Equal(t, []string{"name"}, pq.OnConflict)
	assert.Len(t, pq.Body, 2)
}

func TestTranslatePreferReturnRepresentation(t *testing.T) {
	pq, err := Translate(Request{
		HTTPMethod: "PATCH",
		Table:      "instruments",
		RawQuery:   url.Values{"id": {"eq.1"}},
		Prefer:     "return=representation",
		Body:       []byte(`{"name":"oboe"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ReturnRepresentation, pq.PreferReturn)
}

func TestTranslateCountPreference(t *testing.T) {
	pq, err := Translate(Request{
		HTTPMethod: "GET",
		Table:      "instruments",
		RawQuery:   url.Values{},
		Prefer:     "count=exact",
	})
	require.NoError(t, err)
	require.NotNil(t, pq.Count)
	assert.Equal(t, domain.CountExact, pq.Count.Mode)
}

func TestTranslatePartitionsEmbedFilterIntoEmbedNode(t *testing.T) {
	pq, err := Translate(Request{
		HTTPMethod: "GET",
		Table:      "instruments",
		RawQuery: url.Values{
			"select":                  {"name,orchestral_sections(name)"},
			"orchestral_sections.name": {"eq.percussion"},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, pq.Filters)
	require.Len(t, pq.Select, 2)
	embed := pq.Select[1].Embed
	require.NotNil(t, embed)
	require.Len(t, embed.Filters, 1)
	assert.Equal(t, "name", embed.Filters[0].Column)
	assert.Empty(t, embed.Filters[0].Path)
}

func TestTranslatePartitionsEmbedOrderIntoEmbedNode(t *testing.T) {
	pq, err := Translate(Request{
		HTTPMethod: "GET",
		Table:      "instruments",
		RawQuery: url.Values{
			"select": {"name,orchestral_sections(name)"},
			"order":  {"orchestral_sections.name.desc"},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, pq.Order)
	embed := pq.Select[1].Embed
	require.NotNil(t, embed)
	require.Len(t, embed.Order, 1)
	assert.Equal(t, "name", embed.Order[0].Column)
	assert.False(t, embed.Order[0].Ascending)
}

func TestTranslateEmbedFilterForUnknownEmbedErrors(t *testing.T) {
	_, err := Translate(Request{
		HTTPMethod: "GET",
		Table:      "instruments",
		RawQuery: url.Values{
			"select":       {"name"},
			"bogus.column": {"eq.1"},
		},
	})
	require.Error(t, err)
}

func TestTranslateRangeHeaderSetsLimitOffset(t *testing.T) {
	pq, err := Translate(Request{
		HTTPMethod:  "GET",
		Table:       "instruments",
		RawQuery:    url.Values{},
		RangeHeader: "0-24",
	})
	require.NoError(t, err)
	require.NotNil(t, pq.Limit)
	require.NotNil(t, pq.Offset)
	assert.Equal(t, int64(25), *pq.Limit)
	assert.Equal(t, int64(0), *pq.Offset)
}

func TestTranslateExplicitLimitOffsetOverrideRangeHeader(t *testing.T) {
	pq, err := Translate(Request{
		HTTPMethod:  "GET",
		Table:       "instruments",
		RawQuery:    url.Values{"limit": {"5"}, "offset": {"10"}},
		RangeHeader: "0-24",
	})
	require.NoError(t, err)
	require.NotNil(t, pq.Limit)
	require.NotNil(t, pq.Offset)
	assert.Equal(t, int64(5), *pq.Limit)
	assert.Equal(t, int64(10), *pq.Offset)
}

func TestTranslateObjectAcceptForcesSingleRow(t *testing.T) {
	pq, err := Translate(Request{
		HTTPMethod:  "GET",
		Table:       "instruments",
		RawQuery:    url.Values{},
		AcceptValue: "application/vnd.pgrst.object+json",
	})
	require.NoError(t, err)
	assert.True(t, pq.ReturnSingle)
	assert.Equal(t, domain.AcceptObject, pq.Accept)
}

func TestTranslateCSVAccept(t *testing.T) {
	pq, err := Translate(Request{
		HTTPMethod:  "GET",
		Table:       "instruments",
		RawQuery:    url.Values{},
		AcceptValue: "text/csv",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AcceptCSV, pq.Accept)
}

func TestTranslateUnsupportedMethod(t *testing.T) {
	_, err := Translate(Request{
		HTTPMethod: "TRACE",
		Table:      "instruments",
		RawQuery:   url.Values{},
	})
	require.Error(t, err)
}

func TestTranslateRejectsMalformedBody(t *testing.T) {
	_, err := Translate(Request{
		HTTPMethod: "POST",
		Table:      "instruments",
		RawQuery:   url.Values{},
		Body:       []byte(`"just a string"`),
	})
	require.Error(t, err)
}

func TestTranslateRPC(t *testing.T) {
	pq, err := TranslateRPC("transpose", []byte(`{"semitones":3}`))
	require.NoError(t, err)
	assert.Equal(t, domain.MethodRPC, pq.Method)
	require.NotNil(t, pq.RPC)
	assert.Equal(t, "transpose", pq.RPC.Name)
	assert.Equal(t, float64(3), pq.RPC.Args["semitones"])
}

func TestTranslateRPCEmptyBody(t *testing.T) {
	pq, err := TranslateRPC("noop", nil)
	require.NoError(t, err)
	assert.Empty(t, pq.RPC.Args)
}
