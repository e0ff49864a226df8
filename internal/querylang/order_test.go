package querylang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderEmpty(t *testing.T) {
	terms, err := ParseOrder("")
	require.NoError(t, err)
	assert.Nil(t, terms)
}

func TestParseOrderDefaultAscending(t *testing.T) {
	terms, err := ParseOrder("name")
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.True(t, terms[0].Ascending)
	assert.Equal(t, "name", terms[0].Column)
	assert.Nil(t, terms[0].NullsFirst)
}

func TestParseOrderDescWithNullsFirst(t *testing.T) {
	terms, err := ParseOrder("name.desc.nullsfirst")
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.False(t, terms[0].Ascending)
	require.NotNil(t, terms[0].NullsFirst)
	assert.True(t, *terms[0].NullsFirst)
}

func TestParseOrderMultipleTerms(t *testing.T) {
	terms, err := ParseOrder("section_id.asc,name.desc")
	require.NoError(t, err)
	require.Len(t, terms, 2)
	assert.Equal(t, "section_id", terms[0].Column)
	assert.Equal(t, "name", terms[1].Column)
	assert.False(t, terms[1].Ascending)
}

func TestParseOrderDottedPath(t *testing.T) {
	terms, err := ParseOrder("orchestral_sections.name.asc")
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, []string{"orchestral_sections"}, terms[0].Path)
	assert.Equal(t, "name", terms[0].Column)
}
