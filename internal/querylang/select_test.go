package querylang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelectEmptyDefaultsToStar(t *testing.T) {
	items, err := ParseSelect("")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "*", items[0].Column)
}

func TestParseSelectPlainColumns(t *testing.T) {
	items, err := ParseSelect("name,section_id")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "name", items[0].Column)
	assert.Equal(t, "section_id", items[1].Column)
}

func TestParseSelectAlias(t *testing.T) {
	items, err := ParseSelect("instrument_name:name")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "instrument_name", items[0].Alias)
	assert.Equal(t, "name", items[0].Column)
}

func TestParseSelectEmbed(t *testing.T) {
	items, err := ParseSelect("name,orchestral_sections(*)")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.NotNil(t, items[1].Embed)
	assert.Equal(t, "orchestral_sections", items[1].Embed.Name)
	require.Len(t, items[1].Embed.Select, 1)
	assert.Equal(t, "*", items[1].Embed.Select[0].Column)
}

func TestParseSelectEmbedWithFKHint(t *testing.T) {
	items, err := ParseSelect("orchestral_sections!fk_instruments_section(name)")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Embed)
	assert.Equal(t, "fk_instruments_section", items[0].Embed.FKHint)
}

func TestParseSelectNestedEmbed(t *testing.T) {
	items, err := ParseSelect("instruments(name,orchestral_sections(name))")
	require.NoError(t, err)
	require.Len(t, items, 1)
	embed := items[0].Embed
	require.NotNil(t, embed)
	require.Len(t, embed.Select, 2)
	require.NotNil(t, embed.Select[1].Embed)
	assert.Equal(t, "orchestral_sections", embed.Select[1].Embed.Name)
}

func TestParseSelectUnclosedEmbedErrors(t *testing.T) {
	_, err := ParseSelect("orchestral_sections(name")
	require.Error(t, err)
}

func TestParseSelectTrailingGarbageErrors(t *testing.T) {
	_, err := ParseSelect("name)")
	require.Error(t, err)
}

func TestParseSelectEmptyAliasTargetErrors(t *testing.T) {
	_, err := ParseSelect("alias:")
	require.Error(t, err)
}
