package morph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractArray(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		count int
	}{
		{"plain", `[{"word":"a"},{"word":"b"}]`, 2},
		{"fenced", "```json\n[{\"word\":\"a\"},]\n```", 1},
		{"preamble", "Here is the analysis:\n[\n  {\"word\": \"a\"},\n  {\"word\": \"b\"},\n]\nDone.", 2},
		{"single object", `{"word":"a"}`, 1},
		{"empty array", "[]", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, fail := ExtractArray(tt.text, []string{"a"})
			require.Nil(t, fail)
			assert.Len(t, items, tt.count)
		})
	}
}

func TestExtractArray_NoArray(t *testing.T) {
	items, fail := ExtractArray("I cannot help with that.", []string{"alma", "armud"})
	assert.Nil(t, items)
	require.NotNil(t, fail)
	assert.Equal(t, "No JSON array in LLM response", fail.Error)
	require.NotNil(t, fail.LLMOutput)
	assert.Equal(t, "I cannot help with that.", *fail.LLMOutput)
	assert.Equal(t, []string{"alma", "armud"}, fail.InputWords)
}

func TestExtractArray_BrokenJSON(t *testing.T) {
	items, fail := ExtractArray(`[{"word": "a", "pos": }]`, []string{"a"})
	assert.Nil(t, items)
	require.NotNil(t, fail)
	assert.True(t, strings.HasPrefix(fail.Error, "JSON parsing failed: "), fail.Error)
	require.NotNil(t, fail.LLMOutput)
	assert.Equal(t, `[{"word": "a", "pos": }]`, *fail.LLMOutput)
}

func TestRemoveTrailingCommas(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`[1,2,]`, `[1,2]`},
		{`{"a":1 ,  }`, `{"a":1   }`},
		{"[\n {\"a\":1},\n]", "[\n {\"a\":1}\n]"},
		{`{"a": "x,]", "b": [1,2,],}`, `{"a": "x,]", "b": [1,2]}`},
		{`{"a": "q\",}"}`, `{"a": "q\",}"}`},
		{`[1, 2]`, `[1, 2]`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RemoveTrailingCommas(tt.in), tt.in)
	}
}
