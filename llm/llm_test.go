package llm

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONArray(t *testing.T) {
	text := "Here are the insights:\n[{\"title\": \"a\"}, {\"title\": \"b\"}]\nLet me know if you need more."
	payload := ExtractJSON(text)
	assert.Equal(t, `[{"title": "a"}, {"title": "b"}]`, payload)

	var parsed []map[string]string
	require.NoError(t, json.Unmarshal([]byte(payload), &parsed))
	assert.Len(t, parsed, 2)
}

func TestExtractJSONObject(t *testing.T) {
	text := `Sure! {"insights": [{"title": "a"}]} Hope that helps.`
	assert.Equal(t, `{"insights": [{"title": "a"}]}`, ExtractJSON(text))
}

func TestExtractJSONPrefersArray(t *testing.T) {
	text := `[1, 2, {"nested": true}]`
	assert.Equal(t, text, ExtractJSON(text))
}

func TestExtractJSONHandlesStrings(t *testing.T) {
	// braces and escapes inside string values must not confuse the
	// balance count
	text := `[{"title": "a ] tricky \" string }"}]`
	assert.Equal(t, text, ExtractJSON(text))
}

func TestExtractJSONNone(t *testing.T) {
	assert.Empty(t, ExtractJSON("no structured data here"))
	assert.Empty(t, ExtractJSON("unbalanced [1, 2"))
}

func TestNewDefaults(t *testing.T) {
	c := New(Config{})
	assert.Equal(t, DefaultModel, string(c.model))
	assert.Equal(t, 30*time.Second, c.timeout)

	c = New(Config{Model: "claude-haiku-4-5", Timeout: 5 * time.Second})
	assert.Equal(t, "claude-haiku-4-5", string(c.model))
	assert.Equal(t, 5*time.Second, c.timeout)
}
