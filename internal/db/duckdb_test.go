package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, "it''s", QuoteLiteral("it's"))
	assert.Equal(t, "plain", QuoteLiteral("plain"))
}

func TestReadJSONLinesQuotesGlob(t *testing.T) {
	expr := ReadJSONLines("/data/O'Brien/*.jsonl")
	assert.Contains(t, expr, "read_json('/data/O''Brien/*.jsonl'")
	assert.Contains(t, expr, "format = 'newline_delimited'")
	assert.Contains(t, expr, "filename = true")
}
