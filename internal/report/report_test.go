package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/SoarinFerret/SessionTally/internal/session"
)

var sample = session.Report{
	"CHARLIE": {Sessions: 3, TotalSeconds: 37, Matched: 1, DanglingStarts: 1, DanglingEnds: 1},
	"ALICE99": {Sessions: 4, TotalSeconds: 240.9, Matched: 3, DanglingEnds: 1},
	"bob":     {Sessions: 1, TotalSeconds: 0, DanglingStarts: 1},
}

func TestRenderText_SortedAndTruncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sample, FormatText))
	assert.Equal(t, "ALICE99 4 240\nCHARLIE 3 37\nbob 1 0\n", buf.String())
}

func TestRenderText_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, session.Report{}, ""))
	assert.Empty(t, buf.String())
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sample, FormatJSON))

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "ALICE99", rows[0]["user"])
	assert.Equal(t, float64(4), rows[0]["sessions"])
	assert.Equal(t, 240.9, rows[0]["total_seconds"])
	assert.NotContains(t, rows[2], "matched")
}

func TestRenderYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sample, FormatYAML))

	var rows []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "CHARLIE", rows[1]["user"])
	assert.Equal(t, 3, rows[1]["sessions"])
	assert.Equal(t, 1, rows[1]["dangling_ends"])
}

func TestRender_UnknownFormat(t *testing.T) {
	err := Render(&bytes.Buffer{}, sample, "xml")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
