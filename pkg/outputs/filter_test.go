package outputs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type filterRow struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestApplyFilterSelectsRows(t *testing.T) {
	rows := []filterRow{
		{Name: "alpha", Count: 1},
		{Name: "beta", Count: 5},
		{Name: "gamma", Count: 9},
	}

	out, err := ApplyFilter(rows, `[.[] | select(.count > 3)]`)
	require.NoError(t, err)

	filtered, ok := out.([]any)
	require.True(t, ok)
	require.Len(t, filtered, 2)

	first := filtered[0].(map[string]any)
	assert.Equal(t, "beta", first["name"])
}

func TestApplyFilterProjection(t *testing.T) {
	rows := []filterRow{{Name: "alpha", Count: 1}}

	out, err := ApplyFilter(rows, `.[0].name`)
	require.NoError(t, err)
	assert.Equal(t, "alpha", out)
}

func TestApplyFilterMultipleOutputs(t *testing.T) {
	rows := []filterRow{
		{Name: "alpha", Count: 1},
		{Name: "beta", Count: 5},
	}

	out, err := ApplyFilter(rows, `.[].name`)
	require.NoError(t, err)

	names, ok := out.([]any)
	require.True(t, ok)
	assert.Equal(t, []any{"alpha", "beta"}, names)
}

func TestApplyFilterParseError(t *testing.T) {
	_, err := ApplyFilter([]filterRow{}, `.[ |`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse filter expression")
}

func TestApplyFilterEvaluationError(t *testing.T) {
	_, err := ApplyFilter([]filterRow{{Name: "alpha"}}, `.foo`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filter evaluation failed")
}
