package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunStatisticsStartsAtZero(t *testing.T) {
	stats := NewRunStatistics()

	assert.Zero(t, stats.Processed)
	assert.Zero(t, stats.Succeeded)
	assert.Zero(t, stats.Skipped)
	assert.Zero(t, stats.Errors)
	assert.NotNil(t, stats.Categories)
	assert.NotNil(t, stats.SkipReasons)
	assert.False(t, stats.Finalized())
}

func TestIncrementCategoryCreatesOnFirstTouch(t *testing.T) {
	stats := NewRunStatistics()

	stats.IncrementCategory("iOS")
	stats.IncrementCategory("iOS")
	stats.IncrementCategory("Android")

	assert.Equal(t, 2, stats.Categories["iOS"])
	assert.Equal(t, 1, stats.Categories["Android"])
}

func TestMarkSkippedCountsBothWays(t *testing.T) {
	stats := NewRunStatistics()

	stats.MarkSkipped("no_mail_address")
	stats.MarkSkipped("no_mail_address")
	stats.MarkSkipped("unmapped_department")

	assert.Equal(t, 3, stats.Skipped)
	assert.Equal(t, 2, stats.SkipReasons["no_mail_address"])
	assert.Equal(t, 1, stats.SkipReasons["unmapped_department"])
}

func TestFinalizeFreezesTheRecord(t *testing.T) {
	stats := NewRunStatistics()
	stats.IncrementCategory("Windows")

	stats.Finalize()
	require.True(t, stats.Finalized())
	duration := stats.Duration

	stats.IncrementCategory("Windows")
	stats.MarkSkipped("late")
	stats.Finalize()

	assert.Equal(t, 1, stats.Categories["Windows"])
	assert.Zero(t, stats.Skipped)
	assert.Equal(t, duration, stats.Duration)
}

func TestSummaryFlattensEverything(t *testing.T) {
	stats := NewRunStatistics()
	stats.Processed = 12
	stats.Succeeded = 9
	stats.Errors = 1
	stats.MarkSkipped("stale")
	stats.MarkSkipped("stale")
	stats.IncrementCategory("Windows")
	stats.IncrementCategory("macOS")
	stats.Finalize()

	summary := stats.Summary()

	assert.Equal(t, 12, summary["processed"])
	assert.Equal(t, 9, summary["succeeded"])
	assert.Equal(t, 2, summary["skipped"])
	assert.Equal(t, 1, summary["errors"])
	assert.Equal(t, 2, summary["skipped_stale"])
	assert.Equal(t, 1, summary["Windows"])
	assert.Equal(t, 1, summary["macOS"])
	assert.Contains(t, summary, "duration_seconds")
}
