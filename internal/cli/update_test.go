package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/marketsync/internal/registry"
	"github.com/rickgao/marketsync/internal/writer"
)

func TestSelectTables_All(t *testing.T) {
	specs, err := selectTables("all")
	require.NoError(t, err)
	assert.Len(t, specs, len(registry.Names()))
	assert.Equal(t, "trade_cal", specs[0].Name)
}

func TestSelectTables_PreservesRegistryOrder(t *testing.T) {
	// Flag order must not override sync order.
	specs, err := selectTables("daily_raw,trade_cal")
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "trade_cal", specs[0].Name)
	assert.Equal(t, "daily_raw", specs[1].Name)
}

func TestSelectTables_Unknown(t *testing.T) {
	_, err := selectTables("daily_raw,nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestBuildRunOptions(t *testing.T) {
	opts := &UpdateOptions{
		Since:        "2024-01-02",
		Until:        "20240131",
		LookbackDays: 3,
		WriteMode:    "insert-ignore",
		NoDelete:     true,
	}
	runOpts, err := buildRunOptions(opts)
	require.NoError(t, err)
	assert.Equal(t, writer.ModeInsertIgnore, runOpts.Mode)
	assert.Equal(t, 3, runOpts.LookbackDays)
	assert.True(t, runOpts.NoDelete)
	require.NotNil(t, runOpts.Since)
	assert.Equal(t, "2024-01-02", runOpts.Since.Format("2006-01-02"))
	require.NotNil(t, runOpts.Until)
	assert.Equal(t, "2024-01-31", runOpts.Until.Format("2006-01-02"))
}

func TestBuildRunOptions_BadDate(t *testing.T) {
	opts := &UpdateOptions{Since: "last tuesday", WriteMode: "upsert"}
	_, err := buildRunOptions(opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--since")
}

func TestBuildRunOptions_BadMode(t *testing.T) {
	opts := &UpdateOptions{WriteMode: "replace"}
	_, err := buildRunOptions(opts)
	assert.Error(t, err)
}
