package pruner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rickgao/marketsync/internal/model"
)

func TestDeleteSQL(t *testing.T) {
	spec := model.TableSpec{
		Name:         "daily_raw",
		TimeField:    "trade_date",
		TimeKind:     model.KindDate,
		KeepOpenDays: 500,
	}
	assert.Equal(t,
		"DELETE FROM daily_raw WHERE ctid IN (SELECT ctid FROM daily_raw WHERE trade_date < $1 LIMIT 20000)",
		deleteSQL(spec, 20000))
}

func TestCutoffBound_Date(t *testing.T) {
	spec := model.TableSpec{TimeKind: model.KindDate}
	cutoff := model.Date(2024, time.March, 15)
	assert.Equal(t, "2024-03-15", cutoffBound(spec, cutoff))
}

func TestCutoffBound_Timestamp(t *testing.T) {
	// Intraday rows dated exactly on the cutoff day must survive, so the
	// bound is the day's midnight, not some later instant.
	spec := model.TableSpec{TimeKind: model.KindTimestamp}
	cutoff := time.Date(2024, time.March, 15, 14, 30, 0, 0, time.UTC)
	bound, ok := cutoffBound(spec, cutoff).(time.Time)
	assert.True(t, ok)
	assert.Equal(t, model.Date(2024, time.March, 15), bound)
	assert.Equal(t, 0, bound.Hour())
}

func TestPrune_NoRetention(t *testing.T) {
	p := New(nil, 0, nil)
	deleted, err := p.Prune(context.Background(), model.TableSpec{Name: "trade_cal"}, time.Now())
	assert.NoError(t, err)
	assert.Zero(t, deleted)
}
