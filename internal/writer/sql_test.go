package writer

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/marketsync/internal/model"
)

var barSpec = model.TableSpec{
	Name:        "daily_raw",
	Columns:     []string{"ts_code", "trade_date", "close", "amount"},
	PrimaryKeys: []string{"ts_code", "trade_date"},
}

func TestBuildSQL_Upsert(t *testing.T) {
	sql := buildSQL(barSpec, ModeUpsert)
	assert.Equal(t,
		"INSERT INTO daily_raw (ts_code, trade_date, close, amount) VALUES ($1, $2, $3, $4)"+
			" ON CONFLICT (ts_code, trade_date) DO UPDATE SET close = EXCLUDED.close, amount = EXCLUDED.amount",
		sql)
}

func TestBuildSQL_InsertIgnore(t *testing.T) {
	sql := buildSQL(barSpec, ModeInsertIgnore)
	assert.Equal(t,
		"INSERT INTO daily_raw (ts_code, trade_date, close, amount) VALUES ($1, $2, $3, $4)"+
			" ON CONFLICT (ts_code, trade_date) DO NOTHING",
		sql)
}

func TestBuildSQL_AllKeyColumns(t *testing.T) {
	spec := model.TableSpec{
		Name:        "suspend_d",
		Columns:     []string{"ts_code", "trade_date"},
		PrimaryKeys: []string{"ts_code", "trade_date"},
	}
	// Nothing to update, so upsert degrades to DO NOTHING.
	sql := buildSQL(spec, ModeUpsert)
	assert.Contains(t, sql, "DO NOTHING")
	assert.NotContains(t, sql, "DO UPDATE")
}

func TestRowArgs(t *testing.T) {
	row := model.MarketRow{
		SecurityID: "000001.SZ",
		Values: map[string]any{
			"ts_code":    "000001.SZ",
			"trade_date": "2024-01-15",
			"close":      10.5,
		},
	}
	args := rowArgs(barSpec, row)
	require.Len(t, args, 4)
	assert.Equal(t, "000001.SZ", args[0])
	assert.Equal(t, "2024-01-15", args[1])
	assert.Equal(t, 10.5, args[2])
	assert.Nil(t, args[3], "missing column binds as NULL")
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("upsert")
	require.NoError(t, err)
	assert.Equal(t, ModeUpsert, m)

	m, err = ParseMode("insert-ignore")
	require.NoError(t, err)
	assert.Equal(t, ModeInsertIgnore, m)

	m, err = ParseMode("ignore")
	require.NoError(t, err)
	assert.Equal(t, ModeInsertIgnore, m)

	_, err = ParseMode("replace")
	assert.Error(t, err)
}

func TestIsRejection(t *testing.T) {
	assert.True(t, isRejection(&pgconn.PgError{Code: "23505"}), "unique violation")
	assert.True(t, isRejection(&pgconn.PgError{Code: "22003"}), "numeric out of range")
	assert.True(t, isRejection(&pgconn.PgError{Code: "42703"}), "undefined column")
	assert.False(t, isRejection(&pgconn.PgError{Code: "40001"}), "serialization failure is transient")
	assert.False(t, isRejection(&pgconn.PgError{Code: "57P01"}), "admin shutdown is transient")
	assert.False(t, isRejection(errors.New("connection reset")))
}
