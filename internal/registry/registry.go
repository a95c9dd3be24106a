// Package registry holds the static set of synchronized tables.
//
// Order matters: trade_cal is first because every calendar-driven table needs
// a current calendar before its own run, and stock_basic is second because
// the minute-bar run draws its security universe from it.
package registry

import "github.com/rickgao/marketsync/internal/model"

// MinuteTable is the sharded intraday table's name.
const MinuteTable = "minute_5m"

var tables = []model.TableSpec{
	{
		Name:         "trade_cal",
		Columns:      []string{"exchange", "cal_date", "is_open", "pretrade_date"},
		PrimaryKeys:  []string{"exchange", "cal_date"},
		CursorColumn: "cal_date",
		Exchange:     "SSE",
		Conversions: []model.Conversion{
			{Column: "cal_date", Kind: model.ConvDate},
			{Column: "pretrade_date", Kind: model.ConvDate},
		},
	},
	{
		Name: "stock_basic",
		Columns: []string{
			"ts_code", "symbol", "name", "area", "industry", "market",
			"list_status", "list_date", "delist_date",
		},
		PrimaryKeys: []string{"ts_code"},
		SecurityCol: "ts_code",
		Filters:     map[string]string{"list_status": "L"},
		Conversions: []model.Conversion{
			{Column: "list_date", Kind: model.ConvDate},
			{Column: "delist_date", Kind: model.ConvDate},
		},
	},
	{
		Name: "daily_raw",
		Columns: []string{
			"ts_code", "trade_date", "open", "high", "low", "close", "pre_close",
			"pct_chg", "amount", "vol_share", "turnover_rate", "pe", "pb",
			"total_mv", "circ_mv",
		},
		PrimaryKeys:  []string{"ts_code", "trade_date"},
		CursorColumn: "trade_date",
		SecurityCol:  "ts_code",
		TimeField:    "trade_date",
		TimeKind:     model.KindDate,
		Exchange:     "SSE",
		KeepOpenDays: 500,
		PerDay:       true,
		Conversions: []model.Conversion{
			{Column: "trade_date", Kind: model.ConvDate},
			// thousand CNY -> CNY
			{Column: "amount", Kind: model.ConvScale, Factor: 1000},
			// lots -> shares
			{Column: "vol", Kind: model.ConvScale, Factor: 100, Rename: "vol_share"},
		},
	},
	{
		Name:         "adj_factor",
		Columns:      []string{"ts_code", "trade_date", "adj_factor"},
		PrimaryKeys:  []string{"ts_code", "trade_date"},
		CursorColumn: "trade_date",
		SecurityCol:  "ts_code",
		TimeField:    "trade_date",
		TimeKind:     model.KindDate,
		Exchange:     "SSE",
		KeepOpenDays: 500,
		PerDay:       true,
		Conversions: []model.Conversion{
			{Column: "trade_date", Kind: model.ConvDate},
		},
	},
	{
		Name: "index_daily",
		Columns: []string{
			"ts_code", "trade_date", "open", "high", "low", "close",
			"pct_chg", "amount", "vol_share",
		},
		PrimaryKeys:  []string{"ts_code", "trade_date"},
		CursorColumn: "trade_date",
		SecurityCol:  "ts_code",
		TimeField:    "trade_date",
		TimeKind:     model.KindDate,
		Exchange:     "SSE",
		KeepOpenDays: 500,
		Filters: map[string]string{
			"ts_code": "000001.SH,000300.SH,399001.SZ,399006.SZ",
		},
		Conversions: []model.Conversion{
			{Column: "trade_date", Kind: model.ConvDate},
			{Column: "vol", Kind: model.ConvScale, Factor: 100, Rename: "vol_share"},
		},
	},
	{
		Name: "moneyflow_ind",
		Columns: []string{
			"ts_code", "trade_date", "buy_sm_amount", "sell_sm_amount",
			"buy_md_amount", "sell_md_amount", "buy_lg_amount", "sell_lg_amount",
			"buy_elg_amount", "sell_elg_amount", "net_mf_amount",
		},
		PrimaryKeys:  []string{"ts_code", "trade_date"},
		CursorColumn: "trade_date",
		SecurityCol:  "ts_code",
		TimeField:    "trade_date",
		TimeKind:     model.KindDate,
		Exchange:     "SSE",
		KeepOpenDays: 500,
		PerDay:       true,
		Conversions: []model.Conversion{
			{Column: "trade_date", Kind: model.ConvDate},
		},
	},
	{
		Name: "moneyflow_sector",
		Columns: []string{
			"ts_code", "trade_date", "content_type", "pct_change", "close",
			"net_amount", "net_amount_rate", "buy_elg_amount", "buy_lg_amount",
			"buy_md_amount", "buy_sm_amount",
		},
		PrimaryKeys:  []string{"ts_code", "trade_date", "content_type"},
		CursorColumn: "trade_date",
		SecurityCol:  "ts_code",
		TimeField:    "trade_date",
		TimeKind:     model.KindDate,
		Exchange:     "SSE",
		KeepOpenDays: 500,
		PerDay:       true,
		Conversions: []model.Conversion{
			{Column: "trade_date", Kind: model.ConvDate},
		},
	},
	{
		Name: "moneyflow_mkt",
		Columns: []string{
			"trade_date", "close_sh", "pct_change_sh", "close_sz", "pct_change_sz",
			"net_amount", "net_amount_rate", "buy_elg_amount", "buy_lg_amount",
			"buy_md_amount", "buy_sm_amount",
		},
		PrimaryKeys:  []string{"trade_date"},
		CursorColumn: "trade_date",
		TimeField:    "trade_date",
		TimeKind:     model.KindDate,
		Exchange:     "SSE",
		KeepOpenDays: 500,
		PerDay:       true,
		Conversions: []model.Conversion{
			{Column: "trade_date", Kind: model.ConvDate},
		},
	},
	{
		Name: "moneyflow_hsgt",
		Columns: []string{
			"trade_date", "ggt_ss", "ggt_sz", "hgt", "sgt",
			"north_money", "south_money",
		},
		PrimaryKeys:  []string{"trade_date"},
		CursorColumn: "trade_date",
		TimeField:    "trade_date",
		TimeKind:     model.KindDate,
		Exchange:     "SSE",
		KeepOpenDays: 500,
		PerDay:       true,
		Conversions: []model.Conversion{
			{Column: "trade_date", Kind: model.ConvDate},
			// Returned as strings in some provider environments.
			{Column: "ggt_ss", Kind: model.ConvDecimal},
			{Column: "ggt_sz", Kind: model.ConvDecimal},
			{Column: "hgt", Kind: model.ConvDecimal},
			{Column: "sgt", Kind: model.ConvDecimal},
			{Column: "north_money", Kind: model.ConvDecimal},
			{Column: "south_money", Kind: model.ConvDecimal},
		},
	},
	{
		Name: "limit_list_d",
		Columns: []string{
			"ts_code", "trade_date", "limit_type", "close", "pct_chg",
			"amount", "limit_times",
		},
		PrimaryKeys:  []string{"ts_code", "trade_date", "limit_type"},
		CursorColumn: "trade_date",
		SecurityCol:  "ts_code",
		TimeField:    "trade_date",
		TimeKind:     model.KindDate,
		Exchange:     "SSE",
		KeepOpenDays: 500,
		PerDay:       true,
		Conversions: []model.Conversion{
			{Column: "trade_date", Kind: model.ConvDate},
			{Column: "amount", Kind: model.ConvScale, Factor: 1000},
		},
	},
	{
		Name:         "suspend_d",
		Columns:      []string{"ts_code", "trade_date", "suspend_type", "suspend_timing"},
		PrimaryKeys:  []string{"ts_code", "trade_date"},
		CursorColumn: "trade_date",
		SecurityCol:  "ts_code",
		TimeField:    "trade_date",
		TimeKind:     model.KindDate,
		Exchange:     "SSE",
		KeepOpenDays: 500,
		PerDay:       true,
		Conversions: []model.Conversion{
			{Column: "trade_date", Kind: model.ConvDate},
		},
	},
	{
		Name: "dividend",
		Columns: []string{
			"ts_code", "end_date", "ann_date", "div_proc", "stk_div",
			"cash_div", "record_date", "ex_date", "pay_date",
		},
		// record_date/ex_date can be null for unimplemented proposals;
		// keep nullable fields out of the identity key.
		PrimaryKeys:  []string{"ts_code", "ann_date", "end_date"},
		CursorColumn: "ann_date",
		SecurityCol:  "ts_code",
		TimeField:    "ann_date",
		TimeKind:     model.KindDate,
		Exchange:     "SSE",
		KeepOpenDays: 500,
		Conversions: []model.Conversion{
			{Column: "end_date", Kind: model.ConvDate},
			{Column: "ann_date", Kind: model.ConvDate},
			{Column: "record_date", Kind: model.ConvDate},
			{Column: "ex_date", Kind: model.ConvDate},
			{Column: "pay_date", Kind: model.ConvDate},
		},
	},
	{
		Name: MinuteTable,
		Columns: []string{
			"ts_code", "trade_time", "open", "high", "low", "close",
			"amount", "vol_share",
		},
		PrimaryKeys:  []string{"ts_code", "trade_time"},
		CursorColumn: "trade_date",
		SecurityCol:  "ts_code",
		TimeField:    "trade_time",
		TimeKind:     model.KindTimestamp,
		Exchange:     "SSE",
		KeepOpenDays: 250,
		PerDay:       true,
		PerCode:      true,
		Sharded:      true,
		Conversions: []model.Conversion{
			{Column: "trade_time", Kind: model.ConvTimestamp},
			{Column: "volume", Kind: model.ConvScale, Factor: 100, Rename: "vol_share"},
		},
	},
}

// All returns every table spec in sync order.
func All() []model.TableSpec {
	out := make([]model.TableSpec, len(tables))
	copy(out, tables)
	return out
}

// Names returns the table names in sync order.
func Names() []string {
	out := make([]string, len(tables))
	for i, t := range tables {
		out[i] = t.Name
	}
	return out
}

// Lookup returns the spec for a table name.
func Lookup(name string) (model.TableSpec, bool) {
	for _, t := range tables {
		if t.Name == name {
			return t, true
		}
	}
	return model.TableSpec{}, false
}

// MaxKeepOpenDays returns the largest retention window across all tables.
// The trade_cal run must cover at least this many open days of history or
// retention cutoffs become uncomputable.
func MaxKeepOpenDays() int {
	max := 0
	for _, t := range tables {
		if t.KeepOpenDays > max {
			max = t.KeepOpenDays
		}
	}
	return max
}
