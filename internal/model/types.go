package model

import "time"

// TimeKind distinguishes how a table keys its observations in time.
type TimeKind int

const (
	// KindDate marks tables keyed by trading date (one row per day).
	KindDate TimeKind = iota
	// KindTimestamp marks tables keyed by intraday timestamp.
	KindTimestamp
)

// ConvKind identifies a unit-normalization rule applied to one raw field.
type ConvKind int

const (
	// ConvDate parses a compact yyyymmdd string into a date.
	ConvDate ConvKind = iota
	// ConvTimestamp parses a compact yyyymmddhhmmss string into a timestamp.
	ConvTimestamp
	// ConvDecimal parses a string or float field into a decimal value.
	ConvDecimal
	// ConvScale multiplies a numeric field by a fixed factor, optionally
	// renaming the column (e.g. lot volume ×100 -> vol_share).
	ConvScale
)

// Conversion is one normalization rule for a raw provider field.
type Conversion struct {
	Column string
	Kind   ConvKind
	Factor int64  // ConvScale only
	Rename string // ConvScale only; empty = keep the column name
}

// TableSpec describes one synchronized table.
type TableSpec struct {
	Name         string
	Columns      []string // persisted column order
	PrimaryKeys  []string // identity key, subset of Columns
	CursorColumn string   // empty = table is not cursor-tracked
	SecurityCol  string   // partition-key column; empty for market aggregates

	// Retention policy. KeepOpenDays == 0 disables pruning.
	TimeField    string
	TimeKind     TimeKind
	Exchange     string
	KeepOpenDays int

	// Fetch strategy.
	PerDay   bool              // one provider call per open trading day
	PerCode  bool              // additionally chunk by security code (minute bars)
	Sharded  bool              // rows routed across shard targets
	Filters  map[string]string // static extra provider filters
	PageSize int               // provider paging; 0 = provider default

	Conversions []Conversion
}

// HasRetention reports whether the spec carries a retention policy.
func (s TableSpec) HasRetention() bool {
	return s.KeepOpenDays > 0 && s.TimeField != ""
}

// NonKeyColumns returns the columns outside the identity key, in column order.
func (s TableSpec) NonKeyColumns() []string {
	keys := make(map[string]bool, len(s.PrimaryKeys))
	for _, k := range s.PrimaryKeys {
		keys[k] = true
	}
	var out []string
	for _, c := range s.Columns {
		if !keys[c] {
			out = append(out, c)
		}
	}
	return out
}

// MarketRow is one normalized observation ready for persistence.
// Values holds only columns present in the owning TableSpec; missing columns
// are written as NULL.
type MarketRow struct {
	SecurityID string
	Values     map[string]any
}

// RunReport summarizes one table run for the operator.
type RunReport struct {
	RunID       string `json:"run_id"`
	Table       string `json:"table"`
	Start       string `json:"start"`
	End         string `json:"end"`
	RowsFetched int64  `json:"rows_fetched"`
	RowsWritten int64  `json:"rows_written"`
	RowsDeleted int64  `json:"rows_deleted"`
	CursorCol   string `json:"cursor_col,omitempty"`
	Cursor      string `json:"cursor_value,omitempty"`
	Cutoff      string `json:"retention_cutoff,omitempty"`
	Error       string `json:"error,omitempty"`
	Duration    string `json:"duration"`
}

// Succeeded reports whether the run completed without aborting.
func (r RunReport) Succeeded() bool { return r.Error == "" }

// Date truncates t to UTC midnight.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf drops the clock portion of t (in t's location) and returns the UTC date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a date as YYYY-MM-DD, the cursor serialization format.
func FormatDate(t time.Time) string { return t.Format(time.DateOnly) }

// ParseCursorDate parses a stored cursor value (YYYY-MM-DD or YYYYMMDD).
func ParseCursorDate(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(time.DateOnly, s, time.UTC); err == nil {
		return t, nil
	}
	return time.ParseInLocation("20060102", s, time.UTC)
}
