// Package normalize converts raw provider rows into persisted MarketRows.
//
// Conversions are table-driven (see the registry): compact provider date
// strings become real dates, lot-denominated volumes become share counts, and
// thousand-CNY amounts become CNY. Scaling runs on decimals so repeated
// re-fetch+rewrite cycles cannot drift values through float rounding.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/marketsync/internal/model"
)

// Row normalizes one raw provider record against a table spec. The returned
// row holds only columns the spec persists. An error means the record is
// unusable and must be dropped with a logged reason; it is never fatal to
// the batch.
func Row(spec model.TableSpec, raw map[string]any) (model.MarketRow, error) {
	values := make(map[string]any, len(spec.Columns))
	for k, v := range raw {
		values[k] = v
	}

	for _, conv := range spec.Conversions {
		v, ok := values[conv.Column]
		if !ok || v == nil {
			continue
		}
		converted, err := apply(conv, v)
		if err != nil {
			return model.MarketRow{}, fmt.Errorf("column %s: %w", conv.Column, err)
		}
		if conv.Kind == model.ConvScale && conv.Rename != "" {
			delete(values, conv.Column)
			values[conv.Rename] = converted
		} else {
			values[conv.Column] = converted
		}
	}

	out := make(map[string]any, len(spec.Columns))
	for _, col := range spec.Columns {
		if v, ok := values[col]; ok {
			out[col] = v
		}
	}

	for _, pk := range spec.PrimaryKeys {
		if v, ok := out[pk]; !ok || v == nil {
			return model.MarketRow{}, fmt.Errorf("missing identity column %s", pk)
		}
	}

	row := model.MarketRow{Values: out}
	if spec.SecurityCol != "" {
		id, ok := out[spec.SecurityCol].(string)
		if !ok || id == "" {
			return model.MarketRow{}, fmt.Errorf("missing security identifier %s", spec.SecurityCol)
		}
		row.SecurityID = id
	}
	return row, nil
}

func apply(conv model.Conversion, v any) (any, error) {
	switch conv.Kind {
	case model.ConvDate:
		return parseCompactDate(v)
	case model.ConvTimestamp:
		return parseCompactTimestamp(v)
	case model.ConvDecimal:
		return toDecimal(v)
	case model.ConvScale:
		d, err := toDecimal(v)
		if err != nil {
			return nil, err
		}
		return d.Mul(decimal.NewFromInt(conv.Factor)), nil
	default:
		return nil, fmt.Errorf("unknown conversion kind %d", conv.Kind)
	}
}

// parseCompactDate accepts yyyymmdd (string or stray float) and ISO dates.
func parseCompactDate(v any) (time.Time, error) {
	s, err := compactString(v)
	if err != nil {
		return time.Time{}, err
	}
	if strings.Contains(s, "-") {
		return time.ParseInLocation(time.DateOnly, s, time.UTC)
	}
	if len(s) < 8 {
		s = strings.Repeat("0", 8-len(s)) + s
	}
	return time.ParseInLocation("20060102", s, time.UTC)
}

// parseCompactTimestamp accepts yyyymmddhhmmss, tolerating a millisecond
// suffix like "20240315093000.000".
func parseCompactTimestamp(v any) (time.Time, error) {
	s, err := compactString(v)
	if err != nil {
		return time.Time{}, err
	}
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	if len(s) < 14 {
		s = strings.Repeat("0", 14-len(s)) + s
	}
	return time.ParseInLocation("20060102150405", s, time.UTC)
}

func compactString(v any) (string, error) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		// Some feeds stringify numerics as floats ("20240315.0").
		s = strings.TrimSuffix(s, ".0")
		if s == "" {
			return "", fmt.Errorf("empty value")
		}
		return s, nil
	case float64:
		return strconv.FormatInt(int64(t), 10), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	default:
		return "", fmt.Errorf("cannot interpret %T as date/time", v)
	}
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t), nil
	case int64:
		return decimal.NewFromInt(t), nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return decimal.Decimal{}, fmt.Errorf("empty numeric string")
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("parse numeric %q: %w", s, err)
		}
		return d, nil
	case decimal.Decimal:
		return t, nil
	default:
		return decimal.Decimal{}, fmt.Errorf("cannot interpret %T as numeric", v)
	}
}
