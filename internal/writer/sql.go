package writer

import (
	"fmt"
	"strings"

	"github.com/rickgao/marketsync/internal/model"
)

// Mode selects the conflict policy for generated statements.
type Mode int

const (
	// ModeUpsert overwrites existing rows column by column.
	ModeUpsert Mode = iota
	// ModeInsertIgnore keeps existing rows untouched on key conflict.
	ModeInsertIgnore
)

func (m Mode) String() string {
	switch m {
	case ModeUpsert:
		return "upsert"
	case ModeInsertIgnore:
		return "insert-ignore"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode maps a CLI flag value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "upsert":
		return ModeUpsert, nil
	case "insert-ignore", "ignore":
		return ModeInsertIgnore, nil
	default:
		return 0, fmt.Errorf("unknown write mode %q", s)
	}
}

// buildSQL generates the INSERT statement for one row of the given table.
// Column order matches spec.Columns; rowArgs must use the same order.
func buildSQL(spec model.TableSpec, mode Mode) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(spec.Name)
	b.WriteString(" (")
	b.WriteString(strings.Join(spec.Columns, ", "))
	b.WriteString(") VALUES (")
	for i := range spec.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "$%d", i+1)
	}
	b.WriteString(")")

	nonKeys := spec.NonKeyColumns()
	if mode == ModeInsertIgnore || len(nonKeys) == 0 {
		b.WriteString(" ON CONFLICT (")
		b.WriteString(strings.Join(spec.PrimaryKeys, ", "))
		b.WriteString(") DO NOTHING")
		return b.String()
	}

	b.WriteString(" ON CONFLICT (")
	b.WriteString(strings.Join(spec.PrimaryKeys, ", "))
	b.WriteString(") DO UPDATE SET ")
	for i, col := range nonKeys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(col)
		b.WriteString(" = EXCLUDED.")
		b.WriteString(col)
	}
	return b.String()
}

// rowArgs extracts bind arguments in spec.Columns order. Columns absent from
// the row bind as NULL.
func rowArgs(spec model.TableSpec, row model.MarketRow) []any {
	args := make([]any, len(spec.Columns))
	for i, col := range spec.Columns {
		args[i] = row.Values[col]
	}
	return args
}
