package warehouse

import (
	"fmt"
	"strings"

	"github.com/ignite/ga4-loader/internal/report"
)

// buildCreateTable renders the CREATE TABLE IF NOT EXISTS statement for a
// table spec in the given dialect.
func buildCreateTable(d Dialect, dataset string, spec report.TableSpec) string {
	cols := make([]string, 0, len(spec.Columns))
	for _, c := range spec.Columns {
		col := quoteIdent(c.Name) + " " + d.ColumnType(c.Type)
		if c.Required {
			col += " NOT NULL"
		}
		cols = append(cols, col)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)%s",
		qualify(dataset, spec.Name), strings.Join(cols, ", "), d.TableSuffix(spec))
}

// buildInsert renders a multi-row INSERT for rowCount rows of the given
// columns, with dialect placeholders numbered left-to-right, row-major.
func buildInsert(d Dialect, dataset, table string, columns []report.ColumnSpec, rowCount int) string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = quoteIdent(c.Name)
	}

	var sb strings.Builder
	n := 1
	for r := 0; r < rowCount; r++ {
		if r > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for i := range columns {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(d.Placeholder(n))
			n++
		}
		sb.WriteString(")")
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		qualify(dataset, table), strings.Join(names, ", "), sb.String())
}

// buildDeletePartition renders the day-partition delete.
func buildDeletePartition(d Dialect, dataset, table string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		qualify(dataset, table), quoteIdent(report.ColumnDate), d.Placeholder(1))
}

// rowArgs flattens one row into insert arguments in column order. Fields the
// row does not carry bind as NULL.
func rowArgs(columns []report.ColumnSpec, row report.Row) []any {
	args := make([]any, len(columns))
	for i, c := range columns {
		if v, ok := row.Get(c.Name); ok {
			args[i] = v
		}
	}
	return args
}
