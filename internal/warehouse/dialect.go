package warehouse

import (
	"fmt"
	"strings"

	"github.com/ignite/ga4-loader/internal/report"
)

// Dialect abstracts the SQL differences between the supported warehouses:
// driver name, placeholder style, type names, and partition-pruning DDL.
type Dialect interface {
	Name() string
	Driver() string
	// Placeholder renders the parameter marker for 1-based position n.
	Placeholder(n int) string
	// ColumnType maps a declared column type to the dialect's type name.
	ColumnType(t report.ColumnType) string
	// TableSuffix renders clauses appended to CREATE TABLE (clustering).
	TableSuffix(spec report.TableSpec) string
	// PostCreate returns statements run after CREATE TABLE (indexes).
	PostCreate(dataset string, spec report.TableSpec) []string
}

// Snowflake is the primary destination dialect.
type Snowflake struct{}

func (Snowflake) Name() string           { return "snowflake" }
func (Snowflake) Driver() string         { return "snowflake" }
func (Snowflake) Placeholder(int) string { return "?" }

func (Snowflake) ColumnType(t report.ColumnType) string {
	switch t {
	case report.TypeInteger:
		return "INTEGER"
	case report.TypeFloat:
		return "FLOAT"
	case report.TypeBoolean:
		return "BOOLEAN"
	case report.TypeDate:
		return "DATE"
	case report.TypeTimestamp:
		return "TIMESTAMP_NTZ"
	default:
		return "STRING"
	}
}

// TableSuffix clusters on the partition and property columns so day deletes
// and property scans prune micro-partitions.
func (Snowflake) TableSuffix(spec report.TableSpec) string {
	if spec.PartitionColumn == "" {
		return ""
	}
	cols := append([]string{spec.PartitionColumn}, spec.ClusterColumns...)
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	return " CLUSTER BY (" + strings.Join(quoted, ", ") + ")"
}

func (Snowflake) PostCreate(string, report.TableSpec) []string { return nil }

// Postgres is the secondary destination dialect, used for local and
// small-footprint deployments.
type Postgres struct{}

func (Postgres) Name() string   { return "postgres" }
func (Postgres) Driver() string { return "postgres" }

func (Postgres) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (Postgres) ColumnType(t report.ColumnType) string {
	switch t {
	case report.TypeInteger:
		return "BIGINT"
	case report.TypeFloat:
		return "DOUBLE PRECISION"
	case report.TypeBoolean:
		return "BOOLEAN"
	case report.TypeDate:
		return "DATE"
	case report.TypeTimestamp:
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}

func (Postgres) TableSuffix(report.TableSpec) string { return "" }

// PostCreate adds the composite index that stands in for clustering: day
// deletes and per-property scans hit (date, property_id).
func (Postgres) PostCreate(dataset string, spec report.TableSpec) []string {
	if spec.PartitionColumn == "" {
		return nil
	}
	cols := append([]string{spec.PartitionColumn}, spec.ClusterColumns...)
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	return []string{fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
		quoteIdent("idx_"+strings.ToLower(spec.Name)+"_partition"),
		qualify(dataset, spec.Name),
		strings.Join(quoted, ", "),
	)}
}

// DialectFor resolves a configured dialect name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "snowflake", "":
		return Snowflake{}, nil
	case "postgres", "postgresql":
		return Postgres{}, nil
	default:
		return nil, fmt.Errorf("unsupported warehouse dialect %q", name)
	}
}

// quoteIdent double-quotes an identifier. Quoting everywhere keeps the
// reserved-word date column and mixed-case table names consistent between
// DDL and DML.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// qualify renders dataset.table, both quoted. An empty dataset yields a bare
// table name (Snowflake sessions carry the schema in the DSN).
func qualify(dataset, table string) string {
	if dataset == "" {
		return quoteIdent(table)
	}
	return quoteIdent(dataset) + "." + quoteIdent(table)
}
