package schema

import (
	"fmt"
	"strings"

	"github.com/rlch/entcheck/analysis"
)

func init() {
	Register(Postgres{}, "postgresql", "pg")
}

// Postgres renders PostgreSQL DDL. Foreign keys are added after every
// table exists so tables can be created in name order.
type Postgres struct{}

// Name implements Dialect.
func (Postgres) Name() string { return "postgres" }

// ColumnType implements Dialect.
func (Postgres) ColumnType(c analysis.Class) string {
	switch c := c.(type) {
	case analysis.Scalar:
		switch c.Kind {
		case analysis.KindInt:
			return "bigint"
		case analysis.KindString:
			return "text"
		case analysis.KindBoolean:
			return "boolean"
		case analysis.KindDecimal:
			return "numeric"
		case analysis.KindFloat:
			return "double precision"
		case analysis.KindBytes:
			return "bytea"
		}
	case analysis.Temporal:
		switch c.Kind {
		case analysis.TemporalDate:
			return "date"
		case analysis.TemporalTimeOfDay:
			return "time"
		case analysis.TemporalUtc:
			return "timestamp with time zone"
		case analysis.TemporalCivil:
			return "timestamp"
		}
	}

	return "text"
}

// Render implements Dialect.
func (Postgres) Render(tables []*Table) string {
	var b strings.Builder

	for i, t := range tables {
		if i > 0 {
			b.WriteString("\n")
		}

		var lines []string

		for _, c := range t.Columns {
			lines = append(lines, postgresColumn(c))
		}

		if len(t.PrimaryKey) > 0 {
			lines = append(lines, fmt.Sprintf("primary key (%s)", quoteAll(t.PrimaryKey)))
		}

		for _, u := range t.Unique {
			lines = append(lines, fmt.Sprintf("unique (%s)", quoteAll(u)))
		}

		fmt.Fprintf(&b, "create table if not exists %s (\n  %s\n);\n", quote(t.Name), strings.Join(lines, ",\n  "))
	}

	for _, t := range tables {
		for _, fk := range t.ForeignKeys {
			fmt.Fprintf(&b, "\nalter table %s add constraint %s %s;\n", quote(t.Name), quote(fk.Name), foreignKeyClause(fk))
		}
	}

	return b.String()
}

func postgresColumn(c Column) string {
	line := quote(c.Name) + " " + c.Type

	switch {
	case c.AutoIncrement && c.Start != nil:
		line += fmt.Sprintf(" generated by default as identity (start with %d)", *c.Start)
	case c.AutoIncrement:
		line += " generated by default as identity"
	case c.NotNull:
		line += " not null"
	}

	return line
}
