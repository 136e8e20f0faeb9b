package schema

import (
	"fmt"
	"strings"

	"github.com/rlch/entcheck/analysis"
)

func init() {
	Register(SQLite{}, "sqlite3")
}

// SQLite renders SQLite DDL with foreign keys inline. Auto-increment is
// only expressible on a single-column integer primary key; start values
// are not supported and dropped.
type SQLite struct{}

// Name implements Dialect.
func (SQLite) Name() string { return "sqlite" }

// ColumnType implements Dialect.
func (SQLite) ColumnType(c analysis.Class) string {
	switch c := c.(type) {
	case analysis.Scalar:
		switch c.Kind {
		case analysis.KindInt, analysis.KindBoolean:
			return "integer"
		case analysis.KindDecimal:
			return "numeric"
		case analysis.KindFloat:
			return "real"
		case analysis.KindBytes:
			return "blob"
		}
	case analysis.Temporal:
		return "text"
	}

	return "text"
}

// Render implements Dialect.
func (SQLite) Render(tables []*Table) string {
	var b strings.Builder

	for i, t := range tables {
		if i > 0 {
			b.WriteString("\n")
		}

		rowid := ""
		if len(t.PrimaryKey) == 1 {
			for _, c := range t.Columns {
				if c.Name == t.PrimaryKey[0] && c.AutoIncrement && c.Type == "integer" {
					rowid = c.Name
				}
			}
		}

		var lines []string

		for _, c := range t.Columns {
			line := quote(c.Name) + " " + c.Type

			switch {
			case c.Name == rowid:
				line += " primary key autoincrement"
			case c.NotNull:
				line += " not null"
			}

			lines = append(lines, line)
		}

		if len(t.PrimaryKey) > 0 && rowid == "" {
			lines = append(lines, fmt.Sprintf("primary key (%s)", quoteAll(t.PrimaryKey)))
		}

		for _, u := range t.Unique {
			lines = append(lines, fmt.Sprintf("unique (%s)", quoteAll(u)))
		}

		for _, fk := range t.ForeignKeys {
			lines = append(lines, fmt.Sprintf("constraint %s %s", quote(fk.Name), foreignKeyClause(fk)))
		}

		fmt.Fprintf(&b, "create table if not exists %s (\n  %s\n);\n", quote(t.Name), strings.Join(lines, ",\n  "))
	}

	return b.String()
}
