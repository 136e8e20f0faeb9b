// Package schema generates SQL DDL from the validated entity table.
package schema

import (
	"fmt"
	"slices"

	"github.com/iancoleman/strcase"

	"github.com/rlch/entcheck/analysis"
)

// Table is the planned table of one entity.
type Table struct {
	Name   string
	Entity string

	Columns     []Column
	PrimaryKey  []string
	Unique      [][]string
	ForeignKeys []ForeignKey
}

// Column is a planned column.
type Column struct {
	Name    string
	Type    string
	NotNull bool

	AutoIncrement bool
	// Start is the first generated value, when given.
	Start *int64
}

// ForeignKey is a planned foreign key constraint.
type ForeignKey struct {
	Name       string
	Columns    []string
	RefTable   string
	RefColumns []string
	OnDelete   string
	OnUpdate   string
}

// TableName returns the table of an entity.
func TableName(entity string) string {
	return strcase.ToSnake(entity)
}

// ColumnName returns the column of a field.
func ColumnName(field string) string {
	return strcase.ToSnake(field)
}

func columnNames(fields []string) []string {
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = ColumnName(f)
	}

	return cols
}

// Plan lays out one table per entity, sorted by entity name. Foreign keys
// are created on the owning side of every one-to-one and many-to-one
// relation; one-to-one foreign keys are also unique.
func Plan(res *analysis.Result, d Dialect) []*Table {
	names := res.EntityNames()
	tables := make([]*Table, 0, len(names))

	for _, name := range names {
		tables = append(tables, planTable(res, res.Entities[name], d))
	}

	return tables
}

func planTable(res *analysis.Result, e *analysis.Entity, d Dialect) *Table {
	t := &Table{
		Name:       TableName(e.Name),
		Entity:     e.Name,
		PrimaryKey: columnNames(e.KeyNames()),
	}

	for _, g := range e.UniqueGroups {
		names := make([]string, len(g))
		for i, k := range g {
			names[i] = k.Name
		}

		t.Unique = append(t.Unique, columnNames(names))
	}

	for _, f := range e.Fields {
		switch f.Class.(type) {
		case analysis.Scalar, analysis.Temporal:
			col := Column{Name: ColumnName(f.Name), Type: d.ColumnType(f.Class), NotNull: true}
			if f.AutoIncrement != nil {
				col.AutoIncrement = true
				col.Start = f.AutoIncrement.Start
			}

			t.Columns = append(t.Columns, col)

		case analysis.Relation:
			if f.Link == nil || !f.Link.Owner || f.Relation == nil {
				continue
			}

			target := res.Entities[f.Target()]
			if target == nil {
				continue
			}

			planForeignKey(t, e, f, target, d)
		}
	}

	return t
}

func planForeignKey(t *Table, e *analysis.Entity, f *analysis.Field, target *analysis.Entity, d Dialect) {
	dir := f.Relation

	keys, refs := dir.KeyNames(), dir.ReferenceNames()

	if !dir.Explicit {
		refs = target.KeyNames()
		keys = make([]string, len(refs))

		for i, pk := range refs {
			keys[i] = analysis.ForeignKeyName(f.Name, pk)
			if e.Declares(keys[i]) {
				continue
			}

			typ := ""
			if rf := target.Field(pk); rf != nil {
				typ = d.ColumnType(rf.Class)
			}

			t.Columns = append(t.Columns, Column{Name: ColumnName(keys[i]), Type: typ, NotNull: !f.Optional})
		}
	}

	if len(keys) == 0 {
		return
	}

	cols := columnNames(keys)

	t.ForeignKeys = append(t.ForeignKeys, ForeignKey{
		Name:       fmt.Sprintf("fk_%s_%s", t.Name, ColumnName(f.Name)),
		Columns:    cols,
		RefTable:   TableName(target.Name),
		RefColumns: columnNames(refs),
		OnDelete:   referentialAction(dir.OnDelete),
		OnUpdate:   referentialAction(dir.OnUpdate),
	})

	if f.Link.Cardinality == analysis.OneToOne && !slices.ContainsFunc(t.Unique, func(u []string) bool {
		return slices.Equal(u, cols)
	}) {
		t.Unique = append(t.Unique, cols)
	}
}

// Generate renders the DDL of every entity of res. Results with error
// diagnostics are refused.
func Generate(res *analysis.Result, d Dialect) (string, error) {
	if res.HasErrors() {
		return "", fmt.Errorf("%w: fix them before generating a schema", ErrInvalidEntities)
	}

	return d.Render(Plan(res, d)), nil
}
