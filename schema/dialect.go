package schema

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rlch/entcheck/analysis"
)

// Sentinel errors.
var (
	ErrUnknownDialect  = errors.New("unknown dialect")
	ErrInvalidEntities = errors.New("entities have errors")
)

// Dialect renders planned tables as DDL for one database.
type Dialect interface {
	// Name returns the dialect identifier (e.g., "postgres", "sqlite").
	Name() string

	// ColumnType maps a scalar or temporal class to a column type.
	ColumnType(c analysis.Class) string

	// Render writes the DDL of the tables, in order.
	Render(tables []*Table) string
}

var (
	mu       sync.RWMutex
	dialects = make(map[string]Dialect)
)

// Register registers a dialect under its name and any aliases.
// Dialects call this in their init() function.
func Register(d Dialect, aliases ...string) {
	mu.Lock()
	defer mu.Unlock()

	dialects[d.Name()] = d
	for _, alias := range aliases {
		dialects[alias] = d
	}
}

// Lookup returns the dialect registered under name.
func Lookup(name string) (Dialect, error) { //nolint:ireturn
	mu.RLock()
	defer mu.RUnlock()

	d, ok := dialects[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %s)", ErrUnknownDialect, name, strings.Join(registered(), ", "))
	}

	return d, nil
}

// Registered returns the canonical names of all registered dialects, sorted.
func Registered() []string {
	mu.RLock()
	defer mu.RUnlock()

	return registered()
}

func registered() []string {
	var names []string

	for name, d := range dialects {
		if name == d.Name() {
			names = append(names, name)
		}
	}

	slices.Sort(names)

	return names
}

// quote quotes an identifier with double quotes.
func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func quoteAll(idents []string) string {
	quoted := make([]string, len(idents))
	for i, id := range idents {
		quoted[i] = quote(id)
	}

	return strings.Join(quoted, ", ")
}

func referentialAction(a analysis.ReferentialAction) string {
	switch a {
	case analysis.ActionCascade:
		return "cascade"
	case analysis.ActionRestrict:
		return "restrict"
	case analysis.ActionSetNull:
		return "set null"
	case analysis.ActionSetDefault:
		return "set default"
	case analysis.ActionNoAction:
		return "no action"
	default:
		return ""
	}
}

// foreignKeyClause renders "foreign key (...) references t (...) [on ...]".
func foreignKeyClause(fk ForeignKey) string {
	var b strings.Builder

	fmt.Fprintf(&b, "foreign key (%s) references %s (%s)", quoteAll(fk.Columns), quote(fk.RefTable), quoteAll(fk.RefColumns))

	if fk.OnDelete != "" {
		b.WriteString(" on delete " + fk.OnDelete)
	}

	if fk.OnUpdate != "" {
		b.WriteString(" on update " + fk.OnUpdate)
	}

	return b.String()
}
