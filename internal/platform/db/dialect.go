package db

import (
	"strconv"
	"strings"
)

// Dialect captures the few statement differences between the supported backends.
type Dialect string

const (
	DialectPostgres Dialect = DriverPostgres
	DialectSQLite   Dialect = DriverSQLite
)

// ForUpdate returns the row-lock suffix for a SELECT inside a transaction.
// SQLite transactions are opened IMMEDIATE and already hold the write lock.
func (d Dialect) ForUpdate() string {
	if d == DialectPostgres {
		return " FOR UPDATE"
	}
	return ""
}

// Where accumulates AND-ed predicates with positional $N arguments.
type Where struct {
	clauses []string
	args    []any
}

// Add appends a predicate. Each "?" in clause is replaced by the next $N placeholder.
func (w *Where) Add(clause string, args ...any) {
	var b strings.Builder
	next := 0
	for _, r := range clause {
		if r == '?' && next < len(args) {
			w.args = append(w.args, args[next])
			next++
			b.WriteString("$" + strconv.Itoa(len(w.args)))
			continue
		}
		b.WriteRune(r)
	}
	w.clauses = append(w.clauses, b.String())
}

// SQL renders " WHERE a AND b" or "" when no predicate was added.
func (w *Where) SQL() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// Args returns the positional arguments in placeholder order.
func (w *Where) Args() []any {
	return w.args
}
