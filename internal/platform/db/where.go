package db

import (
	"strconv"
	"strings"
)

// Where accumulates AND-ed predicates with positional arguments.
type Where struct {
	clauses []string
	args    []any
}

// Add appends a predicate. Each "?" in clause is replaced by the next
// positional placeholder and consumes one of args, in order.
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

// Arg registers a bare argument and returns its placeholder.
func (w *Where) Arg(v any) string {
	w.args = append(w.args, v)
	return "$" + strconv.Itoa(len(w.args))
}

// SQL renders the predicates as a WHERE clause, or "" when empty.
func (w *Where) SQL() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + w.Predicate()
}

// Predicate renders the predicates joined by AND, for use in JOIN ... ON.
func (w *Where) Predicate() string {
	return strings.Join(w.clauses, " AND ")
}

// Args returns the positional arguments collected so far.
func (w *Where) Args() []any {
	return w.args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Contains builds an ILIKE pattern matching s anywhere, with wildcards in s escaped.
func Contains(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
