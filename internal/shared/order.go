package shared

import (
	"strings"
)

// Direction is a SQL sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// OrderTerm is one field/direction pair of an ORDER BY clause.
type OrderTerm struct {
	Field     string
	Direction Direction
}

// CreateOrderArray pairs comma separated fields with comma separated directions.
// Missing or unrecognised directions default to ASC.
func CreateOrderArray(orderBy, order string) []OrderTerm {
	if strings.TrimSpace(orderBy) == "" {
		return []OrderTerm{}
	}
	fields := strings.Split(orderBy, ",")
	var directions []string
	if order != "" {
		directions = strings.Split(order, ",")
	}
	terms := make([]OrderTerm, 0, len(fields))
	for i, field := range fields {
		dir := Asc
		if i < len(directions) && strings.EqualFold(strings.TrimSpace(directions[i]), string(Desc)) {
			dir = Desc
		}
		terms = append(terms, OrderTerm{Field: strings.TrimSpace(field), Direction: dir})
	}
	return terms
}

// ValidateOrder checks every field against an allow-list and every direction
// against ASC/DESC, collecting all failures.
func ValidateOrder(orderBy, order string, allowed []string) []FieldError {
	var failures []FieldError
	if orderBy != "" {
		set := make(map[string]struct{}, len(allowed))
		for _, a := range allowed {
			set[a] = struct{}{}
		}
		for _, field := range strings.Split(orderBy, ",") {
			if _, ok := set[strings.TrimSpace(field)]; !ok {
				failures = append(failures, FieldError{Field: "orderBy", Message: "orderBy must be one of " + strings.Join(allowed, ", ")})
				break
			}
		}
	}
	if order != "" {
		for _, dir := range strings.Split(order, ",") {
			d := strings.ToUpper(strings.TrimSpace(dir))
			if d != string(Asc) && d != string(Desc) {
				failures = append(failures, FieldError{Field: "order", Message: "order must be ASC or DESC"})
				break
			}
		}
	}
	return failures
}

// OrderClause renders terms as an ORDER BY body using the column mapping.
// Fields missing from columns are skipped; fallback is used when nothing remains.
func OrderClause(terms []OrderTerm, columns map[string]string, fallback string) string {
	parts := make([]string, 0, len(terms))
	for _, term := range terms {
		column, ok := columns[term.Field]
		if !ok {
			continue
		}
		parts = append(parts, column+" "+string(term.Direction))
	}
	if len(parts) == 0 {
		return fallback
	}
	return strings.Join(parts, ", ")
}
