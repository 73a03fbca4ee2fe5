package shared

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ParseTriState parses an optional boolean flag: absent yields nil.
func ParseTriState(raw string) (*bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid boolean %q", raw)
	}
	return &v, nil
}

// QueryReader collects parse failures while reading query parameters.
type QueryReader struct {
	values   url.Values
	failures []FieldError
}

// NewQueryReader wraps a query string.
func NewQueryReader(values url.Values) *QueryReader {
	return &QueryReader{values: values}
}

// String returns the trimmed value of key.
func (q *QueryReader) String(key string) string {
	return strings.TrimSpace(q.values.Get(key))
}

// Bool reads a tri-state flag.
func (q *QueryReader) Bool(key string) *bool {
	v, err := ParseTriState(q.values.Get(key))
	if err != nil {
		q.failures = append(q.failures, FieldError{Field: key, Message: key + " must be true or false"})
	}
	return v
}

// UUID reads an optional UUID.
func (q *QueryReader) UUID(key string) *uuid.UUID {
	raw := q.String(key)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		q.failures = append(q.failures, FieldError{Field: key, Message: key + " must be a valid UUID"})
		return nil
	}
	return &id
}

// OneOf reads a value restricted to the allowed set. Empty is accepted.
func (q *QueryReader) OneOf(key string, allowed ...string) string {
	raw := q.String(key)
	if raw == "" {
		return ""
	}
	for _, a := range allowed {
		if raw == a {
			return raw
		}
	}
	q.failures = append(q.failures, FieldError{Field: key, Message: key + " must be one of " + strings.Join(allowed, ", ")})
	return ""
}

// Page reads limit/page, rejecting values outside [1, maxLimit] and page < 1.
func (q *QueryReader) Page(maxLimit int) Page {
	opts := PageOptions{}
	if raw := q.String("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxLimit {
			q.failures = append(q.failures, FieldError{Field: "limit", Message: fmt.Sprintf("limit must be an integer between 1 and %d", maxLimit)})
		} else {
			opts.Limit = v
		}
	}
	if raw := q.String("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			q.failures = append(q.failures, FieldError{Field: "page", Message: "page must be an integer greater than 0"})
		} else {
			opts.Page = v
		}
	}
	return GetPagination(opts)
}

// Order reads orderBy/order against the allow-list.
func (q *QueryReader) Order(allowed []string) []OrderTerm {
	orderBy, order := q.String("orderBy"), q.String("order")
	if failures := ValidateOrder(orderBy, order, allowed); len(failures) > 0 {
		q.failures = append(q.failures, failures...)
		return nil
	}
	return CreateOrderArray(orderBy, order)
}

// Err returns a validation error when any read failed.
func (q *QueryReader) Err() error {
	if len(q.failures) == 0 {
		return nil
	}
	return Validation(q.failures)
}
