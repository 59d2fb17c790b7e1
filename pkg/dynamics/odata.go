package dynamics

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// StringLiteral renders s as an OData string literal. Embedded single
// quotes are doubled so a free-text term cannot break out of the
// surrounding filter expression.
func StringLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Contains builds a contains(field, 'term') filter expression.
func Contains(field, term string) string {
	return fmt.Sprintf("contains(%s, %s)", field, StringLiteral(term))
}

// Ge and Le compare a field against a raw (unquoted) value such as an
// ISO-8601 timestamp.
func Ge(field, value string) string {
	return fmt.Sprintf("%s ge %s", field, value)
}

func Le(field, value string) string {
	return fmt.Sprintf("%s le %s", field, value)
}

func And(exprs ...string) string {
	return strings.Join(exprs, " and ")
}

func Or(exprs ...string) string {
	return strings.Join(exprs, " or ")
}

// Query describes the OData system query options for a collection read.
// Zero-value fields are omitted from the rendered query string.
type Query struct {
	Filter  string
	Select  []string
	OrderBy string
	Top     int
}

func (q Query) Values() url.Values {
	values := url.Values{}
	if q.Filter != "" {
		values.Set("$filter", q.Filter)
	}
	if len(q.Select) > 0 {
		values.Set("$select", strings.Join(q.Select, ","))
	}
	if q.OrderBy != "" {
		values.Set("$orderby", q.OrderBy)
	}
	if q.Top > 0 {
		values.Set("$top", strconv.Itoa(q.Top))
	}
	return values
}

// ValueRows extracts the "value" collection from an OData response body.
func ValueRows(body map[string]any) []map[string]any {
	if body == nil {
		return nil
	}
	raw, ok := body["value"].([]any)
	if !ok {
		return nil
	}
	rows := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if row, ok := item.(map[string]any); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

// StringField reads a string-typed field from a response row, returning
// "" when the field is absent, null, or not a string.
func StringField(row map[string]any, key string) string {
	value, _ := row[key].(string)
	return value
}

// IntField reads a numeric field from a response row. JSON numbers
// decode as float64.
func IntField(row map[string]any, key string) (int, bool) {
	switch value := row[key].(type) {
	case float64:
		return int(value), true
	case int:
		return value, true
	default:
		return 0, false
	}
}
