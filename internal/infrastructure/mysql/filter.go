package mysql

import (
	"fmt"
	"strings"

	"crmgateway/internal/errors"
)

// Columns maps public field names, as used in list filters and sort keys,
// to table columns.
type Columns map[string]string

// BuildWhere translates the equality subset of the list filter syntax,
// `field = 'value' && other = 'value'`, into a WHERE clause. Anything else
// is rejected as a validation error.
func BuildWhere(filter string, columns Columns) (string, []any, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return "", nil, nil
	}

	var (
		conds []string
		args  []any
	)
	for _, part := range strings.Split(filter, "&&") {
		field, value, ok := strings.Cut(part, "=")
		if !ok {
			return "", nil, invalidFilter(filter)
		}
		field = strings.TrimSpace(field)
		value = strings.TrimSpace(value)

		column, known := columns[field]
		if !known {
			return "", nil, errors.NewValidationError("unsupported filter field", errors.ValidationDetail{
				Field:   "filter",
				Message: fmt.Sprintf("cannot filter on %q", field),
			})
		}

		unquoted, err := unquote(value)
		if err != nil {
			return "", nil, invalidFilter(filter)
		}

		conds = append(conds, column+" = ?")
		args = append(args, unquoted)
	}

	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// BuildOrderBy turns "-created" style sort keys into an ORDER BY clause.
func BuildOrderBy(sort string, columns Columns, fallback string) (string, error) {
	sort = strings.TrimSpace(sort)
	if sort == "" {
		return " ORDER BY " + fallback, nil
	}

	var parts []string
	for _, key := range strings.Split(sort, ",") {
		key = strings.TrimSpace(key)
		dir := "ASC"
		if strings.HasPrefix(key, "-") {
			dir = "DESC"
			key = key[1:]
		} else {
			key = strings.TrimPrefix(key, "+")
		}

		column, ok := columns[key]
		if !ok {
			return "", errors.NewValidationError("unsupported sort field", errors.ValidationDetail{
				Field:   "sort",
				Message: fmt.Sprintf("cannot sort on %q", key),
			})
		}
		parts = append(parts, column+" "+dir)
	}

	return " ORDER BY " + strings.Join(parts, ", "), nil
}

func unquote(v string) (string, error) {
	if len(v) < 2 {
		return "", fmt.Errorf("value too short")
	}
	q := v[0]
	if (q != '\'' && q != '"') || v[len(v)-1] != q {
		return "", fmt.Errorf("value must be quoted")
	}
	inner := v[1 : len(v)-1]
	inner = strings.ReplaceAll(inner, `\`+string(q), string(q))
	return strings.ReplaceAll(inner, `\\`, `\`), nil
}

func invalidFilter(filter string) error {
	return errors.NewValidationError("invalid filter", errors.ValidationDetail{
		Field:   "filter",
		Message: fmt.Sprintf("expected field = 'value' terms joined by &&, got %q", filter),
	})
}
