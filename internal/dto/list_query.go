package dto

import (
	"net/http"
	"strconv"

	"crmgateway/internal/domain"
	apperrors "crmgateway/internal/errors"
)

const maxPerPage = 500

// ParseListQuery reads page, perPage, filter and sort from the query string.
func ParseListQuery(r *http.Request) (domain.ListQuery, error) {
	q := r.URL.Query()
	query := domain.ListQuery{
		Page:    1,
		PerPage: 30,
		Filter:  q.Get("filter"),
		Sort:    q.Get("sort"),
	}

	var details []apperrors.ValidationDetail
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			details = append(details, apperrors.ValidationDetail{Field: "page", Message: "page must be a positive integer"})
		} else {
			query.Page = n
		}
	}
	if raw := q.Get("perPage"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPerPage {
			details = append(details, apperrors.ValidationDetail{Field: "perPage", Message: "perPage must be between 1 and 500"})
		} else {
			query.PerPage = n
		}
	}

	if len(details) > 0 {
		return query, apperrors.NewValidationError("invalid list query", details...)
	}
	return query, nil
}
