package domain

// Page is one page of a listing from the persistence service.
type Page[T any] struct {
	Items      []T
	Page       int
	PerPage    int
	TotalItems int
}

type ListQuery struct {
	Page    int
	PerPage int
	Filter  string
	Sort    string
}
