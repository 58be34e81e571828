package domain

import "time"

type Product struct {
	ID          string
	Name        string
	Description string
	Category    string
	Price       float64
	Stock       *int
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p Product) InStock() bool {
	if p.Stock == nil {
		return true
	}
	return *p.Stock > 0
}
