package product

import "crmgateway/internal/domain"

type SearchProductsRequest struct {
	ProductIDs []string `json:"productIds"`
}

type SearchProductsResponse struct {
	TraceID  string       `json:"traceId,omitempty"`
	Products []ProductDTO `json:"products"`
	NotFound []string     `json:"notFound"`
}

type ProductDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Stock       *int    `json:"stock"`
	InStock     bool    `json:"in_stock"`
	IsActive    bool    `json:"is_active"`
}

func NewProductDTO(p domain.Product) ProductDTO {
	return ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price,
		Stock:       p.Stock,
		InStock:     p.InStock(),
		IsActive:    p.IsActive,
	}
}
