package product

import (
	"context"

	"crmgateway/internal/domain"
)

type UseCase interface {
	ListProducts(ctx context.Context, q domain.ListQuery) (*domain.Page[domain.Product], error)
	SearchProducts(ctx context.Context, req SearchProductsRequest) (*SearchProductsResponse, error)
}

type Service interface {
	List(ctx context.Context, q domain.ListQuery) (*domain.Page[domain.Product], error)
	GetProductsByIDs(ctx context.Context, ids []string) (found []domain.Product, notFoundIDs []string, err error)
}

type Repository interface {
	List(ctx context.Context, q domain.ListQuery) (*domain.Page[domain.Product], error)
	FindByIDs(ctx context.Context, ids []string) ([]domain.Product, error)
}
