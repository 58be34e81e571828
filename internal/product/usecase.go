package product

import (
	"context"

	"crmgateway/internal/domain"
)

type productUseCase struct {
	service Service
}

func NewUseCase(service Service) UseCase {
	return &productUseCase{service: service}
}

func (uc *productUseCase) ListProducts(ctx context.Context, q domain.ListQuery) (*domain.Page[domain.Product], error) {
	return uc.service.List(ctx, q)
}

func (uc *productUseCase) SearchProducts(ctx context.Context, req SearchProductsRequest) (*SearchProductsResponse, error) {
	found, notFoundIDs, err := uc.service.GetProductsByIDs(ctx, dedupe(req.ProductIDs))
	if err != nil {
		return nil, err
	}

	products := make([]ProductDTO, 0, len(found))
	for _, p := range found {
		products = append(products, NewProductDTO(p))
	}

	if notFoundIDs == nil {
		notFoundIDs = []string{}
	}

	return &SearchProductsResponse{
		Products: products,
		NotFound: notFoundIDs,
	}, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
