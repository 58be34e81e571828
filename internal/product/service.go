package product

import (
	"context"

	"crmgateway/internal/domain"
)

type productService struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &productService{repo: repo}
}

func (s *productService) List(ctx context.Context, q domain.ListQuery) (*domain.Page[domain.Product], error) {
	return s.repo.List(ctx, q)
}

func (s *productService) GetProductsByIDs(ctx context.Context, ids []string) ([]domain.Product, []string, error) {
	found, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	foundSet := make(map[string]struct{}, len(found))
	for _, p := range found {
		foundSet[p.ID] = struct{}{}
	}

	var notFoundIDs []string
	for _, id := range ids {
		if _, ok := foundSet[id]; !ok {
			notFoundIDs = append(notFoundIDs, id)
		}
	}

	return found, notFoundIDs, nil
}
