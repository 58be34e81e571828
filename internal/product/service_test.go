package product

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmgateway/internal/domain"
)

type mockRepository struct {
	ListFunc      func(ctx context.Context, q domain.ListQuery) (*domain.Page[domain.Product], error)
	FindByIDsFunc func(ctx context.Context, ids []string) ([]domain.Product, error)
}

func (m *mockRepository) List(ctx context.Context, q domain.ListQuery) (*domain.Page[domain.Product], error) {
	return m.ListFunc(ctx, q)
}

func (m *mockRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	return m.FindByIDsFunc(ctx, ids)
}

func TestService_GetProductsByIDs_SplitsFoundAndMissing(t *testing.T) {
	repo := &mockRepository{
		FindByIDsFunc: func(ctx context.Context, ids []string) ([]domain.Product, error) {
			return []domain.Product{{ID: "P1"}, {ID: "P3"}}, nil
		},
	}

	found, notFound, err := NewService(repo).GetProductsByIDs(context.Background(), []string{"P1", "P2", "P3", "P4"})
	require.NoError(t, err)

	assert.Len(t, found, 2)
	assert.Equal(t, []string{"P2", "P4"}, notFound)
}

func TestService_GetProductsByIDs_Error(t *testing.T) {
	repo := &mockRepository{
		FindByIDsFunc: func(ctx context.Context, ids []string) ([]domain.Product, error) {
			return nil, assert.AnError
		},
	}

	_, _, err := NewService(repo).GetProductsByIDs(context.Background(), []string{"P1"})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestUseCase_SearchProducts_DedupesAndMapsStock(t *testing.T) {
	zero := 0
	repo := &mockRepository{
		FindByIDsFunc: func(ctx context.Context, ids []string) ([]domain.Product, error) {
			assert.Equal(t, []string{"P1", "P2"}, ids)
			return []domain.Product{
				{ID: "P1", Name: "Kurta", Price: 749.5},
				{ID: "P2", Name: "Dupatta", Stock: &zero},
			}, nil
		},
	}

	resp, err := NewUseCase(NewService(repo)).SearchProducts(context.Background(), SearchProductsRequest{ProductIDs: []string{"P1", "P2", "P1"}})
	require.NoError(t, err)

	require.Len(t, resp.Products, 2)
	assert.True(t, resp.Products[0].InStock)
	assert.False(t, resp.Products[1].InStock)
	assert.NotNil(t, resp.NotFound)
	assert.Empty(t, resp.NotFound)
}
