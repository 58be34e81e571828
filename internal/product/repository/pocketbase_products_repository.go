package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"crmgateway/internal/domain"
	"crmgateway/internal/infrastructure/pocketbase"
)

const productsCollection = "products"

type RecordLister interface {
	List(ctx context.Context, collection string, q domain.ListQuery) (*pocketbase.ListResult, error)
}

type productRecord struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Stock       *int    `json:"stock"`
	IsActive    bool    `json:"is_active"`
	Created     string  `json:"created"`
	Updated     string  `json:"updated"`
}

func (r productRecord) toDomain() domain.Product {
	created, _ := time.Parse("2006-01-02 15:04:05.000Z", r.Created)
	updated, _ := time.Parse("2006-01-02 15:04:05.000Z", r.Updated)
	return domain.Product{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		Price:       r.Price,
		Stock:       r.Stock,
		IsActive:    r.IsActive,
		CreatedAt:   created,
		UpdatedAt:   updated,
	}
}

type PocketBaseRepository struct {
	client RecordLister
}

func NewPocketBaseRepository(client RecordLister) *PocketBaseRepository {
	return &PocketBaseRepository{client: client}
}

func (r *PocketBaseRepository) List(ctx context.Context, q domain.ListQuery) (*domain.Page[domain.Product], error) {
	result, err := r.client.List(ctx, productsCollection, q)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}

	products, err := decodeProducts(result.Items)
	if err != nil {
		return nil, err
	}

	return &domain.Page[domain.Product]{
		Items:      products,
		Page:       result.Page,
		PerPage:    result.PerPage,
		TotalItems: result.TotalItems,
	}, nil
}

func (r *PocketBaseRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	terms := make([]string, len(ids))
	for i, id := range ids {
		terms[i] = fmt.Sprintf("id = '%s'", strings.ReplaceAll(id, "'", `\'`))
	}

	result, err := r.client.List(ctx, productsCollection, domain.ListQuery{
		Page:    1,
		PerPage: len(ids),
		Filter:  strings.Join(terms, " || "),
		Sort:    "name",
	})
	if err != nil {
		return nil, fmt.Errorf("finding products: %w", err)
	}

	return decodeProducts(result.Items)
}

func decodeProducts(items []json.RawMessage) ([]domain.Product, error) {
	products := make([]domain.Product, 0, len(items))
	for _, raw := range items {
		var rec productRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decoding product record: %w", err)
		}
		products = append(products, rec.toDomain())
	}
	return products, nil
}
