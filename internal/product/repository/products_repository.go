package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"crmgateway/internal/domain"
	"crmgateway/internal/infrastructure/mysql"
)

var productColumns = mysql.Columns{
	"id":        "id",
	"name":      "name",
	"category":  "category",
	"price":     "price",
	"is_active": "isActive",
	"created":   "createdAt",
	"updated":   "updatedAt",
}

const productSelect = `
	SELECT id, name, COALESCE(description, ''), category, price, stock,
	       isActive, createdAt, updatedAt
	FROM Products
`

type MySQLRepository struct {
	db *sql.DB
}

func NewMySQLRepository(db *sql.DB) *MySQLRepository {
	return &MySQLRepository{db: db}
}

func (r *MySQLRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, 0, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}

	query := fmt.Sprintf("%s WHERE id IN (%s) ORDER BY name", productSelect, strings.Join(placeholders, ", "))

	return r.query(ctx, query, args...)
}

func (r *MySQLRepository) List(ctx context.Context, q domain.ListQuery) (*domain.Page[domain.Product], error) {
	where, args, err := mysql.BuildWhere(q.Filter, productColumns)
	if err != nil {
		return nil, err
	}
	orderBy, err := mysql.BuildOrderBy(q.Sort, productColumns, "name ASC")
	if err != nil {
		return nil, err
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM Products"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting products: %w", err)
	}

	page, perPage := q.Page, q.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 30
	}

	products, err := r.query(ctx, productSelect+where+orderBy+" LIMIT ? OFFSET ?", append(args, perPage, (page-1)*perPage)...)
	if err != nil {
		return nil, err
	}

	return &domain.Page[domain.Product]{
		Items:      products,
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
	}, nil
}

func (r *MySQLRepository) query(ctx context.Context, query string, args ...interface{}) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var (
			p     domain.Product
			stock sql.NullInt64
		)
		err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.Category, &p.Price, &stock,
			&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning product row: %w", err)
		}
		if stock.Valid {
			s := int(stock.Int64)
			p.Stock = &s
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating product rows: %w", err)
	}

	return products, nil
}
