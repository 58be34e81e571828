package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"crmgateway/internal/domain"
	"crmgateway/internal/errors"
	"crmgateway/internal/infrastructure/mysql"
)

var orderColumns = mysql.Columns{
	"id":               "id",
	"status":           "status",
	"payment_status":   "paymentStatus",
	"customer_phone":   "customerPhone",
	"customer_email":   "customerEmail",
	"shipping_carrier": "shippingCarrier",
	"total_amount":     "totalAmount",
	"created":          "createdAt",
	"updated":          "updatedAt",
}

const orderSelect = `
	SELECT id, customerName, customerEmail, customerPhone, address,
	       status, paymentStatus, totalAmount, refundAmount,
	       trackingLink, shippingCarrier, createdAt, updatedAt
	FROM Orders
`

type rowScanner interface {
	Scan(dest ...any) error
}

type MySQLOrderRepository struct {
	db    *sql.DB
	items *MySQLOrderItemRepository
}

func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{db: db, items: NewMySQLOrderItemRepository(db)}
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order  domain.Order
		refund sql.NullFloat64
	)
	err := row.Scan(
		&order.ID, &order.CustomerName, &order.CustomerEmail, &order.CustomerPhone, &order.Address,
		&order.Status, &order.PaymentStatus, &order.TotalAmount, &refund,
		&order.TrackingLink, &order.ShippingCarrier, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return order, err
	}
	if refund.Valid {
		v := refund.Float64
		order.RefundAmount = &v
	}
	return order, nil
}

func (r *MySQLOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, orderSelect+" WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("order with id %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by id: %w", err)
	}

	order.Items, err = r.items.FindByOrderID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &order, nil
}

// Update writes the non-nil patch fields and returns the stored record.
func (r *MySQLOrderRepository) Update(ctx context.Context, id string, patch domain.OrderPatch) (*domain.Order, error) {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	if patch.PaymentStatus != nil {
		add("paymentStatus", string(*patch.PaymentStatus))
	}
	if patch.TrackingLink != nil {
		add("trackingLink", *patch.TrackingLink)
	}
	if patch.ShippingCarrier != nil {
		add("shippingCarrier", *patch.ShippingCarrier)
	}
	if patch.RefundAmount != nil {
		add("refundAmount", *patch.RefundAmount)
	}
	if patch.CustomerPhone != nil {
		add("customerPhone", *patch.CustomerPhone)
	}

	if len(sets) > 0 {
		query := "UPDATE Orders SET " + strings.Join(sets, ", ") + " WHERE id = ?"
		args = append(args, id)

		// RowsAffected is 0 for a no-op update too, so existence is
		// settled by the read below.
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("updating order: %w", err)
		}
	}

	return r.FindByID(ctx, id)
}

func (r *MySQLOrderRepository) List(ctx context.Context, q domain.ListQuery) (*domain.Page[domain.Order], error) {
	where, args, err := mysql.BuildWhere(q.Filter, orderColumns)
	if err != nil {
		return nil, err
	}
	orderBy, err := mysql.BuildOrderBy(q.Sort, orderColumns, "createdAt DESC")
	if err != nil {
		return nil, err
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM Orders"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting orders: %w", err)
	}

	page, perPage := normalizePage(q)
	rows, err := r.db.QueryContext(ctx,
		orderSelect+where+orderBy+" LIMIT ? OFFSET ?",
		append(args, perPage, (page-1)*perPage)...,
	)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating orders: %w", err)
	}

	for i := range orders {
		orders[i].Items, err = r.items.FindByOrderID(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return &domain.Page[domain.Order]{
		Items:      orders,
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
	}, nil
}

func normalizePage(q domain.ListQuery) (int, int) {
	page, perPage := q.Page, q.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 30
	}
	if perPage > 500 {
		perPage = 500
	}
	return page, perPage
}
