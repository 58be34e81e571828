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

const ordersCollection = "orders"

// pbTimeLayout is how PocketBase serialises autodate fields.
const pbTimeLayout = "2006-01-02 15:04:05.000Z"

type RecordClient interface {
	Get(ctx context.Context, collection, id string, out any) error
	Update(ctx context.Context, collection, id string, patch any, out any) error
	List(ctx context.Context, collection string, q domain.ListQuery) (*pocketbase.ListResult, error)
}

type orderItemRecord struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type orderRecord struct {
	ID              string            `json:"id"`
	CustomerName    string            `json:"customer_name"`
	CustomerEmail   string            `json:"customer_email"`
	CustomerPhone   string            `json:"customer_phone"`
	Address         string            `json:"address"`
	Status          string            `json:"status"`
	PaymentStatus   string            `json:"payment_status"`
	TotalAmount     float64           `json:"total_amount"`
	Total           float64           `json:"total"`
	RefundAmount    *float64          `json:"refund_amount"`
	TrackingLink    string            `json:"tracking_link"`
	ShippingCarrier string            `json:"shipping_carrier"`
	Items           []orderItemRecord `json:"items"`
	Created         string            `json:"created"`
	Updated         string            `json:"updated"`
}

func (r orderRecord) toDomain() domain.Order {
	items := make([]domain.OrderItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, domain.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}

	return domain.Order{
		ID:              r.ID,
		CustomerName:    r.CustomerName,
		CustomerEmail:   r.CustomerEmail,
		CustomerPhone:   strings.TrimSpace(r.CustomerPhone),
		Address:         r.Address,
		Status:          domain.OrderStatus(r.Status),
		PaymentStatus:   domain.PaymentStatus(r.PaymentStatus),
		TotalAmount:     r.TotalAmount,
		Total:           r.Total,
		RefundAmount:    r.RefundAmount,
		TrackingLink:    r.TrackingLink,
		ShippingCarrier: r.ShippingCarrier,
		Items:           items,
		CreatedAt:       parseTime(r.Created),
		UpdatedAt:       parseTime(r.Updated),
	}
}

// orderPatchRecord carries only the fields being changed.
type orderPatchRecord struct {
	Status          *domain.OrderStatus   `json:"status,omitempty"`
	PaymentStatus   *domain.PaymentStatus `json:"payment_status,omitempty"`
	TrackingLink    *string               `json:"tracking_link,omitempty"`
	ShippingCarrier *string               `json:"shipping_carrier,omitempty"`
	RefundAmount    *float64              `json:"refund_amount,omitempty"`
	CustomerPhone   *string               `json:"customer_phone,omitempty"`
}

func newOrderPatchRecord(p domain.OrderPatch) orderPatchRecord {
	return orderPatchRecord{
		Status:          p.Status,
		PaymentStatus:   p.PaymentStatus,
		TrackingLink:    p.TrackingLink,
		ShippingCarrier: p.ShippingCarrier,
		RefundAmount:    p.RefundAmount,
		CustomerPhone:   p.CustomerPhone,
	}
}

type PocketBaseOrderRepository struct {
	client RecordClient
}

func NewPocketBaseOrderRepository(client RecordClient) *PocketBaseOrderRepository {
	return &PocketBaseOrderRepository{client: client}
}

func (r *PocketBaseOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var rec orderRecord
	if err := r.client.Get(ctx, ordersCollection, id, &rec); err != nil {
		return nil, fmt.Errorf("fetching order %s: %w", id, err)
	}

	order := rec.toDomain()
	return &order, nil
}

func (r *PocketBaseOrderRepository) Update(ctx context.Context, id string, patch domain.OrderPatch) (*domain.Order, error) {
	var rec orderRecord
	if err := r.client.Update(ctx, ordersCollection, id, newOrderPatchRecord(patch), &rec); err != nil {
		return nil, fmt.Errorf("updating order %s: %w", id, err)
	}

	order := rec.toDomain()
	return &order, nil
}

func (r *PocketBaseOrderRepository) List(ctx context.Context, q domain.ListQuery) (*domain.Page[domain.Order], error) {
	result, err := r.client.List(ctx, ordersCollection, q)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	orders := make([]domain.Order, 0, len(result.Items))
	for _, raw := range result.Items {
		var rec orderRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decoding order record: %w", err)
		}
		orders = append(orders, rec.toDomain())
	}

	return &domain.Page[domain.Order]{
		Items:      orders,
		Page:       result.Page,
		PerPage:    result.PerPage,
		TotalItems: result.TotalItems,
	}, nil
}

func parseTime(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	for _, layout := range []string{pbTimeLayout, time.RFC3339Nano, "2006-01-02 15:04:05Z"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
