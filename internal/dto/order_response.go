package dto

import (
	"time"

	"crmgateway/internal/domain"
)

type OrderItemResponse struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type OrderResponse struct {
	ID              string              `json:"id"`
	CustomerName    string              `json:"customer_name"`
	CustomerEmail   string              `json:"customer_email"`
	CustomerPhone   string              `json:"customer_phone"`
	Address         string              `json:"address"`
	Status          string              `json:"status"`
	PaymentStatus   string              `json:"payment_status"`
	TotalAmount     float64             `json:"total_amount"`
	RefundAmount    *float64            `json:"refund_amount,omitempty"`
	TrackingLink    string              `json:"tracking_link,omitempty"`
	ShippingCarrier string              `json:"shipping_carrier,omitempty"`
	Items           []OrderItemResponse `json:"items"`
	Created         time.Time           `json:"created"`
	Updated         time.Time           `json:"updated"`
}

func NewOrderResponse(o domain.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}

	return OrderResponse{
		ID:              o.ID,
		CustomerName:    o.CustomerName,
		CustomerEmail:   o.CustomerEmail,
		CustomerPhone:   o.CustomerPhone,
		Address:         o.Address,
		Status:          string(o.Status),
		PaymentStatus:   string(o.PaymentStatus),
		TotalAmount:     o.Amount(),
		RefundAmount:    o.RefundAmount,
		TrackingLink:    o.TrackingLink,
		ShippingCarrier: o.ShippingCarrier,
		Items:           items,
		Created:         o.CreatedAt,
		Updated:         o.UpdatedAt,
	}
}

type OrderEnvelope struct {
	TraceID string        `json:"traceId"`
	Order   OrderResponse `json:"order"`
}

// ListResponse mirrors the paging fields of the document store.
type ListResponse[T any] struct {
	TraceID    string `json:"traceId"`
	Page       int    `json:"page"`
	PerPage    int    `json:"perPage"`
	TotalItems int    `json:"totalItems"`
	Items      []T    `json:"items"`
}

type ErrorResponse struct {
	TraceID   string    `json:"traceId"`
	Status    int       `json:"status"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
