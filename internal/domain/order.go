package domain

import (
	"fmt"
	"strings"
	"time"
)

type OrderStatus string

// Declaration order is the canonical lifecycle order. Cancelled can be
// reached from any non-terminal state.
const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusProcessing     OrderStatus = "processing"
	OrderStatusShipped        OrderStatus = "shipped"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

var PaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusPaid,
	PaymentStatusFailed,
}

func (s PaymentStatus) Valid() bool {
	for _, known := range PaymentStatuses {
		if s == known {
			return true
		}
	}
	return false
}

type OrderItem struct {
	ProductID string
	Name      string
	Quantity  int
	Price     float64
}

type Order struct {
	ID              string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	Address         string
	Status          OrderStatus
	PaymentStatus   PaymentStatus
	TotalAmount     float64
	Total           float64
	RefundAmount    *float64
	TrackingLink    string
	ShippingCarrier string
	Items           []OrderItem
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Amount is the order value. Older records only carry Total.
func (o Order) Amount() float64 {
	if o.TotalAmount != 0 {
		return o.TotalAmount
	}
	return o.Total
}

// ProductDetails renders the line items as "Name x2, Other x1".
func (o Order) ProductDetails() string {
	parts := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		name := item.Name
		if name == "" {
			name = item.ProductID
		}
		parts = append(parts, fmt.Sprintf("%s x%d", name, item.Quantity))
	}
	return strings.Join(parts, ", ")
}

// HasRefund reports whether a refund amount is recorded. Zero counts as
// unset since the document store defaults numeric fields to 0.
func (o Order) HasRefund() bool {
	return o.RefundAmount != nil && *o.RefundAmount > 0
}
