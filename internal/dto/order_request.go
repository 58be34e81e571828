package dto

import "crmgateway/internal/domain"

// UpdateOrderRequest is the PATCH body. Absent fields are left unchanged.
type UpdateOrderRequest struct {
	Status          *string  `json:"status"`
	PaymentStatus   *string  `json:"payment_status"`
	TrackingLink    *string  `json:"tracking_link"`
	ShippingCarrier *string  `json:"shipping_carrier"`
	RefundAmount    *float64 `json:"refund_amount"`
	CustomerPhone   *string  `json:"customer_phone"`
}

// ToPatch converts the request. Callers validate enum values first.
func (r UpdateOrderRequest) ToPatch() domain.OrderPatch {
	patch := domain.OrderPatch{
		TrackingLink:    r.TrackingLink,
		ShippingCarrier: r.ShippingCarrier,
		RefundAmount:    r.RefundAmount,
		CustomerPhone:   r.CustomerPhone,
	}
	if r.Status != nil {
		s := domain.OrderStatus(*r.Status)
		patch.Status = &s
	}
	if r.PaymentStatus != nil {
		p := domain.PaymentStatus(*r.PaymentStatus)
		patch.PaymentStatus = &p
	}
	return patch
}
