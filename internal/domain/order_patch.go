package domain

// OrderPatch is a sparse update. Nil fields are left unchanged.
type OrderPatch struct {
	Status          *OrderStatus
	PaymentStatus   *PaymentStatus
	TrackingLink    *string
	ShippingCarrier *string
	RefundAmount    *float64
	CustomerPhone   *string
}

func (p OrderPatch) IsEmpty() bool {
	return p.Status == nil &&
		p.PaymentStatus == nil &&
		p.TrackingLink == nil &&
		p.ShippingCarrier == nil &&
		p.RefundAmount == nil &&
		p.CustomerPhone == nil
}

// HasRefund mirrors Order.HasRefund for the patch value.
func (p OrderPatch) HasRefund() bool {
	return p.RefundAmount != nil && *p.RefundAmount > 0
}

// Apply returns a copy of o with the patch fields written over it.
func (p OrderPatch) Apply(o Order) Order {
	if p.Status != nil {
		o.Status = *p.Status
	}
	if p.PaymentStatus != nil {
		o.PaymentStatus = *p.PaymentStatus
	}
	if p.TrackingLink != nil {
		o.TrackingLink = *p.TrackingLink
	}
	if p.ShippingCarrier != nil {
		o.ShippingCarrier = *p.ShippingCarrier
	}
	if p.RefundAmount != nil {
		amount := *p.RefundAmount
		o.RefundAmount = &amount
	}
	if p.CustomerPhone != nil {
		o.CustomerPhone = *p.CustomerPhone
	}
	return o
}
