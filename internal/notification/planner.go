package notification

import (
	"strconv"

	"crmgateway/internal/domain"
)

const orderDateLayout = "02 Jan 2006"

// Transition is the before/after view of one order update.
type Transition struct {
	OldStatus        domain.OrderStatus
	NewStatus        domain.OrderStatus
	OldPaymentStatus domain.PaymentStatus
	NewPaymentStatus domain.PaymentStatus
	Patch            domain.OrderPatch
}

func (t Transition) StatusChanged() bool {
	return t.OldStatus != t.NewStatus
}

func (t Transition) PaymentChanged() bool {
	return t.OldPaymentStatus != t.NewPaymentStatus
}

func (t Transition) Changed() bool {
	return t.StatusChanged() || t.PaymentChanged()
}

// rule decides whether a kind fires for the new value of one dimension and
// adds the kind specific params.
type rule struct {
	kind   Kind
	when   func(o domain.Order, tr Transition) bool
	params func(p *Planner, o domain.Order, tr Transition, links Links) []Param
}

var statusRules = map[domain.OrderStatus]rule{
	domain.OrderStatusProcessing: {
		kind: KindPaymentSuccess,
		when: func(o domain.Order, tr Transition) bool {
			return tr.NewPaymentStatus == domain.PaymentStatusPaid
		},
		params: paymentSuccessParams,
	},
	domain.OrderStatusShipped: {
		kind:   KindOrderShipped,
		params: shippedParams,
	},
	domain.OrderStatusOutForDelivery: {
		kind: KindOutForDelivery,
	},
	domain.OrderStatusDelivered: {
		kind: KindOrderDelivered,
		params: func(_ *Planner, o domain.Order, _ Transition, links Links) []Param {
			return []Param{{Key: ParamFeedbackLink, Value: links.Feedback(o.ID)}}
		},
	},
	domain.OrderStatusCancelled: {
		kind: KindRefundConfirmation,
		when: func(o domain.Order, tr Transition) bool {
			return tr.Patch.HasRefund() || o.HasRefund()
		},
		params: refundParams,
	},
}

var paymentRules = map[domain.PaymentStatus]rule{
	domain.PaymentStatusPaid: {
		kind:   KindPaymentSuccess,
		params: paymentSuccessParams,
	},
	domain.PaymentStatusFailed: {
		kind: KindPaymentFailed,
		params: func(_ *Planner, o domain.Order, _ Transition, links Links) []Param {
			return []Param{{Key: ParamRetryLink, Value: links.Retry(o.ID)}}
		},
	},
}

// Planner maps a transition to the notifications it implies.
type Planner struct {
	defaultCarrier string
}

func NewPlanner(defaultCarrier string) *Planner {
	if defaultCarrier == "" {
		defaultCarrier = "Standard Delivery"
	}
	return &Planner{defaultCarrier: defaultCarrier}
}

// Plan evaluates the status dimension and then the payment dimension. Each
// kind appears at most once. Orders without a phone number get nothing.
func (p *Planner) Plan(order domain.Order, tr Transition, links Links) []Action {
	if order.CustomerPhone == "" {
		return nil
	}

	var matched []rule
	if tr.StatusChanged() {
		if r, ok := statusRules[tr.NewStatus]; ok {
			matched = append(matched, r)
		}
	}
	if tr.PaymentChanged() {
		if r, ok := paymentRules[tr.NewPaymentStatus]; ok {
			matched = append(matched, r)
		}
	}

	seen := make(map[Kind]bool, len(matched))
	actions := make([]Action, 0, len(matched))
	for _, r := range matched {
		if seen[r.kind] || (r.when != nil && !r.when(order, tr)) {
			continue
		}
		seen[r.kind] = true

		params := baseParams(order)
		if r.params != nil {
			params = mergeParams(params, r.params(p, order, tr, links))
		}

		actions = append(actions, Action{
			Kind:           r.kind,
			OrderID:        order.ID,
			RecipientPhone: order.CustomerPhone,
			RecipientEmail: order.CustomerEmail,
			Params:         params,
		})
	}

	return actions
}

func baseParams(o domain.Order) []Param {
	date := ""
	if !o.CreatedAt.IsZero() {
		date = o.CreatedAt.Format(orderDateLayout)
	}
	return []Param{
		{Key: ParamCustomerName, Value: o.CustomerName},
		{Key: ParamOrderID, Value: o.ID},
		{Key: ParamAmount, Value: formatAmount(o.Amount())},
		{Key: ParamOrderDate, Value: date},
		{Key: ParamProductDetails, Value: o.ProductDetails()},
	}
}

// mergeParams overrides existing keys in place and appends new ones.
func mergeParams(base, extra []Param) []Param {
	for _, e := range extra {
		replaced := false
		for i := range base {
			if base[i].Key == e.Key {
				base[i].Value = e.Value
				replaced = true
				break
			}
		}
		if !replaced {
			base = append(base, e)
		}
	}
	return base
}

func paymentSuccessParams(_ *Planner, o domain.Order, _ Transition, _ Links) []Param {
	return []Param{{Key: ParamAmount, Value: formatAmount(o.Amount())}}
}

func shippedParams(p *Planner, o domain.Order, tr Transition, links Links) []Param {
	tracking := links.Track(o.ID)
	if tr.Patch.TrackingLink != nil && *tr.Patch.TrackingLink != "" {
		tracking = *tr.Patch.TrackingLink
	}

	carrier := p.defaultCarrier
	switch {
	case tr.Patch.ShippingCarrier != nil && *tr.Patch.ShippingCarrier != "":
		carrier = *tr.Patch.ShippingCarrier
	case o.ShippingCarrier != "":
		carrier = o.ShippingCarrier
	}

	return []Param{
		{Key: ParamTrackingLink, Value: tracking},
		{Key: ParamCarrier, Value: carrier},
	}
}

func refundParams(_ *Planner, o domain.Order, tr Transition, _ Links) []Param {
	amount := o.Amount()
	switch {
	case tr.Patch.HasRefund():
		amount = *tr.Patch.RefundAmount
	case o.HasRefund():
		amount = *o.RefundAmount
	}
	return []Param{{Key: ParamAmount, Value: formatAmount(amount)}}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
