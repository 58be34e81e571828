package notification

// Kind names a customer notification. The value doubles as the template
// name looked up in the template store.
type Kind string

const (
	KindPaymentSuccess     Kind = "payment_success"
	KindPaymentFailed      Kind = "payment_failed"
	KindOrderShipped       Kind = "order_shipped"
	KindOutForDelivery     Kind = "out_for_delivery"
	KindOrderDelivered     Kind = "order_delivered"
	KindRefundConfirmation Kind = "refund_confirmation"
)

const (
	ParamCustomerName   = "customerName"
	ParamOrderID        = "orderId"
	ParamAmount         = "amount"
	ParamOrderDate      = "orderDate"
	ParamProductDetails = "productDetails"
	ParamTrackingLink   = "trackingLink"
	ParamCarrier        = "carrier"
	ParamFeedbackLink   = "feedbackLink"
	ParamRetryLink      = "retryLink"
)

type Param struct {
	Key   string
	Value string
}

// Action is one notification to send. It is built per transition, handed
// to the senders once and then dropped.
type Action struct {
	Kind           Kind
	OrderID        string
	RecipientPhone string
	RecipientEmail string
	Params         []Param
}

func (a Action) Values() map[string]string {
	values := make(map[string]string, len(a.Params))
	for _, p := range a.Params {
		values[p.Key] = p.Value
	}
	return values
}
