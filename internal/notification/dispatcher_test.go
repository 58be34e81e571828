package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"crmgateway/internal/domain"
	"crmgateway/internal/infrastructure/email"
	"crmgateway/internal/infrastructure/whatsapp"
)

type mockWhatsApp struct {
	mu       sync.Mutex
	messages []whatsapp.Message
	SendFunc func(ctx context.Context, msg whatsapp.Message) whatsapp.Result
}

func (m *mockWhatsApp) Send(ctx context.Context, msg whatsapp.Message) whatsapp.Result {
	m.mu.Lock()
	m.messages = append(m.messages, msg)
	m.mu.Unlock()
	if m.SendFunc != nil {
		return m.SendFunc(ctx, msg)
	}
	return whatsapp.Result{Success: true, MessageID: "wamid.test"}
}

func (m *mockWhatsApp) sent() []whatsapp.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]whatsapp.Message(nil), m.messages...)
}

type mockEmail struct {
	mu     sync.Mutex
	emails []email.Email
}

func (m *mockEmail) Send(_ context.Context, e email.Email) email.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emails = append(m.emails, e)
	return email.Result{Success: true, Message: "ok"}
}

func newTestDispatcher(wa WhatsAppSender, em EmailSender) *Dispatcher {
	return NewDispatcher(
		NewPlanner("Standard Delivery"),
		NewRenderer(nil, nil, zap.NewNop()),
		wa,
		em,
		Options{DefaultOrigin: "https://default.test", SendTimeout: time.Second},
		zap.NewNop(),
	)
}

func TestDispatcher_Dispatch_SendsOnce(t *testing.T) {
	wa := &mockWhatsApp{}
	d := newTestDispatcher(wa, nil)

	updated, tr := transition(testOrder(), domain.OrderPatch{
		Status:        ptr(domain.OrderStatusProcessing),
		PaymentStatus: ptr(domain.PaymentStatusPaid),
	})

	started := d.Dispatch(context.Background(), updated, tr)
	d.Wait()

	assert.Equal(t, 1, started)
	sent := wa.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "payment_success", sent[0].TemplateName)
	assert.Equal(t, "+919999999999", sent[0].Phone)
	assert.Contains(t, sent[0].Body, "₹1499.00")
	assert.Contains(t, sent[0].Params, whatsapp.Param{Name: ParamAmount, Value: "1499.00"})
}

func TestDispatcher_Dispatch_UsesRequestOrigin(t *testing.T) {
	wa := &mockWhatsApp{}
	d := newTestDispatcher(wa, nil)

	updated, tr := transition(testOrder(), domain.OrderPatch{PaymentStatus: ptr(domain.PaymentStatusFailed)})

	d.Dispatch(WithOrigin(context.Background(), "http://localhost:5173"), updated, tr)
	d.Wait()

	sent := wa.sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Body, "http://localhost:5173/checkout/retry/O1")
}

func TestDispatcher_Dispatch_DefaultOrigin(t *testing.T) {
	wa := &mockWhatsApp{}
	d := newTestDispatcher(wa, nil)

	updated, tr := transition(testOrder(), domain.OrderPatch{Status: ptr(domain.OrderStatusShipped)})

	d.Dispatch(context.Background(), updated, tr)
	d.Wait()

	sent := wa.sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Body, "https://default.test/track/O1")
	assert.Contains(t, sent[0].Body, "Standard Delivery")
}

func TestDispatcher_Dispatch_NoPhone(t *testing.T) {
	wa := &mockWhatsApp{}
	d := newTestDispatcher(wa, nil)

	order := testOrder()
	order.CustomerPhone = ""
	updated, tr := transition(order, domain.OrderPatch{Status: ptr(domain.OrderStatusDelivered)})

	assert.Equal(t, 0, d.Dispatch(context.Background(), updated, tr))
	d.Wait()
	assert.Empty(t, wa.sent())
}

func TestDispatcher_Dispatch_UnchangedTransition(t *testing.T) {
	wa := &mockWhatsApp{}
	d := newTestDispatcher(wa, nil)

	order := testOrder()
	order.Status = domain.OrderStatusShipped
	updated, tr := transition(order, domain.OrderPatch{TrackingLink: ptr("https://carrier.test/1")})

	assert.Equal(t, 0, d.Dispatch(context.Background(), updated, tr))
	d.Wait()
	assert.Empty(t, wa.sent())
}

func TestDispatcher_Dispatch_SurvivesCallerCancellation(t *testing.T) {
	release := make(chan struct{})
	var sendCtxErr error
	wa := &mockWhatsApp{
		SendFunc: func(ctx context.Context, msg whatsapp.Message) whatsapp.Result {
			<-release
			sendCtxErr = ctx.Err()
			return whatsapp.Result{Success: true}
		},
	}
	d := newTestDispatcher(wa, nil)

	ctx, cancel := context.WithCancel(context.Background())
	updated, tr := transition(testOrder(), domain.OrderPatch{Status: ptr(domain.OrderStatusOutForDelivery)})
	d.Dispatch(ctx, updated, tr)
	cancel()
	close(release)
	d.Wait()

	assert.NoError(t, sendCtxErr)
}

func TestDispatcher_Dispatch_FailureIsOnlyLogged(t *testing.T) {
	wa := &mockWhatsApp{
		SendFunc: func(ctx context.Context, msg whatsapp.Message) whatsapp.Result {
			return whatsapp.Result{Success: false, Error: "boom"}
		},
	}
	d := newTestDispatcher(wa, nil)

	updated, tr := transition(testOrder(), domain.OrderPatch{Status: ptr(domain.OrderStatusDelivered)})

	assert.Equal(t, 1, d.Dispatch(context.Background(), updated, tr))
	d.Wait()
	assert.Len(t, wa.sent(), 1)
}

func TestDispatcher_Dispatch_RecoversPanics(t *testing.T) {
	wa := &mockWhatsApp{
		SendFunc: func(ctx context.Context, msg whatsapp.Message) whatsapp.Result {
			panic("sender bug")
		},
	}
	d := newTestDispatcher(wa, nil)

	updated, tr := transition(testOrder(), domain.OrderPatch{Status: ptr(domain.OrderStatusDelivered)})

	assert.NotPanics(t, func() {
		d.Dispatch(context.Background(), updated, tr)
		d.Wait()
	})
}

func TestDispatcher_Dispatch_EmailChannel(t *testing.T) {
	wa := &mockWhatsApp{}
	em := &mockEmail{}
	d := newTestDispatcher(wa, em)

	updated, tr := transition(testOrder(), domain.OrderPatch{
		Status:       ptr(domain.OrderStatusCancelled),
		RefundAmount: ptr(700.0),
	})

	d.Dispatch(context.Background(), updated, tr)
	d.Wait()

	require.Len(t, wa.sent(), 1)
	require.Len(t, em.emails, 1)
	assert.Equal(t, "asha@example.com", em.emails[0].To)
	assert.Equal(t, "Refund for order #O1", em.emails[0].Subject)
	assert.Contains(t, em.emails[0].Body, "₹700.00")
	assert.Equal(t, "700.00", em.emails[0].TemplateVars[ParamAmount])
}

func TestDispatcher_Dispatch_EmailSkippedWithoutAddress(t *testing.T) {
	em := &mockEmail{}
	d := newTestDispatcher(&mockWhatsApp{}, em)

	order := testOrder()
	order.CustomerEmail = ""
	updated, tr := transition(order, domain.OrderPatch{Status: ptr(domain.OrderStatusDelivered)})

	d.Dispatch(context.Background(), updated, tr)
	d.Wait()

	assert.Empty(t, em.emails)
}
