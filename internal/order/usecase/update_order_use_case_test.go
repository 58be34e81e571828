package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"crmgateway/internal/domain"
	apperrors "crmgateway/internal/errors"
	"crmgateway/internal/infrastructure/whatsapp"
	"crmgateway/internal/notification"
)

// Helper to create a MySQL deadlock error for testing
func createDeadlockError() error {
	return &mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}
}

func newTestOrderUseCase(repo OrderRepository, dispatcher Dispatcher) *OrderUseCase {
	return NewOrderUseCase(repo, dispatcher, zap.NewNop(), 3)
}

// Mock implementations
type mockOrderRepository struct {
	FindByIDFunc func(ctx context.Context, id string) (*domain.Order, error)
	UpdateFunc   func(ctx context.Context, id string, patch domain.OrderPatch) (*domain.Order, error)
	ListFunc     func(ctx context.Context, q domain.ListQuery) (*domain.Page[domain.Order], error)
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	return m.FindByIDFunc(ctx, id)
}

func (m *mockOrderRepository) Update(ctx context.Context, id string, patch domain.OrderPatch) (*domain.Order, error) {
	return m.UpdateFunc(ctx, id, patch)
}

func (m *mockOrderRepository) List(ctx context.Context, q domain.ListQuery) (*domain.Page[domain.Order], error) {
	return m.ListFunc(ctx, q)
}

type dispatchCall struct {
	order domain.Order
	tr    notification.Transition
}

type mockDispatcher struct {
	calls []dispatchCall
}

func (m *mockDispatcher) Dispatch(ctx context.Context, order domain.Order, tr notification.Transition) int {
	m.calls = append(m.calls, dispatchCall{order: order, tr: tr})
	return 1
}

// memoryRepository keeps one order and applies patches to it.
func memoryRepository(order domain.Order) *mockOrderRepository {
	var mu sync.Mutex
	return &mockOrderRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.Order, error) {
			mu.Lock()
			defer mu.Unlock()
			if id != order.ID {
				return nil, apperrors.NewNotFoundError("order not found")
			}
			o := order
			return &o, nil
		},
		UpdateFunc: func(ctx context.Context, id string, patch domain.OrderPatch) (*domain.Order, error) {
			mu.Lock()
			defer mu.Unlock()
			if id != order.ID {
				return nil, apperrors.NewNotFoundError("order not found")
			}
			order = patch.Apply(order)
			o := order
			return &o, nil
		},
	}
}

func pendingOrder() domain.Order {
	return domain.Order{
		ID:            "O1",
		CustomerName:  "Asha",
		CustomerPhone: "+919999999999",
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusPending,
		Total:         1499,
	}
}

func ptr[T any](v T) *T { return &v }

// Tests

func TestUpdateOrder_NotFound(t *testing.T) {
	dispatcher := &mockDispatcher{}
	uc := newTestOrderUseCase(memoryRepository(pendingOrder()), dispatcher)

	_, err := uc.UpdateOrder(context.Background(), "missing", domain.OrderPatch{Status: ptr(domain.OrderStatusShipped)})

	if _, ok := apperrors.IsNotFoundError(err); !ok {
		t.Errorf("expected NotFoundError, got %T", err)
	}
	if len(dispatcher.calls) != 0 {
		t.Errorf("expected no dispatch, got %d", len(dispatcher.calls))
	}
}

func TestUpdateOrder_PersistenceFailureIsReturnedUnchanged(t *testing.T) {
	persistErr := apperrors.NewNetworkError("PATCH orders/O1", errors.New("connection reset"))
	repo := memoryRepository(pendingOrder())
	repo.UpdateFunc = func(ctx context.Context, id string, patch domain.OrderPatch) (*domain.Order, error) {
		return nil, persistErr
	}
	dispatcher := &mockDispatcher{}
	uc := newTestOrderUseCase(repo, dispatcher)

	order, err := uc.UpdateOrder(context.Background(), "O1", domain.OrderPatch{Status: ptr(domain.OrderStatusShipped)})

	if order != nil {
		t.Errorf("expected nil order, got %+v", order)
	}
	if err != persistErr {
		t.Errorf("expected the original error, got %v", err)
	}
	if len(dispatcher.calls) != 0 {
		t.Errorf("expected no dispatch, got %d", len(dispatcher.calls))
	}
}

func TestUpdateOrder_DispatchesTransition(t *testing.T) {
	dispatcher := &mockDispatcher{}
	uc := newTestOrderUseCase(memoryRepository(pendingOrder()), dispatcher)

	patch := domain.OrderPatch{Status: ptr(domain.OrderStatusShipped), TrackingLink: ptr("https://carrier.test/1")}
	order, err := uc.UpdateOrder(context.Background(), "O1", patch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if order.Status != domain.OrderStatusShipped {
		t.Errorf("expected shipped, got %s", order.Status)
	}
	if len(dispatcher.calls) != 1 {
		t.Fatalf("expected 1 dispatch, got %d", len(dispatcher.calls))
	}

	tr := dispatcher.calls[0].tr
	if tr.OldStatus != domain.OrderStatusPending || tr.NewStatus != domain.OrderStatusShipped {
		t.Errorf("unexpected status transition %s -> %s", tr.OldStatus, tr.NewStatus)
	}
	if tr.PaymentChanged() {
		t.Errorf("payment status should be unchanged")
	}
	if tr.Patch.TrackingLink == nil || *tr.Patch.TrackingLink != "https://carrier.test/1" {
		t.Errorf("patch not forwarded to dispatcher")
	}
}

func TestUpdateOrder_NoTransitionNoDispatch(t *testing.T) {
	dispatcher := &mockDispatcher{}
	uc := newTestOrderUseCase(memoryRepository(pendingOrder()), dispatcher)

	_, err := uc.UpdateOrder(context.Background(), "O1", domain.OrderPatch{
		Status:       ptr(domain.OrderStatusPending),
		TrackingLink: ptr("https://carrier.test/1"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(dispatcher.calls) != 0 {
		t.Errorf("expected no dispatch, got %d", len(dispatcher.calls))
	}
}

func TestUpdateOrder_IllegalTransitionAccepted(t *testing.T) {
	order := pendingOrder()
	order.Status = domain.OrderStatusDelivered
	uc := newTestOrderUseCase(memoryRepository(order), &mockDispatcher{})

	updated, err := uc.UpdateOrder(context.Background(), "O1", domain.OrderPatch{Status: ptr(domain.OrderStatusPending)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != domain.OrderStatusPending {
		t.Errorf("expected pending, got %s", updated.Status)
	}
}

func TestUpdateOrder_EmptyPatchIsARead(t *testing.T) {
	repo := memoryRepository(pendingOrder())
	repo.UpdateFunc = func(ctx context.Context, id string, patch domain.OrderPatch) (*domain.Order, error) {
		t.Fatal("update must not be called")
		return nil, nil
	}
	uc := newTestOrderUseCase(repo, &mockDispatcher{})

	order, err := uc.UpdateOrder(context.Background(), "O1", domain.OrderPatch{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.ID != "O1" {
		t.Errorf("expected O1, got %s", order.ID)
	}
}

func TestUpdateOrder_RetriesDeadlock(t *testing.T) {
	attempts := 0
	repo := memoryRepository(pendingOrder())
	inner := repo.UpdateFunc
	repo.UpdateFunc = func(ctx context.Context, id string, patch domain.OrderPatch) (*domain.Order, error) {
		attempts++
		if attempts < 2 {
			return nil, createDeadlockError()
		}
		return inner(ctx, id, patch)
	}
	uc := newTestOrderUseCase(repo, &mockDispatcher{})

	_, err := uc.UpdateOrder(context.Background(), "O1", domain.OrderPatch{Status: ptr(domain.OrderStatusProcessing)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestUpdateOrder_DeadlockExhausted(t *testing.T) {
	attempts := 0
	deadlock := createDeadlockError()
	repo := memoryRepository(pendingOrder())
	repo.UpdateFunc = func(ctx context.Context, id string, patch domain.OrderPatch) (*domain.Order, error) {
		attempts++
		return nil, deadlock
	}
	dispatcher := &mockDispatcher{}
	uc := newTestOrderUseCase(repo, dispatcher)

	_, err := uc.UpdateOrder(context.Background(), "O1", domain.OrderPatch{Status: ptr(domain.OrderStatusProcessing)})

	if err != deadlock {
		t.Errorf("expected the deadlock error, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if len(dispatcher.calls) != 0 {
		t.Errorf("expected no dispatch")
	}
}

func TestUpdateOrder_DoesNotRetryOtherErrors(t *testing.T) {
	attempts := 0
	repo := memoryRepository(pendingOrder())
	repo.UpdateFunc = func(ctx context.Context, id string, patch domain.OrderPatch) (*domain.Order, error) {
		attempts++
		return nil, &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	}
	uc := newTestOrderUseCase(repo, &mockDispatcher{})

	_, _ = uc.UpdateOrder(context.Background(), "O1", domain.OrderPatch{Status: ptr(domain.OrderStatusProcessing)})

	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

type recordingWhatsApp struct {
	mu       sync.Mutex
	messages []whatsapp.Message
}

func (r *recordingWhatsApp) Send(ctx context.Context, msg whatsapp.Message) whatsapp.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return whatsapp.Result{Success: true, MessageID: "wamid.1"}
}

// The O1 scenario end to end with the real dispatcher.
func TestUpdateOrder_ProcessingAndPaidSendsOnePaymentSuccess(t *testing.T) {
	wa := &recordingWhatsApp{}
	dispatcher := notification.NewDispatcher(
		notification.NewPlanner(""),
		notification.NewRenderer(nil, nil, zap.NewNop()),
		wa,
		nil,
		notification.Options{DefaultOrigin: "https://shop.test", SendTimeout: time.Second},
		zap.NewNop(),
	)
	uc := newTestOrderUseCase(memoryRepository(pendingOrder()), dispatcher)

	order, err := uc.UpdateOrder(context.Background(), "O1", domain.OrderPatch{
		Status:        ptr(domain.OrderStatusProcessing),
		PaymentStatus: ptr(domain.PaymentStatusPaid),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dispatcher.Wait()

	if order.Status != domain.OrderStatusProcessing || order.PaymentStatus != domain.PaymentStatusPaid {
		t.Errorf("expected processing/paid, got %s/%s", order.Status, order.PaymentStatus)
	}

	stored, _ := uc.GetOrder(context.Background(), "O1")
	if stored.Status != domain.OrderStatusProcessing || stored.PaymentStatus != domain.PaymentStatusPaid {
		t.Errorf("expected persisted processing/paid, got %s/%s", stored.Status, stored.PaymentStatus)
	}

	if len(wa.messages) != 1 {
		t.Fatalf("expected exactly one send, got %d", len(wa.messages))
	}
	msg := wa.messages[0]
	if msg.TemplateName != "payment_success" {
		t.Errorf("expected payment_success, got %s", msg.TemplateName)
	}
	var amount string
	for _, p := range msg.Params {
		if p.Name == notification.ParamAmount {
			amount = p.Value
		}
	}
	if amount != "1499.00" {
		t.Errorf("expected amount 1499.00, got %q", amount)
	}
}

func TestUpdateOrder_NoPhoneNoSend(t *testing.T) {
	wa := &recordingWhatsApp{}
	dispatcher := notification.NewDispatcher(
		notification.NewPlanner(""),
		notification.NewRenderer(nil, nil, zap.NewNop()),
		wa,
		nil,
		notification.Options{SendTimeout: time.Second},
		zap.NewNop(),
	)
	order := pendingOrder()
	order.CustomerPhone = ""
	uc := newTestOrderUseCase(memoryRepository(order), dispatcher)

	_, err := uc.UpdateOrder(context.Background(), "O1", domain.OrderPatch{PaymentStatus: ptr(domain.PaymentStatusFailed)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dispatcher.Wait()

	if len(wa.messages) != 0 {
		t.Errorf("expected no sends, got %d", len(wa.messages))
	}
}

func TestListOrders(t *testing.T) {
	repo := &mockOrderRepository{
		ListFunc: func(ctx context.Context, q domain.ListQuery) (*domain.Page[domain.Order], error) {
			if q.Filter != "status = 'shipped'" {
				t.Errorf("filter not forwarded: %q", q.Filter)
			}
			return &domain.Page[domain.Order]{Items: []domain.Order{{ID: "O2"}}, TotalItems: 1}, nil
		},
	}
	uc := newTestOrderUseCase(repo, &mockDispatcher{})

	page, err := uc.ListOrders(context.Background(), domain.ListQuery{Filter: "status = 'shipped'"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.TotalItems != 1 || page.Items[0].ID != "O2" {
		t.Errorf("unexpected page %+v", page)
	}
}
