package usecase

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"crmgateway/internal/domain"
	"crmgateway/internal/notification"
)

type OrderRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	Update(ctx context.Context, id string, patch domain.OrderPatch) (*domain.Order, error)
	List(ctx context.Context, q domain.ListQuery) (*domain.Page[domain.Order], error)
}

// Dispatcher starts notification sends in the background. Its outcome is
// never part of the use case result.
type Dispatcher interface {
	Dispatch(ctx context.Context, order domain.Order, tr notification.Transition) int
}

type OrderUseCase struct {
	orderRepo        OrderRepository
	dispatcher       Dispatcher
	logger           *zap.Logger
	maxRetryAttempts int
}

func NewOrderUseCase(
	orderRepo OrderRepository,
	dispatcher Dispatcher,
	logger *zap.Logger,
	maxRetryAttempts int,
) *OrderUseCase {
	if maxRetryAttempts < 1 {
		maxRetryAttempts = 1
	}
	return &OrderUseCase{
		orderRepo:        orderRepo,
		dispatcher:       dispatcher,
		logger:           logger,
		maxRetryAttempts: maxRetryAttempts,
	}
}

// UpdateOrder persists patch and, when status or payment status moved,
// hands the transition to the dispatcher. The snapshot read and the write
// are not atomic.
func (uc *OrderUseCase) UpdateOrder(ctx context.Context, id string, patch domain.OrderPatch) (*domain.Order, error) {
	uc.logger.Info("update order started", zap.String("orderId", id))

	current, err := uc.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.IsEmpty() {
		return current, nil
	}

	oldStatus, oldPayment := current.Status, current.PaymentStatus

	updated, err := uc.updateWithRetry(ctx, id, patch)
	if err != nil {
		uc.logger.Error("order update failed", zap.String("orderId", id), zap.Error(err))
		return nil, err
	}

	tr := notification.Transition{
		OldStatus:        oldStatus,
		NewStatus:        updated.Status,
		OldPaymentStatus: oldPayment,
		NewPaymentStatus: updated.PaymentStatus,
		Patch:            patch,
	}
	if tr.Changed() {
		started := uc.dispatcher.Dispatch(ctx, *updated, tr)
		uc.logger.Info("order transition",
			zap.String("orderId", id),
			zap.String("from", string(oldStatus)),
			zap.String("to", string(updated.Status)),
			zap.String("paymentFrom", string(oldPayment)),
			zap.String("paymentTo", string(updated.PaymentStatus)),
			zap.Int("notifications", started),
		)
	}

	return updated, nil
}

func (uc *OrderUseCase) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return uc.orderRepo.FindByID(ctx, id)
}

func (uc *OrderUseCase) ListOrders(ctx context.Context, q domain.ListQuery) (*domain.Page[domain.Order], error) {
	return uc.orderRepo.List(ctx, q)
}

// updateWithRetry retries lock conflicts from the SQL backend. Any other
// error, and the last conflict, is returned as is.
func (uc *OrderUseCase) updateWithRetry(ctx context.Context, id string, patch domain.OrderPatch) (*domain.Order, error) {
	// Backoff intervals: attempt 1 (0ms), attempt 2 (100ms), attempt 3 (200ms), etc.
	backoffs := []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond}

	var err error
	for attempt := 1; attempt <= uc.maxRetryAttempts; attempt++ {
		var order *domain.Order
		order, err = uc.orderRepo.Update(ctx, id, patch)
		if err == nil {
			return order, nil
		}
		if !isDeadlockError(err) || attempt == uc.maxRetryAttempts {
			return nil, err
		}

		base := backoffs[min(attempt-1, len(backoffs)-1)]
		// ±20% jitter
		wait := time.Duration(float64(base) * (0.8 + rand.Float64()*0.4))
		uc.logger.Warn("lock conflict, retrying",
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", uc.maxRetryAttempts),
			zap.String("orderId", id),
		)

		select {
		case <-ctx.Done():
			return nil, err
		case <-time.After(wait):
		}
	}
	return nil, err
}

func isDeadlockError(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1213 || mysqlErr.Number == 1205
	}
	return false
}

