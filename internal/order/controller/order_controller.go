package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"crmgateway/internal/domain"
	"crmgateway/internal/dto"
	apperrors "crmgateway/internal/errors"
	"crmgateway/internal/notification"
)

type OrderUseCase interface {
	UpdateOrder(ctx context.Context, id string, patch domain.OrderPatch) (*domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context, q domain.ListQuery) (*domain.Page[domain.Order], error)
}

type OrderController struct {
	useCase OrderUseCase
	logger  *zap.Logger
}

func NewOrderController(useCase OrderUseCase, logger *zap.Logger) *OrderController {
	return &OrderController{
		useCase: useCase,
		logger:  logger,
	}
}

// Routes mounts the order endpoints on r.
func (c *OrderController) Routes(r chi.Router) {
	r.Get("/", c.ListOrders)
	r.Get("/{orderId}", c.GetOrder)
	r.Patch("/{orderId}", c.UpdateOrder)
}

func (c *OrderController) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	orderID := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if orderID == "" {
		c.writeValidationError(w, traceID, "invalid orderId", apperrors.ValidationDetail{
			Field:   "orderId",
			Message: "orderId is required",
		})
		return
	}

	var req dto.UpdateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, traceID, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	if err := validateUpdateOrderRequest(req); err != nil {
		ve, _ := apperrors.IsValidationError(err)
		c.writeValidationError(w, traceID, ve.Message, ve.Details...)
		return
	}

	ctx := notification.WithOrigin(r.Context(), requestOrigin(r))
	order, err := c.useCase.UpdateOrder(ctx, orderID, req.ToPatch())
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger.With(zap.String("orderId", orderID)))
		return
	}

	c.writeJSON(w, http.StatusOK, dto.OrderEnvelope{TraceID: traceID, Order: dto.NewOrderResponse(*order)})
}

func (c *OrderController) GetOrder(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	orderID := chi.URLParam(r, "orderId")
	order, err := c.useCase.GetOrder(r.Context(), orderID)
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger.With(zap.String("orderId", orderID)))
		return
	}

	c.writeJSON(w, http.StatusOK, dto.OrderEnvelope{TraceID: traceID, Order: dto.NewOrderResponse(*order)})
}

func (c *OrderController) ListOrders(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	query, err := dto.ParseListQuery(r)
	if err != nil {
		ve, _ := apperrors.IsValidationError(err)
		c.writeValidationError(w, traceID, ve.Message, ve.Details...)
		return
	}

	page, err := c.useCase.ListOrders(r.Context(), query)
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	items := make([]dto.OrderResponse, 0, len(page.Items))
	for _, o := range page.Items {
		items = append(items, dto.NewOrderResponse(o))
	}

	c.writeJSON(w, http.StatusOK, dto.ListResponse[dto.OrderResponse]{
		TraceID:    traceID,
		Page:       page.Page,
		PerPage:    page.PerPage,
		TotalItems: page.TotalItems,
		Items:      items,
	})
}

func validateUpdateOrderRequest(req dto.UpdateOrderRequest) error {
	var details []apperrors.ValidationDetail

	if req.Status == nil && req.PaymentStatus == nil && req.TrackingLink == nil &&
		req.ShippingCarrier == nil && req.RefundAmount == nil && req.CustomerPhone == nil {
		details = append(details, apperrors.ValidationDetail{
			Field:   "body",
			Message: "at least one field must be provided",
		})
	}

	if req.Status != nil && !domain.OrderStatus(*req.Status).Valid() {
		details = append(details, apperrors.ValidationDetail{
			Field:   "status",
			Message: "status must be one of pending, processing, shipped, out_for_delivery, delivered, cancelled",
		})
	}

	if req.PaymentStatus != nil && !domain.PaymentStatus(*req.PaymentStatus).Valid() {
		details = append(details, apperrors.ValidationDetail{
			Field:   "payment_status",
			Message: "payment_status must be one of pending, paid, failed",
		})
	}

	if req.RefundAmount != nil && *req.RefundAmount < 0 {
		details = append(details, apperrors.ValidationDetail{
			Field:   "refund_amount",
			Message: "refund_amount must be non-negative",
		})
	}

	if len(details) > 0 {
		return apperrors.NewValidationError("validation failed", details...)
	}

	return nil
}

// requestOrigin is the scheme://host the caller used to reach us.
func requestOrigin(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" && origin != "null" {
		return origin
	}

	if host := r.Header.Get("X-Forwarded-Host"); host != "" {
		proto := r.Header.Get("X-Forwarded-Proto")
		if proto == "" {
			proto = "https"
		}
		return firstValue(proto) + "://" + firstValue(host)
	}

	if r.Host != "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		return scheme + "://" + r.Host
	}

	return ""
}

func firstValue(v string) string {
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

func (c *OrderController) handleUseCaseError(w http.ResponseWriter, traceID string, err error, logger *zap.Logger) {
	if ve, ok := apperrors.IsValidationError(err); ok {
		c.writeValidationError(w, traceID, ve.Message, ve.Details...)
		return
	}

	if _, ok := apperrors.IsNotFoundError(err); ok {
		c.writeErrorResponse(w, traceID, http.StatusNotFound, "NOT_FOUND", "order not found")
		return
	}

	if _, ok := apperrors.IsAuthExpiredError(err); ok {
		logger.Error("persistence authentication failed", zap.Error(err))
		c.writeErrorResponse(w, traceID, http.StatusBadGateway, "AUTH_EXPIRED", "persistence service rejected our credentials")
		return
	}

	if _, ok := apperrors.IsNetworkError(err); ok {
		logger.Error("persistence unreachable", zap.Error(err))
		c.writeErrorResponse(w, traceID, http.StatusServiceUnavailable, "UNAVAILABLE", "persistence service unavailable")
		return
	}

	logger.Error("unexpected error", zap.Error(err))
	c.writeErrorResponse(w, traceID, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
}

func (c *OrderController) writeErrorResponse(w http.ResponseWriter, traceID string, statusCode int, code string, message string) {
	c.writeJSON(w, statusCode, dto.ErrorResponse{
		TraceID:   traceID,
		Status:    statusCode,
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

type validationErrorResponse struct {
	TraceID string                       `json:"traceId"`
	Error   string                       `json:"error"`
	Message string                       `json:"message"`
	Details []apperrors.ValidationDetail `json:"details"`
}

func (c *OrderController) writeValidationError(w http.ResponseWriter, traceID string, message string, details ...apperrors.ValidationDetail) {
	c.writeJSON(w, http.StatusBadRequest, validationErrorResponse{
		TraceID: traceID,
		Error:   "VALIDATION_ERROR",
		Message: message,
		Details: details,
	})
}

func (c *OrderController) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
