package product

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"crmgateway/internal/dto"
	apperrors "crmgateway/internal/errors"
)

const maxSearchIDs = 100

type Controller struct {
	useCase UseCase
	logger  *zap.Logger
}

func NewController(useCase UseCase, logger *zap.Logger) *Controller {
	return &Controller{
		useCase: useCase,
		logger:  logger,
	}
}

func (c *Controller) Routes(r chi.Router) {
	r.Get("/", c.HandleListProducts)
	r.Post("/search", c.HandleSearchProducts)
}

func (c *Controller) HandleListProducts(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()

	query, err := dto.ParseListQuery(r)
	if err != nil {
		ve, _ := apperrors.IsValidationError(err)
		c.writeValidationError(w, traceID, ve.Message, ve.Details...)
		return
	}

	page, err := c.useCase.ListProducts(r.Context(), query)
	if err != nil {
		c.handleError(w, traceID, err)
		return
	}

	items := make([]ProductDTO, 0, len(page.Items))
	for _, p := range page.Items {
		items = append(items, NewProductDTO(p))
	}

	c.writeJSON(w, http.StatusOK, dto.ListResponse[ProductDTO]{
		TraceID:    traceID,
		Page:       page.Page,
		PerPage:    page.PerPage,
		TotalItems: page.TotalItems,
		Items:      items,
	})
}

func (c *Controller) HandleSearchProducts(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()

	var req SearchProductsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeValidationError(w, traceID, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	if err := validateSearchRequest(req); err != nil {
		ve, _ := apperrors.IsValidationError(err)
		c.writeValidationError(w, traceID, ve.Message, ve.Details...)
		return
	}

	resp, err := c.useCase.SearchProducts(r.Context(), req)
	if err != nil {
		c.handleError(w, traceID, err)
		return
	}

	resp.TraceID = traceID
	c.writeJSON(w, http.StatusOK, resp)
}

func validateSearchRequest(req SearchProductsRequest) error {
	if len(req.ProductIDs) == 0 {
		return apperrors.NewValidationError("productIds is required", apperrors.ValidationDetail{
			Field:   "productIds",
			Message: "productIds must not be empty",
		})
	}

	if len(req.ProductIDs) > maxSearchIDs {
		msg := "productIds exceeds maximum of 100"
		return apperrors.NewValidationError(msg, apperrors.ValidationDetail{
			Field:   "productIds",
			Message: msg,
		})
	}

	for _, id := range req.ProductIDs {
		if strings.TrimSpace(id) == "" {
			msg := "each productId must be a non-empty string"
			return apperrors.NewValidationError(msg, apperrors.ValidationDetail{
				Field:   "productIds",
				Message: msg,
			})
		}
	}

	return nil
}

func (c *Controller) handleError(w http.ResponseWriter, traceID string, err error) {
	logger := c.logger.With(zap.String("traceId", traceID))

	if ve, ok := apperrors.IsValidationError(err); ok {
		c.writeValidationError(w, traceID, ve.Message, ve.Details...)
		return
	}

	if _, ok := apperrors.IsAuthExpiredError(err); ok {
		logger.Error("product store rejected credentials", zap.Error(err))
		c.writeError(w, traceID, http.StatusBadGateway, "AUTH_EXPIRED", "persistence service rejected our credentials")
		return
	}

	if _, ok := apperrors.IsNetworkError(err); ok {
		logger.Error("product store unreachable", zap.Error(err))
		c.writeError(w, traceID, http.StatusServiceUnavailable, "UNAVAILABLE", "persistence service unavailable")
		return
	}

	logger.Error("product request failed", zap.Error(err))
	c.writeError(w, traceID, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
}

type validationErrorResponse struct {
	TraceID string                       `json:"traceId"`
	Error   string                       `json:"error"`
	Message string                       `json:"message"`
	Details []apperrors.ValidationDetail `json:"details"`
}

func (c *Controller) writeValidationError(w http.ResponseWriter, traceID, message string, details ...apperrors.ValidationDetail) {
	c.writeJSON(w, http.StatusBadRequest, validationErrorResponse{
		TraceID: traceID,
		Error:   "VALIDATION_ERROR",
		Message: message,
		Details: details,
	})
}

func (c *Controller) writeError(w http.ResponseWriter, traceID string, status int, code, message string) {
	c.writeJSON(w, status, dto.ErrorResponse{
		TraceID:   traceID,
		Status:    status,
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

func (c *Controller) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
