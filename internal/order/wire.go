package order

import (
	"database/sql"

	"go.uber.org/zap"

	"crmgateway/internal/config"
	"crmgateway/internal/infrastructure/pocketbase"
	"crmgateway/internal/order/controller"
	orderrepo "crmgateway/internal/order/repository"
	"crmgateway/internal/order/usecase"
)

// NewModule builds the order endpoints on top of the configured storage
// driver. db is only used with the mysql driver.
func NewModule(cfg *config.Config, pb *pocketbase.Client, db *sql.DB, dispatcher usecase.Dispatcher, logger *zap.Logger) *controller.OrderController {
	var repo usecase.OrderRepository
	if cfg.Storage.Driver == config.StorageDriverMySQL {
		repo = orderrepo.NewMySQLOrderRepository(db)
	} else {
		repo = orderrepo.NewPocketBaseOrderRepository(pb)
	}

	uc := usecase.NewOrderUseCase(repo, dispatcher, logger, cfg.Order.MaxRetryAttempts)
	return controller.NewOrderController(uc, logger)
}
