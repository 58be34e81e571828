package product

import (
	"database/sql"

	"go.uber.org/zap"

	"crmgateway/internal/config"
	"crmgateway/internal/infrastructure/pocketbase"
	"crmgateway/internal/product/repository"
)

// NewModule builds the catalog endpoints on the configured storage driver.
func NewModule(cfg *config.Config, pb *pocketbase.Client, db *sql.DB, logger *zap.Logger) *Controller {
	var repo Repository
	if cfg.Storage.Driver == config.StorageDriverMySQL {
		repo = repository.NewMySQLRepository(db)
	} else {
		repo = repository.NewPocketBaseRepository(pb)
	}

	return NewController(NewUseCase(NewService(repo)), logger)
}
