package repository

import (
	"context"
	"database/sql"
	"fmt"

	"crmgateway/internal/domain"
	"crmgateway/internal/errors"
)

type MySQLTemplateRepository struct {
	db *sql.DB
}

func NewMySQLTemplateRepository(db *sql.DB) *MySQLTemplateRepository {
	return &MySQLTemplateRepository{db: db}
}

func (r *MySQLTemplateRepository) FindActiveByName(ctx context.Context, name string) (*domain.Template, error) {
	query := `
		SELECT id, name, content, isActive, requiresAdditionalInfo,
		       additionalInfoLabel, additionalInfoPlaceholder
		FROM MessageTemplates
		WHERE name = ? AND isActive = 1
		ORDER BY updatedAt DESC
		LIMIT 1
	`

	var t domain.Template
	err := r.db.QueryRowContext(ctx, query, name).Scan(
		&t.ID, &t.Name, &t.Content, &t.IsActive, &t.RequiresAdditionalInfo,
		&t.AdditionalInfoLabel, &t.AdditionalInfoPlaceholder,
	)

	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("template %q not found", name))
	}
	if err != nil {
		return nil, fmt.Errorf("querying template by name: %w", err)
	}

	return &t, nil
}
