package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"crmgateway/internal/domain"
	"crmgateway/internal/errors"
	"crmgateway/internal/infrastructure/pocketbase"
)

const templatesCollection = "whatsapp_templates"

type RecordLister interface {
	List(ctx context.Context, collection string, q domain.ListQuery) (*pocketbase.ListResult, error)
}

type templateRecord struct {
	ID                        string `json:"id"`
	Name                      string `json:"name"`
	Content                   string `json:"content"`
	IsActive                  bool   `json:"isActive"`
	RequiresAdditionalInfo    bool   `json:"requiresAdditionalInfo"`
	AdditionalInfoLabel       string `json:"additionalInfoLabel"`
	AdditionalInfoPlaceholder string `json:"additionalInfoPlaceholder"`
}

func (r templateRecord) toDomain() domain.Template {
	return domain.Template{
		ID:                        r.ID,
		Name:                      r.Name,
		Content:                   r.Content,
		IsActive:                  r.IsActive,
		RequiresAdditionalInfo:    r.RequiresAdditionalInfo,
		AdditionalInfoLabel:       r.AdditionalInfoLabel,
		AdditionalInfoPlaceholder: r.AdditionalInfoPlaceholder,
	}
}

type PocketBaseTemplateRepository struct {
	client RecordLister
}

func NewPocketBaseTemplateRepository(client RecordLister) *PocketBaseTemplateRepository {
	return &PocketBaseTemplateRepository{client: client}
}

// FindActiveByName returns the most recently updated active template with
// the given name. Duplicates are tolerated.
func (r *PocketBaseTemplateRepository) FindActiveByName(ctx context.Context, name string) (*domain.Template, error) {
	result, err := r.client.List(ctx, templatesCollection, domain.ListQuery{
		Page:    1,
		PerPage: 1,
		Filter:  fmt.Sprintf("name = '%s' && isActive = true", escapeFilterValue(name)),
		Sort:    "-updated",
	})
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}

	if len(result.Items) == 0 {
		return nil, errors.NewNotFoundError(fmt.Sprintf("template %q not found", name))
	}

	var rec templateRecord
	if err := json.Unmarshal(result.Items[0], &rec); err != nil {
		return nil, fmt.Errorf("decoding template record: %w", err)
	}

	tmpl := rec.toDomain()
	return &tmpl, nil
}

func escapeFilterValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `'`, `\'`)
}
