package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmgateway/internal/errors"
	"crmgateway/internal/testutil"
)

func TestNewMySQLTemplateRepository(t *testing.T) {
	db := &sql.DB{}
	repo := NewMySQLTemplateRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

func TestMySQLTemplateRepository_FindActiveByName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	_, err := db.Exec(`
		INSERT INTO MessageTemplates (id, name, content, isActive, updatedAt)
		VALUES ('t-old', 'order_delivered', 'old body', 1, '2024-01-01 00:00:00'),
		       ('t-new', 'order_delivered', 'new body', 1, '2024-06-01 00:00:00'),
		       ('t-off', 'order_delivered', 'inactive body', 0, '2025-01-01 00:00:00')
	`)
	require.NoError(t, err)

	repo := NewMySQLTemplateRepository(db)

	tmpl, err := repo.FindActiveByName(context.Background(), "order_delivered")
	require.NoError(t, err)
	assert.Equal(t, "t-new", tmpl.ID)
	assert.Equal(t, "new body", tmpl.Content)
}

func TestMySQLTemplateRepository_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLTemplateRepository(db)

	tmpl, err := repo.FindActiveByName(context.Background(), "missing")
	assert.Nil(t, tmpl)
	_, ok := errors.IsNotFoundError(err)
	assert.True(t, ok)
}
