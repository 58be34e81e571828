package testutil

import (
	"database/sql"
	"fmt"
	"os"
	"testing"

	_ "github.com/go-sql-driver/mysql"

	"crmgateway/internal/infrastructure/mysql"
)

// SetupTestDB opens the MySQL test database named by TEST_MYSQL_DSN
// (default root@localhost:3306/crm_test) and skips the test when it is not
// reachable.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		dsn = "root:@tcp(localhost:3306)/crm_test?parseTime=true&multiStatements=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("test database not available: %v", err)
	}

	return db
}

// SetupTestTables applies the embedded migrations.
func SetupTestTables(t *testing.T, db *sql.DB) {
	t.Helper()

	if err := mysql.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
}

// CleanupTestDB empties every table and closes the connection.
func CleanupTestDB(t *testing.T, db *sql.DB) {
	if db == nil {
		return
	}

	tables := []string{"OrderItems", "Orders", "Products", "MessageTemplates"}
	for _, table := range tables {
		_, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}

	db.Close()
}
