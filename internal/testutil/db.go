package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"ticketing/internal/schema"
	"ticketing/internal/shared/database"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// integrationLockKey serializes integration packages sharing one database
const integrationLockKey = 731_2026

var truncateTables = []string{
	"checkins", "tickets", "order_timeline", "orders", "holds",
	"ticket_tiers", "events", "profiles", "processor_events",
}

// OpenPostgres connects to TEST_DATABASE_URL, migrates, and truncates every
// table. The test is skipped when the variable is unset or unreachable.
func OpenPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Skipf("postgres unreachable: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		t.Skipf("postgres unreachable: %v", err)
	}

	// a dedicated connection carries the session advisory lock for the whole test
	conn, err := sqlDB.Conn(context.Background())
	if err != nil {
		t.Fatalf("conn: %v", err)
	}
	if _, err := conn.ExecContext(context.Background(), "SELECT pg_advisory_lock($1)", integrationLockKey); err != nil {
		t.Fatalf("advisory lock: %v", err)
	}
	t.Cleanup(func() {
		_, _ = conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", integrationLockKey)
		_ = conn.Close()
		_ = sqlDB.Close()
	})

	if err := database.Migrate(db, schema.Models()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := database.MigrateConstraints(db); err != nil {
		t.Fatalf("constraints: %v", err)
	}
	for _, table := range truncateTables {
		if err := db.Exec("TRUNCATE TABLE " + table + " CASCADE").Error; err != nil {
			t.Fatalf("truncate %s: %v", table, err)
		}
	}
	return db
}
