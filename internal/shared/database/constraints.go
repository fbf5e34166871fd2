package database

import (
	"gorm.io/gorm"
)

// ledgerConstraints backs the invariants the ledger relies on but AutoMigrate cannot express
var ledgerConstraints = []string{
	// A hold converts into tickets at most once
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_tickets_hold_seq ON tickets (hold_id, seq)`,

	// One order per hold, one order per processor transaction
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_orders_hold ON orders (hold_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_orders_processor_txn ON orders (processor_txn_id) WHERE processor_txn_id IS NOT NULL`,

	// Capacity scans only touch live holds
	`CREATE INDEX IF NOT EXISTS idx_holds_active_expiry ON holds (tier_id, expires_at) WHERE status = 'active'`,

	// Reconciler sweep over stale pending orders
	`CREATE INDEX IF NOT EXISTS idx_orders_pending_created ON orders (created_at) WHERE status = 'payment_pending'`,

	// Webhook deliveries are recorded once
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_processor_events_delivery ON processor_events (provider, provider_event_id)`,
}

// MigrateConstraints adds the database constraints concurrency control depends on
func MigrateConstraints(db *gorm.DB) error {
	for _, stmt := range ledgerConstraints {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
