package migrate_test

import (
	"strings"
	"testing"
)

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_orders_tables.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CREATE TABLE IF NOT EXISTS order_line_items",
		"FOREIGN KEY (buyer_id) REFERENCES users(id) ON DELETE RESTRICT",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"CHECK (subtotal_cents >= 0)",
		"CHECK (quantity > 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_order_number",
		"CREATE INDEX IF NOT EXISTS idx_orders_buyer_id_created_at",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created_at",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestWalletMigrationContainsBalanceChecks(t *testing.T) {
	content := readMigration(t, "*_create_wallet_tables.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS wallet_transactions",
		"CREATE TABLE IF NOT EXISTS wallet_topups",
		"CHECK (balance_before_cents >= 0)",
		"CHECK (balance_after_cents >= 0)",
		"CHECK (amount_cents > 0)",
		"FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE RESTRICT",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOutboxMigrationContainsUnpublishedIndex(t *testing.T) {
	content := readMigration(t, "*_create_outbox_tables.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS outbox_events",
		"CREATE TABLE IF NOT EXISTS outbox_dlq",
		"payload JSONB NOT NULL",
		"payload_json JSONB NOT NULL",
		"WHERE published_at IS NULL",
		"error_reason outbox_dlq_error_reason_enum NOT NULL",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
