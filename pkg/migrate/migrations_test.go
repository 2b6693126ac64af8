package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const migrationsDir = "migrations"

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(migrationsDir, "*_"+suffix+".sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1, "expected exactly one %s migration", suffix)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func assertContainsAll(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		assert.Contains(t, content, sub)
	}
}

func TestShippedMigrationsValidate(t *testing.T) {
	require.NoError(t, ValidateDir(migrationsDir))
}

func TestOrdersMigrationConstraints(t *testing.T) {
	assertContainsAll(t, readMigration(t, "create_orders"), []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_order_number ON orders (order_number)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_payment_id ON orders (payment_id) WHERE payment_id IS NOT NULL",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_idempotency_key ON orders (idempotency_key) WHERE idempotency_key IS NOT NULL",
		"payment_status IN ('PENDING', 'VERIFICATION_PENDING', 'PAID', 'FAILED')",
		"verification_status IN ('UNSUBMITTED', 'AWAITING_REVIEW', 'APPROVED', 'REJECTED')",
		"total = subtotal + delivery_fee + tax",
		"CREATE TABLE IF NOT EXISTS order_items",
		"DROP TABLE IF EXISTS orders",
	})
}

func TestCatalogMigrationsKeepStockNonNegative(t *testing.T) {
	assertContainsAll(t, readMigration(t, "create_products"), []string{
		"CONSTRAINT products_stock_check CHECK (stock >= 0)",
		"CONSTRAINT products_price_check CHECK (price >= 0)",
	})
	assertContainsAll(t, readMigration(t, "create_cart_items"), []string{
		"CHECK (quantity > 0)",
		"ux_cart_items_user_product ON cart_items (user_id, product_id, variant_id)",
	})
	assertContainsAll(t, readMigration(t, "create_users"), []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_users_email",
	})
}

func TestOutboxMigrationTables(t *testing.T) {
	assertContainsAll(t, readMigration(t, "create_outbox"), []string{
		"CREATE TABLE IF NOT EXISTS outbox_events",
		"CREATE TABLE IF NOT EXISTS outbox_dlq",
		"payload_json jsonb NOT NULL",
		"WHERE published_at IS NULL",
	})
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	cases := map[string]map[string]string{
		"bad name": {
			"2026_orders.sql": "-- +goose Up\n-- +goose Down\n",
		},
		"duplicate version": {
			"20260101000000_a.sql": "-- +goose Up\n-- +goose Down\n",
			"20260101000000_b.sql": "-- +goose Up\n-- +goose Down\n",
		},
		"missing down": {
			"20260101000000_a.sql": "-- +goose Up\nSELECT 1;\n",
		},
		"unbalanced statements": {
			"20260101000000_a.sql": "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n",
		},
	}
	for name, files := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			for file, body := range files {
				require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(body), 0o644))
			}
			assert.Error(t, ValidateDir(dir))
		})
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 10, 1, 12, 30, 0, 0, time.UTC)

	path, err := createSQLMigration(dir, "Add Gift Wrap!", now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20261001123000_add_gift_wrap.sql"), path)
	require.NoError(t, ValidateDir(dir))

	_, err = createSQLMigration(dir, "add gift wrap", now)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "already exists"))

	_, err = createSQLMigration(dir, "!!!", now)
	assert.Error(t, err)
}

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("20260902090400")
	require.NoError(t, err)
	assert.Equal(t, int64(20260902090400), v)

	for _, raw := range []string{"", "2026", "2026090209040x"} {
		_, err := ParseVersion(raw)
		assert.Error(t, err, raw)
	}
}
