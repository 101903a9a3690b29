package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestProductsMigrationContainsSchemas(t *testing.T) {
	content := readMigration(t, "*_create_products_table.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS products",
		"CREATE TABLE IF NOT EXISTS price_ranges",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_products_sku",
		"CREATE INDEX IF NOT EXISTS idx_price_ranges_product",
		"auto_price_enabled boolean NOT NULL DEFAULT false",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMarketplaceMigrationContainsSchemas(t *testing.T) {
	content := readMigration(t, "*_create_marketplace_accounts.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS marketplace_accounts",
		"CREATE TABLE IF NOT EXISTS marketplace_credentials",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_marketplace_accounts_key",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_marketplace_credentials_key",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
