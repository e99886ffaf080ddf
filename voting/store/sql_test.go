package store

import (
	"context"
	"testing"
)

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	s, err := OpenSQL(context.Background(), DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLStore_SQLite(t *testing.T) {
	testStoreBehaviour(t, newSQLiteStore)
}

func TestOpenSQL_UnsupportedDriver(t *testing.T) {
	if _, err := OpenSQL(context.Background(), "mysql", ""); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestCreateSchema_Idempotent(t *testing.T) {
	s := newSQLiteStore(t).(*SQLStore)
	if err := CreateSchema(context.Background(), s.db); err != nil {
		t.Errorf("second CreateSchema failed: %v", err)
	}
}
