//go:build integration

package tenant

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
)

func setupTestDB(t *testing.T) (*PostgresStore, func()) {
	t.Helper()

	dbURL := os.Getenv("POSTGRES_URL")
	if dbURL == "" {
		t.Skip("POSTGRES_URL not set, skipping integration test")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	store := NewPostgresStore(db)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	cleanup := func() {
		db.ExecContext(ctx, "DELETE FROM tenant_members")
		db.ExecContext(ctx, "DELETE FROM tenants")
		db.Close()
	}
	return store, cleanup
}

func testTenant(id, slug string) *Tenant {
	now := time.Now().Truncate(time.Second)
	return &Tenant{
		ID: id, Name: "Empresa " + slug, Slug: slug,
		Status: StatusActive, CreatedAt: now, UpdatedAt: now,
	}
}

func TestPostgresTenant_CreateAndGet(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.Create(ctx, testTenant("T1", "acme")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.Get(ctx, "T1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Slug != "acme" {
		t.Errorf("Slug: got %s, want acme", got.Slug)
	}
	if got.StripeCustomerID != "" {
		t.Errorf("StripeCustomerID should be empty, got %s", got.StripeCustomerID)
	}

	got, err = store.GetBySlug(ctx, "acme")
	if err != nil {
		t.Fatalf("GetBySlug failed: %v", err)
	}
	if got.ID != "T1" {
		t.Errorf("ID: got %s, want T1", got.ID)
	}
}

func TestPostgresTenant_SlugTaken(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.Create(ctx, testTenant("T1", "acme")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	err := store.Create(ctx, testTenant("T2", "acme"))
	if err != ErrSlugTaken {
		t.Errorf("Expected ErrSlugTaken, got %v", err)
	}
}

func TestPostgresTenant_SetStripeCustomerIDAttachOnce(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.Create(ctx, testTenant("T1", "acme")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.SetStripeCustomerID(ctx, "T1", "cus_first"); err != nil {
		t.Fatalf("First attach failed: %v", err)
	}
	// Second attach is a no-op, not an error.
	if err := store.SetStripeCustomerID(ctx, "T1", "cus_second"); err != nil {
		t.Fatalf("Second attach should be a no-op, got: %v", err)
	}

	got, err := store.Get(ctx, "T1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.StripeCustomerID != "cus_first" {
		t.Errorf("StripeCustomerID: got %s, want cus_first", got.StripeCustomerID)
	}

	if err := store.SetStripeCustomerID(ctx, "T_missing", "cus_x"); err != ErrTenantNotFound {
		t.Errorf("Expected ErrTenantNotFound, got %v", err)
	}
}

func TestPostgresTenant_Membership(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.Create(ctx, testTenant("T1", "acme")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	ok, err := store.IsMember(ctx, "usr_1", "T1")
	if err != nil {
		t.Fatalf("IsMember failed: %v", err)
	}
	if ok {
		t.Error("usr_1 should not be a member yet")
	}

	if err := store.AddMember(ctx, "usr_1", "T1"); err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	// Idempotent.
	if err := store.AddMember(ctx, "usr_1", "T1"); err != nil {
		t.Fatalf("AddMember redo failed: %v", err)
	}

	ok, err = store.IsMember(ctx, "usr_1", "T1")
	if err != nil {
		t.Fatalf("IsMember failed: %v", err)
	}
	if !ok {
		t.Error("usr_1 should be a member")
	}
}

func TestPostgresTenant_NotFound(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); err != ErrTenantNotFound {
		t.Errorf("Expected ErrTenantNotFound, got %v", err)
	}
	if err := store.Update(ctx, testTenant("missing", "ghost")); err != ErrTenantNotFound {
		t.Errorf("Expected ErrTenantNotFound for update, got %v", err)
	}
}
