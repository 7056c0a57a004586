package db

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

// newTestRepository connects to the database named by TEST_DATABASE_URL and
// runs migrations. Tests that need it are skipped when the variable is
// unset, so the suite stays runnable without infrastructure.
func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	conn, err := NewConnection(url, 4, 2)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := RunMigrations(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return NewRepository(conn)
}

func seedCollector(t *testing.T, repo *Repository) *Collector {
	t.Helper()

	tenant, err := repo.GetTenantByName("default")
	if err != nil {
		t.Fatalf("default tenant: %v", err)
	}

	suffix := uuid.New().String()[:8]
	now := time.Now()

	user := &User{
		ID:        uuid.New().String(),
		TenantID:  tenant.ID,
		Username:  "keytest-" + suffix,
		Email:     "keytest-" + suffix + "@example.com",
		CreatedAt: now,
	}
	if err := repo.CreateUser(user, "x"); err != nil {
		t.Fatalf("create user: %v", err)
	}

	c := &Collector{
		ID:        uuid.New().String(),
		TenantID:  tenant.ID,
		OwnerID:   user.ID,
		Name:      "keytest-" + suffix,
		APIKey:    GenerateAPIKey(),
		Status:    CollectorPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.CreateCollector(c); err != nil {
		t.Fatalf("create collector: %v", err)
	}

	t.Cleanup(func() {
		repo.DeleteCollector(c.TenantID, c.OwnerID, c.ID)
	})

	return c
}

func TestRegenerateAPIKeyInvalidatesOldKey(t *testing.T) {
	repo := newTestRepository(t)
	c := seedCollector(t, repo)

	oldKey := c.APIKey
	newKey := GenerateAPIKey()

	if err := repo.RegenerateAPIKey(c.TenantID, c.OwnerID, c.ID, newKey); err != nil {
		t.Fatalf("regenerate: %v", err)
	}

	if _, err := repo.GetCollectorByKey(oldKey); !errors.Is(err, ErrNotFound) {
		t.Errorf("old key lookup error = %v, want ErrNotFound", err)
	}

	got, err := repo.GetCollectorByKey(newKey)
	if err != nil {
		t.Fatalf("new key lookup: %v", err)
	}
	if got.ID != c.ID {
		t.Errorf("new key resolves to %s, want %s", got.ID, c.ID)
	}
}

func TestRegenerateAPIKeyScopedToOwner(t *testing.T) {
	repo := newTestRepository(t)
	c := seedCollector(t, repo)

	err := repo.RegenerateAPIKey(c.TenantID, uuid.New().String(), c.ID, GenerateAPIKey())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign owner regenerate error = %v, want ErrNotFound", err)
	}

	got, err := repo.GetCollectorByKey(c.APIKey)
	if err != nil {
		t.Fatalf("original key lookup: %v", err)
	}
	if got.ID != c.ID {
		t.Errorf("original key resolves to %s, want %s", got.ID, c.ID)
	}
}
