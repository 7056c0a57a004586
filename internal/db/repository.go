package db

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
)

// DuplicateError reports a unique-constraint violation with the conflicting
// fields, so handlers can surface field-level validation errors.
type DuplicateError struct {
	Fields []string
}

func (e *DuplicateError) Error() string {
	return "duplicate value for: " + strings.Join(e.Fields, ", ")
}

func duplicateFields(err error) []string {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return nil
	}
	switch pqErr.Constraint {
	case "users_tenant_username_key":
		return []string{"username"}
	case "users_tenant_email_key":
		return []string{"email"}
	case "collectors_owner_name_key":
		return []string{"name"}
	case "collectors_api_key_key":
		return []string{"api_key"}
	}
	return []string{pqErr.Constraint}
}

type Repository struct {
	db *sqlx.DB
}

func NewConnection(databaseURL string, maxConns, maxIdle int) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Ping() error {
	return r.db.Ping()
}

// Tenant operations

func (r *Repository) GetTenantByName(name string) (*Tenant, error) {
	var t Tenant
	query := `SELECT * FROM tenants WHERE name = $1 AND is_active = true`
	err := r.db.Get(&t, query, name)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// User operations

func (r *Repository) CreateUser(u *User, passwordHash string) error {
	query := `
        INSERT INTO users (id, tenant_id, username, email, password_hash, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(query, u.ID, u.TenantID, u.Username, u.Email, passwordHash, u.CreatedAt)
	if fields := duplicateFields(err); fields != nil {
		return &DuplicateError{Fields: fields}
	}
	return err
}

func (r *Repository) GetUserByUsername(tenantID, username string) (*User, string, error) {
	var row struct {
		User
		PasswordHash string `db:"password_hash"`
	}
	query := `
        SELECT id, tenant_id, username, email, password_hash, created_at
        FROM users
        WHERE tenant_id = $1 AND username = $2`

	err := r.db.Get(&row, query, tenantID, username)
	if err == sql.ErrNoRows {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	return &row.User, row.PasswordHash, nil
}

func (r *Repository) GetUser(tenantID, id string) (*User, error) {
	var u User
	query := `SELECT id, tenant_id, username, email, created_at FROM users WHERE tenant_id = $1 AND id = $2`
	err := r.db.Get(&u, query, tenantID, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repository) GetUserPasswordHash(tenantID, id string) (string, error) {
	var hash string
	query := `SELECT password_hash FROM users WHERE tenant_id = $1 AND id = $2`
	err := r.db.Get(&hash, query, tenantID, id)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return hash, err
}

func (r *Repository) UpdateUserPassword(tenantID, id, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1 WHERE tenant_id = $2 AND id = $3`
	res, err := r.db.Exec(query, passwordHash, tenantID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Collector operations

func (r *Repository) CreateCollector(c *Collector) error {
	query := `
        INSERT INTO collectors (
            id, tenant_id, owner_id, name, description, api_key, status,
            hostname, os_name, os_version, kernel_version,
            vm_brand, processor_brand, processor_model, storage_type,
            created_at, updated_at
        ) VALUES (
            :id, :tenant_id, :owner_id, :name, :description, :api_key, :status,
            :hostname, :os_name, :os_version, :kernel_version,
            :vm_brand, :processor_brand, :processor_model, :storage_type,
            :created_at, :updated_at
        )`

	_, err := r.db.NamedExec(query, c)
	if fields := duplicateFields(err); fields != nil {
		return &DuplicateError{Fields: fields}
	}
	return err
}

func (r *Repository) GetCollector(tenantID, ownerID, id string) (*Collector, error) {
	var c Collector
	query := `SELECT * FROM collectors WHERE id = $1 AND tenant_id = $2 AND owner_id = $3`
	err := r.db.Get(&c, query, id, tenantID, ownerID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCollectorByKey resolves an agent credential to its collector. The
// collector identity always derives from the key, never from client input.
func (r *Repository) GetCollectorByKey(apiKey string) (*Collector, error) {
	var c Collector
	query := `SELECT * FROM collectors WHERE api_key = $1`
	err := r.db.Get(&c, query, apiKey)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) ListCollectors(tenantID, ownerID string, limit, offset int) ([]*Collector, error) {
	collectors := []*Collector{}
	query := `
        SELECT * FROM collectors
        WHERE tenant_id = $1 AND owner_id = $2
        ORDER BY created_at DESC
        LIMIT $3 OFFSET $4`

	err := r.db.Select(&collectors, query, tenantID, ownerID, limit, offset)
	return collectors, err
}

func (r *Repository) CountCollectors(tenantID, ownerID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM collectors WHERE tenant_id = $1 AND owner_id = $2`
	err := r.db.Get(&count, query, tenantID, ownerID)
	return count, err
}

func (r *Repository) UpdateCollector(c *Collector) error {
	query := `
        UPDATE collectors SET
            name = :name,
            description = :description,
            hourly_cost = :hourly_cost,
            updated_at = :updated_at
        WHERE id = :id AND tenant_id = :tenant_id AND owner_id = :owner_id`

	res, err := r.db.NamedExec(query, c)
	if fields := duplicateFields(err); fields != nil {
		return &DuplicateError{Fields: fields}
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteCollector(tenantID, ownerID, id string) error {
	res, err := r.db.Exec(
		`DELETE FROM collectors WHERE id = $1 AND tenant_id = $2 AND owner_id = $3`,
		id, tenantID, ownerID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RegenerateAPIKey swaps the collector credential in a single UPDATE, so the
// old key stops validating the instant the statement commits. There is no
// window where both keys are accepted.
func (r *Repository) RegenerateAPIKey(tenantID, ownerID, id, newKey string) error {
	res, err := r.db.Exec(
		`UPDATE collectors SET api_key = $1, updated_at = NOW()
         WHERE id = $2 AND tenant_id = $3 AND owner_id = $4`,
		newKey, id, tenantID, ownerID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveRegistration persists the merged hardware descriptor and marks the
// collector connected.
func (r *Repository) SaveRegistration(c *Collector) error {
	query := `
        UPDATE collectors SET
            hostname = :hostname,
            ip_address = :ip_address,
            os_name = :os_name,
            os_version = :os_version,
            kernel_version = :kernel_version,
            processor_brand = :processor_brand,
            processor_model = :processor_model,
            vcpus = :vcpus,
            memory_gib = :memory_gib,
            storage_gib = :storage_gib,
            storage_type = :storage_type,
            status = :status,
            last_seen = :last_seen,
            updated_at = :updated_at
        WHERE id = :id`

	_, err := r.db.NamedExec(query, c)
	return err
}

func (r *Repository) TouchCollector(id string, status CollectorStatus, seen time.Time) error {
	_, err := r.db.Exec(
		`UPDATE collectors SET status = $1, last_seen = $2, updated_at = $2 WHERE id = $3`,
		status, seen, id,
	)
	return err
}
