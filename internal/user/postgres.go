package user

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // postgres driver
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL credential store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db: db,
	}
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

const principalColumns = `
	id, username, email, first_name, last_name, password_hash,
	role, is_active, last_login_at, created_at, updated_at
`

// FindByUsername retrieves a principal by unique username.
func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*Principal, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}

	query := `
		SELECT ` + principalColumns + `
		FROM users
		WHERE lower(username) = lower($1) AND deleted_at IS NULL
	`

	row := s.db.QueryRowContext(ctx, query, username)
	return scanPrincipal(row)
}

// RecordLogin marks a successful-login timestamp.
func (s *PostgresStore) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE users
		SET last_login_at = $1, updated_at = $2
		WHERE id = $3 AND deleted_at IS NULL
	`

	result, err := s.db.ExecContext(ctx, query, at, time.Now(), id)
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("record login rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// Create stores a new principal.
func (s *PostgresStore) Create(ctx context.Context, p *Principal) error {
	if p == nil {
		return fmt.Errorf("principal cannot be nil")
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid principal: %w", err)
	}

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `
		INSERT INTO users (
			id, username, email, first_name, last_name, password_hash,
			role, is_active, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT DO NOTHING
	`

	result, err := s.db.ExecContext(ctx, query,
		p.ID, p.Username, p.Email, p.FirstName, p.LastName, p.PasswordHash,
		string(p.Role), p.Active, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create user rows affected: %w", err)
	}
	if rows == 0 {
		return ErrAlreadyExists
	}

	return nil
}

// UpdatePassword replaces the stored password hash.
func (s *PostgresStore) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	if passwordHash == "" {
		return fmt.Errorf("password hash is required")
	}

	query := `
		UPDATE users
		SET password_hash = $1, updated_at = $2
		WHERE id = $3 AND deleted_at IS NULL
	`

	result, err := s.db.ExecContext(ctx, query, passwordHash, time.Now(), id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// SetActive flips the account's active flag.
func (s *PostgresStore) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `
		UPDATE users
		SET is_active = $1, updated_at = $2
		WHERE id = $3 AND deleted_at IS NULL
	`

	result, err := s.db.ExecContext(ctx, query, active, time.Now(), id)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set active rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPrincipal(row rowScanner) (*Principal, error) {
	var (
		p         Principal
		firstName sql.NullString
		lastName  sql.NullString
		lastLogin sql.NullTime
		role      string
	)

	err := row.Scan(
		&p.ID, &p.Username, &p.Email, &firstName, &lastName, &p.PasswordHash,
		&role, &p.Active, &lastLogin, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}

	p.FirstName = firstName.String
	p.LastName = lastName.String
	if lastLogin.Valid {
		t := lastLogin.Time
		p.LastLoginAt = &t
	}

	parsed, err := ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("stored role: %w", err)
	}
	p.Role = parsed

	return &p, nil
}
