// Package user persists accounts in the relational store.
package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"auditflow/internal/auth/models"
	"auditflow/internal/platform/database"
	"auditflow/pkg/domain"
	"auditflow/pkg/platform/sentinel"
)

// SQLStore persists users in the "users" table.
type SQLStore struct {
	db *database.DB
}

// New constructs a SQL-backed user store.
func New(db *database.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Create inserts user and sets its ID. A taken username yields
// sentinel.ErrAlreadyUsed; the comparison is case-sensitive.
func (s *SQLStore) Create(ctx context.Context, user *models.User) error {
	query := s.db.Rebind(`
		INSERT INTO users (username, password_hash, role, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`)

	var id int64
	err := s.db.Conn(ctx).QueryRowContext(ctx, query,
		user.Username, user.PasswordHash, string(user.Role), user.CreatedAt.UTC(),
	).Scan(&id)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("username %q: %w", user.Username, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	user.ID = domain.UserID(id)
	return nil
}

// FindByUsername returns the user with exactly this username.
func (s *SQLStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := s.db.Rebind(`
		SELECT id, username, password_hash, role, created_at
		FROM users WHERE username = ?`)
	return s.scanOne(s.db.Conn(ctx).QueryRowContext(ctx, query, username))
}

func (s *SQLStore) FindByID(ctx context.Context, id domain.UserID) (*models.User, error) {
	query := s.db.Rebind(`
		SELECT id, username, password_hash, role, created_at
		FROM users WHERE id = ?`)
	return s.scanOne(s.db.Conn(ctx).QueryRowContext(ctx, query, int64(id)))
}

func (s *SQLStore) scanOne(row *sql.Row) (*models.User, error) {
	var (
		u         models.User
		id        int64
		role      string
		createdAt database.NullTime
	)
	if err := row.Scan(&id, &u.Username, &u.PasswordHash, &role, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.ID = domain.UserID(id)
	u.Role = domain.Role(role)
	u.CreatedAt = createdAt.Time
	return &u, nil
}
