package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/koulio-auth/internal/common"
	"github.com/dmitrijs2005/koulio-auth/internal/dbx"
	"github.com/dmitrijs2005/koulio-auth/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const selectUser = `SELECT id, email, password_hash, full_name, created_at, updated_at, last_login, is_active
		 FROM users
		 `

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (id, email, password_hash, full_name, is_active)
         VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FullName, user.IsActive).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return nil, mapError(err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, selectUser+`WHERE email = $1`, email)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, selectUser+`WHERE id = $1`, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	var lastLogin sql.NullTime

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FullName,
		&user.CreatedAt, &user.UpdatedAt, &lastLogin, &user.IsActive)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if lastLogin.Valid {
		t := lastLogin.Time
		user.LastLogin = &t
	}

	return user, nil
}

func (r *PostgresRepository) EmailInUse(ctx context.Context, email, exceptID string) (bool, error) {
	query :=
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND id::text <> $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email, exceptID).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return exists, nil
}

// UpdateProfile overwrites the non-nil fields and bumps updated_at.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, id string, fullName, email *string) error {
	query :=
		`UPDATE users
		 SET full_name = COALESCE($2, full_name),
		     email = COALESCE($3, email),
		     updated_at = now()
		 WHERE id = $1
		 `

	return r.execOne(ctx, query, id, nullString(fullName), nullString(email))
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query :=
		`UPDATE users SET password_hash = $2, updated_at = now()
		 WHERE id = $1
		 `

	return r.execOne(ctx, query, id, passwordHash)
}

func (r *PostgresRepository) TouchLastLogin(ctx context.Context, id string) (time.Time, error) {
	query :=
		`UPDATE users SET last_login = now(), updated_at = now()
		 WHERE id = $1
		 RETURNING last_login
		 `

	var at time.Time
	err := r.db.QueryRowContext(ctx, query, id).Scan(&at)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, common.ErrorNotFound
		}
		return time.Time{}, fmt.Errorf("db error: %w", err)
	}

	return at, nil
}

// Deactivate soft-deletes the account. The row, and with it the email, is kept.
func (r *PostgresRepository) Deactivate(ctx context.Context, id string) error {
	query :=
		`UPDATE users SET is_active = FALSE, updated_at = now()
		 WHERE id = $1
		 `

	return r.execOne(ctx, query, id)
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return common.ErrorAlreadyExists
	}
	return fmt.Errorf("db error: %w", err)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
