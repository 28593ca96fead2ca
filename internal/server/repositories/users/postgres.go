package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/avolkov/duochat/internal/common"
	"github.com/avolkov/duochat/internal/dbx"
	"github.com/avolkov/duochat/internal/server/models"
)

// ErrEmailTaken is returned when the unique email constraint is violated.
var ErrEmailTaken = errors.New("email already registered")

const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (id, display_name, email, password_hash, avatar, avatar_key)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.DisplayName, user.Email, user.PasswordHash, user.Avatar, user.AvatarKey).
		Scan(&user.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT id, display_name, email, avatar, avatar_key, push_token, created_at FROM users
		 WHERE id = $1
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&user.ID, &user.DisplayName, &user.Email, &user.Avatar, &user.AvatarKey, &user.PushToken, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT id, display_name, email, password_hash, avatar, avatar_key, push_token, created_at FROM users
		 WHERE email = $1
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, email).
		Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.Avatar, &user.AvatarKey, &user.PushToken, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.User, error) {
	query :=
		`SELECT id, display_name, email, avatar, created_at FROM users
		 ORDER BY display_name, id
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(&user.ID, &user.DisplayName, &user.Email, &user.Avatar, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

// SetPushToken updates only the push_token column. Profile fields are never
// rewritten on token churn.
func (r *PostgresRepository) SetPushToken(ctx context.Context, id string, token string) error {
	return r.updateColumn(ctx, `UPDATE users SET push_token = $2 WHERE id = $1`, id, token)
}

// ClearPushToken removes the token (sets NULL, not empty string) so a stale
// token can never reach a logged-out device.
func (r *PostgresRepository) ClearPushToken(ctx context.Context, id string) error {
	return r.updateColumn(ctx, `UPDATE users SET push_token = NULL WHERE id = $1`, id)
}

func (r *PostgresRepository) SetAvatarKey(ctx context.Context, id string, key string) error {
	return r.updateColumn(ctx, `UPDATE users SET avatar_key = $2 WHERE id = $1`, id, key)
}

func (r *PostgresRepository) updateColumn(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}

	return nil
}
