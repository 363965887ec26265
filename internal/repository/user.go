package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"redesocial/internal/model"
)

const userColumns = `id, nome, sobrenome, username, telefone, email, cep, password_hashed,
	avatar_url, avatar_key, bio, username_changed_at, created_at, updated_at`

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// userRepository implements UserRepository using sqlx
type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new user. A unique violation on email or username is
// reported with the matching domain error so concurrent registrations lose
// cleanly.
func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	query := `
		INSERT INTO users (nome, sobrenome, username, telefone, email, cep, password_hashed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		u.Nome, u.Sobrenome, u.Username, u.Telefone, u.Email, u.Cep, u.PasswordHashed,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if mapped := mapUserUniqueViolation(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

// GetByLogin resolves an email or username. An email match wins when a
// username happens to equal another account's email.
func (r *userRepository) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE email = LOWER($1) OR username = $1
		ORDER BY (email = LOWER($1)) DESC
		LIMIT 1`
	return r.getOne(ctx, query, strings.TrimSpace(login))
}

func (r *userRepository) getOne(ctx context.Context, query string, arg interface{}) (*model.User, error) {
	var u model.User
	if err := r.db.GetContext(ctx, &u, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return exists, nil
}

// ExistsByUsername checks if a username is already taken
func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username)
	if err != nil {
		return false, fmt.Errorf("failed to check username existence: %w", err)
	}
	return exists, nil
}

// UpdateProfile applies only the fields present in req.
func (r *userRepository) UpdateProfile(ctx context.Context, userID int64, req *model.UpdateProfileRequest) (*model.User, error) {
	query := `
		UPDATE users SET
			nome = COALESCE($2, nome),
			sobrenome = COALESCE($3, sobrenome),
			telefone = COALESCE($4, telefone),
			cep = COALESCE($5, cep),
			bio = COALESCE($6, bio),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	var u model.User
	err := r.db.GetContext(ctx, &u, query, userID, req.Nome, req.Sobrenome, req.Telefone, req.Cep, req.Bio)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return &u, nil
}

func (r *userRepository) UpdateUsername(ctx context.Context, userID int64, username string, changedAt time.Time) error {
	query := `UPDATE users SET username = $2, username_changed_at = $3, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, userID, username, changedAt)
	if err != nil {
		if mapped := mapUserUniqueViolation(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("failed to update username: %w", err)
	}
	return requireAffected(result, model.ErrUserNotFound)
}

func (r *userRepository) UpdateAvatar(ctx context.Context, userID int64, url, key string) error {
	query := `UPDATE users SET avatar_url = $2, avatar_key = $3, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, userID, url, key)
	if err != nil {
		return fmt.Errorf("failed to update avatar: %w", err)
	}
	return requireAffected(result, model.ErrUserNotFound)
}

func (r *userRepository) GetCounts(ctx context.Context, userID int64) (*GraphCounts, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM follows WHERE followee_id = $1) AS followers,
			(SELECT COUNT(*) FROM follows WHERE follower_id = $1) AS following,
			(SELECT COUNT(*) FROM friendships WHERE user_id = $1) AS friends
	`
	var c GraphCounts
	if err := r.db.GetContext(ctx, &c, query, userID); err != nil {
		return nil, fmt.Errorf("failed to count relationships: %w", err)
	}
	return &c, nil
}

func mapUserUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pgUniqueViolation {
		return nil
	}
	switch {
	case strings.Contains(pqErr.Constraint, "email"):
		return model.ErrEmailExists
	case strings.Contains(pqErr.Constraint, "username"):
		return model.ErrUsernameExists
	}
	return nil
}

// requireAffected returns notFound when the statement touched no rows.
func requireAffected(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

// affected reports whether the statement touched at least one row.
func affected(result sql.Result) (bool, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}
