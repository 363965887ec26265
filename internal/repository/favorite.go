package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"redesocial/internal/model"
)

type favoriteRepository struct {
	db *sqlx.DB
}

func NewFavoriteRepository(db *sqlx.DB) FavoriteRepository {
	return &favoriteRepository{db: db}
}

func (r *favoriteRepository) Add(ctx context.Context, userID, favoriteID int64) (bool, error) {
	query := `
		INSERT INTO favorites (user_id, favorite_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, favorite_id) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query, userID, favoriteID)
	if err != nil {
		return false, fmt.Errorf("failed to add favorite: %w", err)
	}
	return affected(result)
}

func (r *favoriteRepository) Remove(ctx context.Context, userID, favoriteID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM favorites WHERE user_id = $1 AND favorite_id = $2`, userID, favoriteID)
	if err != nil {
		return false, fmt.Errorf("failed to remove favorite: %w", err)
	}
	return affected(result)
}

func (r *favoriteRepository) List(ctx context.Context, userID int64) ([]model.UserListItem, error) {
	query := `
		SELECT u.id, u.nome, u.sobrenome, u.username, u.avatar_url, f.created_at AS since
		FROM favorites f
		JOIN users u ON u.id = f.favorite_id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC
	`
	items := []model.UserListItem{}
	if err := r.db.SelectContext(ctx, &items, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	return items, nil
}
