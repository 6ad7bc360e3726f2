package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Bidon15/socialauth/internal/models"
)

// ConnectionRepository defines the interface for follow edge operations.
type ConnectionRepository interface {
	// Find returns the edge followerID -> followingID, or (nil, nil).
	Find(ctx context.Context, followerID, followingID string) (*models.Connection, error)
	// Create inserts conn. An existing edge for the same pair yields ErrDuplicate.
	Create(ctx context.Context, conn *models.Connection) error
	// Delete removes the edge with the given id.
	Delete(ctx context.Context, id string) error
}

type connectionRepo struct {
	pool *pgxpool.Pool
}

// NewConnectionRepository creates a new connection repository.
func NewConnectionRepository(pool *pgxpool.Pool) ConnectionRepository {
	return &connectionRepo{pool: pool}
}

func (r *connectionRepo) Find(ctx context.Context, followerID, followingID string) (*models.Connection, error) {
	query := `
		SELECT id, follower_id, following_id, created_at
		FROM connections
		WHERE follower_id = $1 AND following_id = $2`

	var conn models.Connection
	err := r.pool.QueryRow(ctx, query, followerID, followingID).Scan(
		&conn.ID,
		&conn.FollowerID,
		&conn.FollowingID,
		&conn.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *connectionRepo) Create(ctx context.Context, conn *models.Connection) error {
	query := `
		INSERT INTO connections (id, follower_id, following_id)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	err := r.pool.QueryRow(ctx, query, conn.ID, conn.FollowerID, conn.FollowingID).Scan(&conn.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert connection: %w", err)
	}
	return nil
}

func (r *connectionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM connections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete connection: %w", err)
	}
	return nil
}
