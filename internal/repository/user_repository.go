package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// UserRepo implements UserRepository using PostgreSQL
type UserRepo struct {
	pool PgxPool
}

// NewUserRepo creates a new user repository
func NewUserRepo(pool PgxPool) *UserRepo {
	return &UserRepo{pool: pool}
}

// Count returns the number of users that are not deleted
func (r *UserRepo) Count(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`

	var n int64
	if err := r.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// FindAllIDs returns one page of user ids ordered by id
func (r *UserRepo) FindAllIDs(ctx context.Context, page, size int) ([]uuid.UUID, error) {
	if page < 0 || size <= 0 {
		return nil, fmt.Errorf("invalid page request: page=%d size=%d", page, size)
	}

	const query = `
		SELECT id
		FROM users
		WHERE deleted_at IS NULL
		ORDER BY id
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, size, page*size)
	if err != nil {
		return nil, fmt.Errorf("failed to query user ids: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0, size)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return ids, nil
}
