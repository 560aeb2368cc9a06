package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carepharm/api-server/internal/domain/auth"
)

const findTokenSQL = `SELECT key_hash, customer_id, label
	FROM access_tokens WHERE key_hash = $1`

var _ auth.Repository = (*TokenRepository)(nil)

// TokenRepository implements auth.Repository backed by PostgreSQL.
type TokenRepository struct {
	pool *pgxpool.Pool
}

// NewTokenRepository returns a TokenRepository that uses the given pool.
func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

// FindByHash resolves an access token by its HMAC-SHA256 hash.
// Returns auth.ErrTokenNotFound when no token matches.
func (r *TokenRepository) FindByHash(ctx context.Context, hash string) (*auth.TokenInfo, error) {
	var info auth.TokenInfo
	err := r.pool.QueryRow(ctx, findTokenSQL, hash).Scan(
		&info.KeyHash, &info.CustomerID, &info.Label,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrTokenNotFound
		}
		return nil, errors.Wrap(err, "finding access token")
	}
	return &info, nil
}
