package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kuisduel/kuisduel-backend/internal/model"
)

var ErrDuplicateUsername = errors.New("player with this username already exists")

// PlayerRepository handles player account data access.
type PlayerRepository struct {
	pool *pgxpool.Pool
}

// NewPlayerRepository creates a new PlayerRepository.
func NewPlayerRepository(pool *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{pool: pool}
}

// GetByID retrieves a player by ID.
func (r *PlayerRepository) GetByID(ctx context.Context, id int) (*model.Player, error) {
	p := &model.Player{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, display_name, password_hash, created_at
		 FROM players WHERE id = $1`, id,
	).Scan(&p.ID, &p.Username, &p.DisplayName, &p.PasswordHash, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetByUsername retrieves a player by their unique username.
func (r *PlayerRepository) GetByUsername(ctx context.Context, username string) (*model.Player, error) {
	p := &model.Player{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, display_name, password_hash, created_at
		 FROM players WHERE username = $1`, username,
	).Scan(&p.ID, &p.Username, &p.DisplayName, &p.PasswordHash, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a new player account.
func (r *PlayerRepository) Create(ctx context.Context, p *model.Player) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO players (username, display_name, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		p.Username, p.DisplayName, p.PasswordHash,
	).Scan(&p.ID, &p.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateUsername
		}
		return err
	}
	return nil
}
