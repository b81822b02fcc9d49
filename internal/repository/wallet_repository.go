package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kuisduel/kuisduel-backend/internal/model"
)

var ErrInsufficientBalance = errors.New("wallet balance is insufficient")

// WalletRepository handles wallet balances and the append-only ledger.
// Every balance change writes both the wallets row and a wallet_entries
// row inside one transaction, so the ledger always sums to the balance.
type WalletRepository struct {
	pool *pgxpool.Pool
}

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

// Balance returns the player's current balance.
func (r *WalletRepository) Balance(ctx context.Context, playerID int) (int64, error) {
	var balance int64
	err := r.pool.QueryRow(ctx,
		`SELECT balance FROM wallets WHERE player_id = $1`, playerID,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return balance, err
}

// Debit withdraws amount from the player's wallet and records a negative
// ledger entry. The balance guard in the UPDATE makes the check and the
// withdrawal one atomic statement; an insufficient balance touches no rows.
func (r *WalletRepository) Debit(ctx context.Context, playerID int, amount int64, reason string, duelID *uuid.UUID) error {
	if amount <= 0 {
		return errors.New("debit amount must be positive")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE wallets SET balance = balance - $1, updated_at = CURRENT_TIMESTAMP
		 WHERE player_id = $2 AND balance >= $1`,
		amount, playerID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientBalance
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO wallet_entries (player_id, amount, reason, duel_id)
		 VALUES ($1, $2, $3, $4)`,
		playerID, -amount, reason, duelID,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Credit deposits amount into the player's wallet and records a positive
// ledger entry.
func (r *WalletRepository) Credit(ctx context.Context, playerID int, amount int64, reason string, duelID *uuid.UUID) error {
	if amount <= 0 {
		return errors.New("credit amount must be positive")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO wallets (player_id, balance) VALUES ($1, $2)
		 ON CONFLICT (player_id) DO UPDATE
		 SET balance = wallets.balance + $2, updated_at = CURRENT_TIMESTAMP`,
		playerID, amount,
	); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO wallet_entries (player_id, amount, reason, duel_id)
		 VALUES ($1, $2, $3, $4)`,
		playerID, amount, reason, duelID,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListEntries returns a player's ledger entries, newest first.
func (r *WalletRepository) ListEntries(ctx context.Context, playerID, limit, offset int) ([]model.WalletEntry, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM wallet_entries WHERE player_id = $1`, playerID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, player_id, amount, reason, duel_id, created_at
		 FROM wallet_entries WHERE player_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		playerID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []model.WalletEntry
	for rows.Next() {
		var e model.WalletEntry
		if err := rows.Scan(&e.ID, &e.PlayerID, &e.Amount, &e.Reason, &e.DuelID, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

// EnsureWallet creates a zero-balance wallet row for a new player.
func (r *WalletRepository) EnsureWallet(ctx context.Context, playerID int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO wallets (player_id, balance) VALUES ($1, 0)
		 ON CONFLICT (player_id) DO NOTHING`, playerID,
	)
	return err
}
