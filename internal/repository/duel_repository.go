package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kuisduel/kuisduel-backend/internal/model"
)

// DuelRepository handles duel and answer log data access. The live state
// of a running duel belongs to the session engine; these rows are the
// audit trail and the source of truth once a duel is over.
type DuelRepository struct {
	pool *pgxpool.Pool
}

// NewDuelRepository creates a new DuelRepository.
func NewDuelRepository(pool *pgxpool.Pool) *DuelRepository {
	return &DuelRepository{pool: pool}
}

// Create inserts a duel row in the WAITING state.
func (r *DuelRepository) Create(ctx context.Context, d *model.Duel) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO duels (id, creator_id, stake, category, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		d.ID, d.CreatorID, d.Stake, d.Category, d.Status,
	).Scan(&d.CreatedAt)
}

// SetOpponent records the joining player.
func (r *DuelRepository) SetOpponent(ctx context.Context, duelID uuid.UUID, opponentID int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE duels SET opponent_id = $1 WHERE id = $2`, opponentID, duelID,
	)
	return err
}

// MarkStarted moves the duel to IN_PROGRESS.
func (r *DuelRepository) MarkStarted(ctx context.Context, duelID uuid.UUID, startedAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE duels SET status = $1, started_at = $2 WHERE id = $3`,
		model.DuelStatusInProgress, startedAt, duelID,
	)
	return err
}

// Finish writes the terminal state of a duel. The status guard makes the
// write idempotent: a terminal row is never overwritten, so a retried
// persistence never flips a result.
func (r *DuelRepository) Finish(ctx context.Context, duelID uuid.UUID, status model.DuelStatus, winnerID *int, commission int64, endedAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE duels SET status = $1, winner_id = $2, commission = $3, ended_at = $4
		 WHERE id = $5 AND status NOT IN ($6, $7)`,
		status, winnerID, commission, endedAt, duelID,
		model.DuelStatusCompleted, model.DuelStatusCancelled,
	)
	return err
}

// GetByID retrieves a duel row.
func (r *DuelRepository) GetByID(ctx context.Context, duelID uuid.UUID) (*model.Duel, error) {
	d := &model.Duel{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, creator_id, opponent_id, stake, category, status, winner_id, commission, created_at, started_at, ended_at
		 FROM duels WHERE id = $1`, duelID,
	).Scan(&d.ID, &d.CreatorID, &d.OpponentID, &d.Stake, &d.Category, &d.Status, &d.WinnerID, &d.Commission, &d.CreatedAt, &d.StartedAt, &d.EndedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListByPlayer returns a player's duel history, newest first.
func (r *DuelRepository) ListByPlayer(ctx context.Context, playerID, limit, offset int) ([]model.Duel, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM duels WHERE creator_id = $1 OR opponent_id = $1`, playerID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, creator_id, opponent_id, stake, category, status, winner_id, commission, created_at, started_at, ended_at
		 FROM duels WHERE creator_id = $1 OR opponent_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		playerID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var duels []model.Duel
	for rows.Next() {
		var d model.Duel
		if err := rows.Scan(&d.ID, &d.CreatorID, &d.OpponentID, &d.Stake, &d.Category, &d.Status, &d.WinnerID, &d.Commission, &d.CreatedAt, &d.StartedAt, &d.EndedAt); err != nil {
			return nil, 0, err
		}
		duels = append(duels, d)
	}
	return duels, total, rows.Err()
}

// InsertAnswers batch-inserts answer log rows. Conflicts on the
// (duel_id, player_id, question_id, suspicious) key are ignored: the
// engine already rejected duplicates, so a conflict here only means a
// redelivered queue item.
func (r *DuelRepository) InsertAnswers(ctx context.Context, answers []model.DuelAnswer) error {
	if len(answers) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, a := range answers {
		batch.Queue(
			`INSERT INTO duel_answers (duel_id, player_id, question_id, option_id, elapsed_ms, correct, suspicious, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (duel_id, player_id, question_id, suspicious) DO NOTHING`,
			a.DuelID, a.PlayerID, a.QuestionID, a.OptionID, a.ElapsedMs, a.Correct, a.Suspicious, a.CreatedAt,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range answers {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// ListAnswers returns the full answer log for a duel, oldest first.
func (r *DuelRepository) ListAnswers(ctx context.Context, duelID uuid.UUID) ([]model.DuelAnswer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT duel_id, player_id, question_id, option_id, elapsed_ms, correct, suspicious, created_at
		 FROM duel_answers WHERE duel_id = $1 ORDER BY created_at`, duelID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.DuelAnswer
	for rows.Next() {
		var a model.DuelAnswer
		if err := rows.Scan(&a.DuelID, &a.PlayerID, &a.QuestionID, &a.OptionID, &a.ElapsedMs, &a.Correct, &a.Suspicious, &a.CreatedAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}
