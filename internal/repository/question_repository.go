package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kuisduel/kuisduel-backend/internal/model"
)

// QuestionRepository handles question bank data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// DrawRandom picks n random questions from a category. Random ordering
// happens in the database; the question bank per category is small
// enough that ORDER BY random() is not a concern here.
func (r *QuestionRepository) DrawRandom(ctx context.Context, category string, n int) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, category, text, options, correct_option, time_limit_sec
		 FROM questions WHERE category = $1
		 ORDER BY random() LIMIT $2`, category, n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Category, &q.Text, &q.Options, &q.CorrectOption, &q.TimeLimitSec); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ListByCategory returns every question in a category. The service
// layer caches this pool and samples from it in memory.
func (r *QuestionRepository) ListByCategory(ctx context.Context, category string) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, category, text, options, correct_option, time_limit_sec
		 FROM questions WHERE category = $1 ORDER BY id`, category,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Category, &q.Text, &q.Options, &q.CorrectOption, &q.TimeLimitSec); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ListCategories returns all distinct categories with their question counts.
func (r *QuestionRepository) ListCategories(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT category, COUNT(*) FROM questions GROUP BY category ORDER BY category`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make(map[string]int)
	for rows.Next() {
		var cat string
		var count int
		if err := rows.Scan(&cat, &count); err != nil {
			return nil, err
		}
		categories[cat] = count
	}
	return categories, rows.Err()
}

// Create inserts a new question. Used by the seeder.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (category, text, options, correct_option, time_limit_sec)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		q.Category, q.Text, q.Options, q.CorrectOption, q.TimeLimitSec,
	).Scan(&q.ID)
}

// Count returns the number of questions in a category.
func (r *QuestionRepository) Count(ctx context.Context, category string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM questions WHERE category = $1`, category,
	).Scan(&n)
	return n, err
}
