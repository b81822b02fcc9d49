package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/kuisduel/kuisduel-backend/internal/config"
	"github.com/kuisduel/kuisduel-backend/internal/model"
	"github.com/kuisduel/kuisduel-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrNotEnoughQuestions is returned when a category cannot fill a duel.
var ErrNotEnoughQuestions = errors.New("not enough questions in category")

const questionPoolTTL = 5 * time.Minute

// QuestionBankService draws question sequences for duels. Category pools
// are cached in Redis and sampled in memory, so a burst of duel starts
// does not hammer PostgreSQL with random-order scans.
type QuestionBankService struct {
	repo *repository.QuestionRepository
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewQuestionBankService creates a new QuestionBankService.
func NewQuestionBankService(repo *repository.QuestionRepository, rdb *redis.Client, log zerolog.Logger) *QuestionBankService {
	return &QuestionBankService{
		repo: repo,
		rdb:  rdb,
		log:  log.With().Str("component", "questionbank_service").Logger(),
	}
}

// Draw picks n distinct questions from the category pool in random
// order. The correct option rides along for server-side checking only;
// it is excluded from every client-facing serialization.
func (s *QuestionBankService) Draw(ctx context.Context, category string, n int) ([]model.Question, error) {
	pool, err := s.loadPool(ctx, category)
	if err != nil {
		return nil, err
	}
	if len(pool) < n {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughQuestions, len(pool), n)
	}

	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:n], nil
}

// Categories lists available categories with question counts.
func (s *QuestionBankService) Categories(ctx context.Context) (map[string]int, error) {
	return s.repo.ListCategories(ctx)
}

// cachedQuestion carries the answer key through the cache. The model's
// own JSON form strips correct_option for client safety, so the cache
// needs its own shape. The cache stays server-side only.
type cachedQuestion struct {
	model.Question
	CorrectOption int `json:"correct_option"`
}

// loadPool fetches the category pool from cache, falling back to the
// database. Cache failures degrade to direct reads, never to errors.
func (s *QuestionBankService) loadPool(ctx context.Context, category string) ([]model.Question, error) {
	key := config.CacheKey.QuestionPoolKey(category)

	raw, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		var cached []cachedQuestion
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			pool := make([]model.Question, len(cached))
			for i, c := range cached {
				pool[i] = c.Question
				pool[i].CorrectOption = c.CorrectOption
			}
			return pool, nil
		}
		s.log.Warn().Str("category", category).Msg("corrupt question pool cache, refetching")
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("question pool cache read failed")
	}

	pool, err := s.repo.ListByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("load question pool: %w", err)
	}

	cached := make([]cachedQuestion, len(pool))
	for i, q := range pool {
		cached[i] = cachedQuestion{Question: q, CorrectOption: q.CorrectOption}
	}
	if encoded, err := json.Marshal(cached); err == nil {
		if err := s.rdb.Set(ctx, key, encoded, questionPoolTTL).Err(); err != nil {
			s.log.Warn().Err(err).Msg("question pool cache write failed")
		}
	}
	return pool, nil
}
