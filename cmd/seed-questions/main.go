package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/kuisduel/kuisduel-backend/internal/config"
	"github.com/kuisduel/kuisduel-backend/internal/database"
	"github.com/kuisduel/kuisduel-backend/internal/logger"
	"github.com/kuisduel/kuisduel-backend/internal/model"
	"github.com/kuisduel/kuisduel-backend/internal/repository"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	questionRepo := repository.NewQuestionRepository(pool)

	fmt.Println("=== Seeding Question Bank ===")

	questions := []model.Question{
		{
			Category:      "umum",
			Text:          "Apa ibu kota Indonesia?",
			Options:       []string{"Bandung", "Jakarta", "Surabaya", "Medan"},
			CorrectOption: 1,
			TimeLimitSec:  10,
		},
		{
			Category:      "umum",
			Text:          "Pulau terbesar di Indonesia adalah?",
			Options:       []string{"Jawa", "Sumatera", "Kalimantan", "Sulawesi"},
			CorrectOption: 2,
			TimeLimitSec:  10,
		},
		{
			Category:      "umum",
			Text:          "Lagu kebangsaan Indonesia diciptakan oleh?",
			Options:       []string{"W.R. Supratman", "Ismail Marzuki", "C. Simanjuntak", "Kusbini"},
			CorrectOption: 0,
			TimeLimitSec:  15,
		},
		{
			Category:      "sains",
			Text:          "Planet terdekat dari matahari adalah?",
			Options:       []string{"Venus", "Mars", "Merkurius", "Bumi"},
			CorrectOption: 2,
			TimeLimitSec:  10,
		},
		{
			Category:      "sains",
			Text:          "Simbol kimia untuk air adalah?",
			Options:       []string{"HO", "H2O", "O2", "CO2"},
			CorrectOption: 1,
			TimeLimitSec:  10,
		},
		{
			Category:      "sains",
			Text:          "Bagian sel yang menghasilkan energi disebut?",
			Options:       []string{"Nukleus", "Ribosom", "Mitokondria", "Vakuola"},
			CorrectOption: 2,
			TimeLimitSec:  15,
		},
	}

	// Generated arithmetic fillers so every category has enough depth
	// for a full duel draw.
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 60; i++ {
		a := rng.Intn(50) + 1
		b := rng.Intn(50) + 1
		correct := a + b
		options := []string{
			fmt.Sprintf("%d", correct),
			fmt.Sprintf("%d", correct+rng.Intn(5)+1),
			fmt.Sprintf("%d", correct-rng.Intn(5)-1),
			fmt.Sprintf("%d", correct+rng.Intn(10)+6),
		}
		correctIdx := rng.Intn(4)
		options[0], options[correctIdx] = options[correctIdx], options[0]

		questions = append(questions, model.Question{
			Category:      "matematika",
			Text:          fmt.Sprintf("Berapa hasil dari %d + %d?", a, b),
			Options:       options,
			CorrectOption: correctIdx,
			TimeLimitSec:  10,
		})
	}

	successCount := 0
	for i := range questions {
		if err := questionRepo.Create(ctx, &questions[i]); err != nil {
			fmt.Printf("Error creating question %q: %v\n", questions[i].Text, err)
		} else {
			successCount++
			if successCount%10 == 0 {
				fmt.Printf("Created %d questions...\n", successCount)
			}
		}
	}

	fmt.Printf("\nSeed completed! Successfully added %d/%d questions.\n", successCount, len(questions))
}
