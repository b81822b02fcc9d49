package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/kuisduel/kuisduel-backend/internal/config"
	"github.com/kuisduel/kuisduel-backend/internal/database"
	"github.com/kuisduel/kuisduel-backend/internal/logger"
	"github.com/kuisduel/kuisduel-backend/internal/model"
	"github.com/kuisduel/kuisduel-backend/internal/repository"
	"github.com/kuisduel/kuisduel-backend/internal/service"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Initialize Services ───────────────────────────────────────────
	playerRepo := repository.NewPlayerRepository(pool)
	walletRepo := repository.NewWalletRepository(pool)
	walletService := service.NewWalletService(walletRepo, log)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New Player ===")

	// Username
	fmt.Print("Enter Username: ")
	username, _ := reader.ReadString('\n')
	username = strings.TrimSpace(username)
	if username == "" {
		fmt.Println("Error: Username is required")
		return
	}

	// Display name
	fmt.Print("Enter Display Name: ")
	displayName, _ := reader.ReadString('\n')
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = username
	}

	// Password
	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	password := string(bytePassword)
	fmt.Println() // Newline after password input
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	// Starting balance
	fmt.Print("Enter Starting Balance (default 0): ")
	balanceStr, _ := reader.ReadString('\n')
	balanceStr = strings.TrimSpace(balanceStr)
	var balance int64
	if balanceStr != "" {
		p, err := strconv.ParseInt(balanceStr, 10, 64)
		if err != nil || p < 0 {
			fmt.Println("Error: Balance must be a non-negative number")
			return
		}
		balance = p
	}

	// ─── Logic ─────────────────────────────────────────────────────────

	// Hash Password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	newPlayer := &model.Player{
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: string(hashedPassword),
	}

	// Create Player
	if err := playerRepo.Create(ctx, newPlayer); err != nil {
		log.Fatal().Err(err).Msg("Failed to create player")
	}

	if err := walletService.EnsureWallet(ctx, newPlayer.ID); err != nil {
		log.Fatal().Err(err).Msg("Failed to create wallet")
	}
	if balance > 0 {
		if err := walletService.TopUp(ctx, newPlayer.ID, balance); err != nil {
			log.Fatal().Err(err).Msg("Failed to top up wallet")
		}
	}

	fmt.Printf("\nSuccess! Player '%s' (%s) created with ID: %d and balance %d\n",
		newPlayer.DisplayName, newPlayer.Username, newPlayer.ID, balance)
}
