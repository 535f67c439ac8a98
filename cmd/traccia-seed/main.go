package main

import (
	"context"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"traccia/internal/config"
	"traccia/internal/core"
	applog "traccia/internal/log"
	"traccia/internal/storage"
)

// seedActivity describes one demo habit and how often it fires.
type seedActivity struct {
	name  string
	color string
	// logsFor returns how many occurrences to record on a given day.
	logsFor func(day time.Time) int
}

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentSeed,
	})
	applog.SetDefault(logger)

	cfg := config.Load()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("Failed to hash demo password", applog.FieldError, err)
		os.Exit(1)
	}

	user := core.User{
		ID:           uuid.NewString(),
		Email:        "test@example.com",
		Name:         "Test User",
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		logger.Error("Failed to create demo user", applog.FieldError, err, "email", user.Email)
		os.Exit(1)
	}
	logger.Info("Created demo user", "email", user.Email)

	activities := []seedActivity{
		{
			name: "Gym Workout", color: "#ef4444",
			// 3-4 sessions a week.
			logsFor: func(time.Time) int {
				if rand.Float64() > 0.5 {
					return 1
				}
				return 0
			},
		},
		{
			name: "Read Book", color: "#3b82f6",
			// Almost every day.
			logsFor: func(time.Time) int {
				if rand.Float64() > 0.2 {
					return 1
				}
				return 0
			},
		},
		{
			name: "Drank Water", color: "#10b981",
			// Several times a day, every day.
			logsFor: func(time.Time) int {
				return rand.Intn(5) + 1
			},
		},
		{
			name: "Code Side Project", color: "#8b5cf6",
			// Mostly weekends, sporadic otherwise.
			logsFor: func(day time.Time) int {
				threshold := 0.8
				if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
					threshold = 0.3
				}
				if rand.Float64() > threshold {
					return 1
				}
				return 0
			},
		},
		{
			name: "Meditation", color: "#f59e0b",
			// Sporadic.
			logsFor: func(time.Time) int {
				if rand.Float64() > 0.7 {
					return 1
				}
				return 0
			},
		},
	}

	now := time.Now()
	for _, seed := range activities {
		activity := core.Activity{
			ID:        uuid.NewString(),
			UserID:    user.ID,
			Name:      seed.name,
			Color:     seed.color,
			CreatedAt: now,
		}
		if err := repo.CreateActivity(ctx, activity); err != nil {
			logger.Error("Failed to create activity", applog.FieldError, err, "name", seed.name)
			os.Exit(1)
		}

		logged := 0
		for i := 0; i < 365; i++ {
			day := now.AddDate(0, 0, -i)
			for c := 0; c < seed.logsFor(day); c++ {
				occurredAt := time.Date(day.Year(), day.Month(), day.Day(),
					rand.Intn(24), rand.Intn(60), 0, 0, now.Location())
				log := core.Log{
					ID:         uuid.NewString(),
					ActivityID: activity.ID,
					Count:      1,
					OccurredAt: occurredAt,
					CreatedAt:  occurredAt,
				}
				if err := repo.CreateLog(ctx, log); err != nil {
					logger.Error("Failed to create log", applog.FieldError, err, "activity", seed.name)
					os.Exit(1)
				}
				logged++
			}
		}
		logger.Info("Created activity", "name", seed.name, "logs", logged)
	}

	logger.Info("Seed complete", "db", cfg.SQLiteDBPath)
}
