// Command dbcheck prints a summary of the user directory and flags rows the
// storefront would reject today.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/icco/kodflex/lib/db"
	"github.com/icco/kodflex/lib/validation"
	"github.com/icco/kodflex/models"
	"github.com/joho/godotenv"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))
	logger := slog.Default()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to load .env", slog.Any("error", err))
	}

	// The default in-memory directory is empty in a fresh process, so a file is required here.
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		logger.Error("DB_PATH environment variable is required")
		os.Exit(1)
	}

	logger.Info("Connecting to database", slog.String("path", dbPath))
	gormDB, err := db.Open(dbPath, logger)
	if err != nil {
		logger.Error("Failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}

	ctx := context.Background()

	logger.Info("=== USER DIRECTORY OVERVIEW ===")
	stats, err := db.Stats(ctx, gormDB)
	if err != nil {
		logger.Error("Failed to read directory stats", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Users in database",
		slog.Int64("count", stats.TotalUsers),
		slog.Int64("with_phone", stats.UsersWithPhone))
	if stats.TotalUsers > 0 {
		logger.Info("Signup range",
			slog.Time("first", stats.FirstSignup),
			slog.Time("last", stats.LastSignup))
	}
	for i, d := range stats.Domains {
		if i == 10 {
			break
		}
		logger.Info("Email domain", slog.String("domain", d.Domain), slog.Int64("count", d.Count))
	}

	logger.Info("=== DATA VALIDATION ===")
	var users []models.User
	if err := gormDB.WithContext(ctx).Find(&users).Error; err != nil {
		logger.Error("Failed to list users", slog.Any("error", err))
		os.Exit(1)
	}

	invalid := 0
	for _, u := range users {
		if err := validation.ValidateName(u.Name); err != nil {
			invalid++
			logger.Warn("User with invalid name", slog.Uint64("user_id", uint64(u.ID)), slog.Any("error", err))
		}
		if email, err := validation.ValidateEmail(u.Email); err != nil || email != u.Email {
			invalid++
			logger.Warn("User with invalid or unnormalized email",
				slog.Uint64("user_id", uint64(u.ID)),
				slog.String("email", u.Email))
		}
	}

	if invalid == 0 {
		logger.Info("All users pass validation", slog.Int("checked", len(users)))
	} else {
		logger.Warn("Some users fail validation", slog.Int("checked", len(users)), slog.Int("problems", invalid))
	}
}
