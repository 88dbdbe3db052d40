package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/icco/kodflex/lib/types"
	"github.com/icco/kodflex/models"
	"gorm.io/gorm"
)

// Stats summarizes the user directory. Domains are ordered by count, then name.
func Stats(ctx context.Context, db *gorm.DB) (*types.DirectoryStats, error) {
	var stats types.DirectoryStats
	tx := db.WithContext(ctx)

	if err := tx.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if stats.TotalUsers == 0 {
		return &stats, nil
	}

	if err := tx.Model(&models.User{}).Where("phone_number <> ''").Count(&stats.UsersWithPhone).Error; err != nil {
		return nil, fmt.Errorf("failed to count users with phone: %w", err)
	}

	var first, last models.User
	if err := tx.Order("created_at ASC").First(&first).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to get first signup: %w", err)
	}
	if err := tx.Order("created_at DESC").First(&last).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to get last signup: %w", err)
	}
	stats.FirstSignup = first.CreatedAt
	stats.LastSignup = last.CreatedAt

	if err := tx.Model(&models.User{}).
		Select("substr(email, instr(email, '@') + 1) AS domain, COUNT(*) AS count").
		Group("domain").
		Order("count DESC, domain ASC").
		Scan(&stats.Domains).Error; err != nil {
		return nil, fmt.Errorf("failed to get domain distribution: %w", err)
	}

	return &stats, nil
}
