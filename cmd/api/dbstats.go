package main

import (
	"context"
	"time"

	"github.com/jobtalk/jobtalk-backend/internal/middleware"
	"gorm.io/gorm"
)

// reportDBStats refreshes the pool gauges until ctx is done
func reportDBStats(ctx context.Context, db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			middleware.ObserveDBStats(sqlDB.Stats())
		case <-ctx.Done():
			return
		}
	}
}
