package migration

import (
	"fmt"

	"github.com/jobtalk/jobtalk-backend/internal/domain"
	"gorm.io/gorm"
)

// Models in dependency order: every table only references tables before it
var models = []any{
	&domain.Member{},
	&domain.Listing{},
	&domain.ChatRequest{},
	&domain.Channel{},
	&domain.ChatMessage{},
	&domain.ReadMarker{},
}

// Run executes AutoMigrate for every chat table
func Run(db *gorm.DB) error {
	for _, m := range models {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("migrate %T: %w", m, err)
		}
	}
	return nil
}

// Seed inserts a demo company, student, admin and one open listing when the
// members table is empty. Only meant for local development.
func Seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&domain.Member{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		members := []domain.Member{
			{ID: 1, Email: strPtr("company@example.com"), Role: domain.RoleResponder, IsActive: true},
			{ID: 2, Email: strPtr("student@example.com"), Role: domain.RoleRequester, IsActive: true},
			{ID: 3, Email: strPtr("admin@example.com"), Role: domain.RoleAdmin, IsActive: true},
		}
		if err := tx.Create(&members).Error; err != nil {
			return err
		}
		listing := domain.Listing{
			ID:      1,
			OwnerID: 1,
			Title:   "Weekend cafe staff",
			Wage:    intPtr(12000),
			Region:  "Seoul",
			Status:  domain.ListingOpen,
		}
		return tx.Create(&listing).Error
	})
}

func strPtr(s string) *string { return &s }
func intPtr(v int) *int          { return &v }
