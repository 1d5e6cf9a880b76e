package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/aula-backend/internal/domain"
)

// AutoMigrateAll creates or updates every table. The grade/student join table is
// registered first so the many2many association uses the GradeStudent model.
func AutoMigrateAll(db *gorm.DB) error {
	if err := db.SetupJoinTable(&types.Grade{}, "Students", &types.GradeStudent{}); err != nil {
		return fmt.Errorf("setup grade_student join: %w", err)
	}
	if err := db.AutoMigrate(types.Models()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}
