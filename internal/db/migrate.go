package db

import (
	"github.com/gosimple/slug"
	"github.com/ikkim/pos-backend/internal/app/model"
	"github.com/ikkim/pos-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultCategoryName is assigned to imported products without a category.
const DefaultCategoryName = "General"

// Models lists every table owned by the service, in migration order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Category{},
		&model.Product{},
		&model.Cart{},
	}
}

// Migrate runs database migrations
func Migrate() error {
	return MigrateDB(DB)
}

// MigrateDB migrates the given connection and seeds reference data.
func MigrateDB(db *gorm.DB) error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := db.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	if err := seedDefaultCategory(db); err != nil {
		logger.Error("Failed to seed initial data during migration", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

func seedDefaultCategory(db *gorm.DB) error {
	category := model.Category{
		Name:     DefaultCategoryName,
		Slug:     slug.Make(DefaultCategoryName),
		IsActive: true,
	}

	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&category)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected > 0 {
		logger.Info("Default category seeded", map[string]interface{}{
			"name": DefaultCategoryName,
		})
	}
	return nil
}
