package repository

import (
	"time"

	"github.com/ikkim/pos-backend/internal/app/model"
	"github.com/ikkim/pos-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepository interface {
	FindByUserID(userID uint) (*model.Cart, error)
	// CreateIfAbsent inserts cart unless the user already owns one.
	// It reports whether a row was inserted.
	CreateIfAbsent(cart *model.Cart) (bool, error)
	// SaveIfVersion writes items and total only if the stored version still
	// equals expectedVersion. On success the version is incremented in both
	// the row and cart. A false result with nil error is a version conflict.
	SaveIfVersion(cart *model.Cart, expectedVersion int) (bool, error)
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) FindByUserID(userID uint) (*model.Cart, error) {
	logger.Debug("Finding cart by user ID in database", map[string]interface{}{
		"user_id": userID,
	})

	var cart model.Cart
	if err := r.db.Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return nil, err
	}
	if cart.Items == nil {
		cart.Items = []model.CartItem{}
	}

	logger.Debug("Cart found by user ID in database", map[string]interface{}{
		"cart_id": cart.ID,
		"user_id": userID,
		"items":   len(cart.Items),
		"version": cart.Version,
	})
	return &cart, nil
}

func (r *cartRepository) CreateIfAbsent(cart *model.Cart) (bool, error) {
	logger.Debug("Creating cart in database", map[string]interface{}{
		"user_id": cart.UserID,
	})

	if cart.Items == nil {
		cart.Items = []model.CartItem{}
	}
	if cart.Version == 0 {
		cart.Version = 1
	}

	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(cart)
	if result.Error != nil {
		logger.Error("Failed to create cart in database", result.Error, map[string]interface{}{
			"user_id": cart.UserID,
		})
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (r *cartRepository) SaveIfVersion(cart *model.Cart, expectedVersion int) (bool, error) {
	logger.Debug("Saving cart with version check", map[string]interface{}{
		"cart_id":          cart.ID,
		"user_id":          cart.UserID,
		"expected_version": expectedVersion,
		"items":            len(cart.Items),
	})

	if cart.Items == nil {
		cart.Items = []model.CartItem{}
	}

	now := time.Now()
	result := r.db.Model(&model.Cart{}).
		Where("id = ? AND version = ?", cart.ID, expectedVersion).
		Select("items", "total", "version", "updated_at").
		Updates(&model.Cart{
			Items:     cart.Items,
			Total:     cart.Total,
			Version:   expectedVersion + 1,
			UpdatedAt: now,
		})
	if result.Error != nil {
		logger.Error("Failed to save cart in database", result.Error, map[string]interface{}{
			"cart_id": cart.ID,
			"user_id": cart.UserID,
		})
		return false, result.Error
	}

	if result.RowsAffected == 0 {
		logger.Debug("Cart version conflict", map[string]interface{}{
			"cart_id":          cart.ID,
			"expected_version": expectedVersion,
		})
		return false, nil
	}

	cart.Version = expectedVersion + 1
	cart.UpdatedAt = now
	return true, nil
}
