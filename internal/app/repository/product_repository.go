package repository

import (
	"fmt"
	"strings"

	"github.com/ikkim/pos-backend/internal/app/model"
	"github.com/ikkim/pos-backend/pkg/logger"
	"gorm.io/gorm"
)

// productSortColumns maps accepted sort keys (API and column spelling) to columns.
var productSortColumns = map[string]string{
	"name":         "name",
	"code":         "code",
	"retailRate":   "retail_rate",
	"retail_rate":  "retail_rate",
	"price":        "retail_rate",
	"purchaseRate": "purchase_rate",
	"stock":        "stock",
	"category":     "category",
	"createdAt":    "created_at",
	"created_at":   "created_at",
	"updatedAt":    "updated_at",
	"updated_at":   "updated_at",
}

// ProductSortColumn resolves a sort key, reporting false for unknown keys.
func ProductSortColumn(key string) (string, bool) {
	col, ok := productSortColumns[key]
	return col, ok
}

type ProductFilter struct {
	Search string
	// Categories matches any of the given category names, case-insensitively.
	Categories    []string
	MinPrice      *float64
	MaxPrice      *float64
	IsActive      *bool
	SortBy        string // column name, default created_at
	SortAscending bool
	Limit         int
	Offset        int
}

type ProductRepository interface {
	Create(product *model.Product) error
	FindByID(id uint) (*model.Product, error)
	FindByIDs(ids []uint) (map[uint]*model.Product, error)
	FindWithFilter(filter ProductFilter) ([]model.Product, int64, error)
	FindAll() ([]model.Product, error)
	Update(product *model.Product) error
	Delete(id uint) error
	RefreshLowStock(threshold int) (int64, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(product *model.Product) error {
	logger.Debug("Creating product in database", map[string]interface{}{
		"name":     product.Name,
		"category": product.Category,
	})

	if err := r.db.Create(product).Error; err != nil {
		logger.Error("Failed to create product in database", err, map[string]interface{}{
			"name":     product.Name,
			"category": product.Category,
		})
		return err
	}

	logger.Debug("Product created in database", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	})
	return nil
}

func (r *productRepository) FindByID(id uint) (*model.Product, error) {
	logger.Debug("Finding product by ID in database", map[string]interface{}{
		"product_id": id,
	})

	var product model.Product
	if err := r.db.First(&product, id).Error; err != nil {
		logger.Debug("Product not found by ID in database", map[string]interface{}{
			"product_id": id,
			"error":      err.Error(),
		})
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindByIDs(ids []uint) (map[uint]*model.Product, error) {
	result := make(map[uint]*model.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var products []model.Product
	if err := r.db.Where("id IN ?", ids).Find(&products).Error; err != nil {
		logger.Error("Failed to find products by IDs in database", err, map[string]interface{}{
			"count": len(ids),
		})
		return nil, err
	}

	for i := range products {
		result[products[i].ID] = &products[i]
	}
	return result, nil
}

func (r *productRepository) FindWithFilter(filter ProductFilter) ([]model.Product, int64, error) {
	logger.Debug("Finding products with filter", map[string]interface{}{
		"search":     filter.Search,
		"categories": filter.Categories,
		"min_price":  filter.MinPrice,
		"max_price":  filter.MaxPrice,
		"is_active":  filter.IsActive,
		"sort_by":    filter.SortBy,
		"ascending":  filter.SortAscending,
		"limit":      filter.Limit,
		"offset":     filter.Offset,
	})

	query := r.db.Model(&model.Product{})

	if filter.Search != "" {
		like := fmt.Sprintf("%%%s%%", strings.ToLower(filter.Search))
		query = query.Where("LOWER(name) LIKE ? OR LOWER(barcode) LIKE ? OR LOWER(code) LIKE ?", like, like, like)
	}

	if len(filter.Categories) > 0 {
		lowered := make([]string, len(filter.Categories))
		for i, c := range filter.Categories {
			lowered[i] = strings.ToLower(c)
		}
		query = query.Where("LOWER(category) IN ?", lowered)
	}

	if filter.MinPrice != nil {
		query = query.Where("retail_rate >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("retail_rate <= ?", *filter.MaxPrice)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count products", err)
		return nil, 0, err
	}

	column := "created_at"
	if col, ok := ProductSortColumn(filter.SortBy); ok {
		column = col
	}
	direction := "DESC"
	if filter.SortAscending {
		direction = "ASC"
	}
	query = query.Order(column + " " + direction).Order("id ASC")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var products []model.Product
	if err := query.Find(&products).Error; err != nil {
		logger.Error("Failed to find products with filter", err)
		return nil, 0, err
	}

	logger.Debug("Products found with filter", map[string]interface{}{
		"count": len(products),
		"total": total,
	})
	return products, total, nil
}

func (r *productRepository) FindAll() ([]model.Product, error) {
	var products []model.Product
	if err := r.db.Order("id ASC").Find(&products).Error; err != nil {
		logger.Error("Failed to find all products", err)
		return nil, err
	}
	return products, nil
}

func (r *productRepository) Update(product *model.Product) error {
	logger.Debug("Updating product in database", map[string]interface{}{
		"product_id": product.ID,
	})

	if err := r.db.Save(product).Error; err != nil {
		logger.Error("Failed to update product in database", err, map[string]interface{}{
			"product_id": product.ID,
		})
		return err
	}
	return nil
}

func (r *productRepository) Delete(id uint) error {
	logger.Debug("Deleting product from database", map[string]interface{}{
		"product_id": id,
	})

	result := r.db.Delete(&model.Product{}, id)
	if result.Error != nil {
		logger.Error("Failed to delete product from database", result.Error, map[string]interface{}{
			"product_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RefreshLowStock recomputes low_stock for every stock-tracked product and
// returns the number of rows whose flag changed.
func (r *productRepository) RefreshLowStock(threshold int) (int64, error) {
	var changed int64

	err := r.db.Transaction(func(tx *gorm.DB) error {
		raised := tx.Model(&model.Product{}).
			Where("stock IS NOT NULL AND stock <= ? AND low_stock = ?", threshold, false).
			Update("low_stock", true)
		if raised.Error != nil {
			return raised.Error
		}

		cleared := tx.Model(&model.Product{}).
			Where("low_stock = ? AND (stock IS NULL OR stock > ?)", true, threshold).
			Update("low_stock", false)
		if cleared.Error != nil {
			return cleared.Error
		}

		changed = raised.RowsAffected + cleared.RowsAffected
		return nil
	})
	if err != nil {
		logger.Error("Failed to refresh low stock flags", err, map[string]interface{}{
			"threshold": threshold,
		})
		return 0, err
	}
	return changed, nil
}
