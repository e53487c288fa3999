package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ikkim/pos-backend/internal/app/model"
	"github.com/ikkim/pos-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CategoryFilter struct {
	Search   string
	IsActive *bool
	Limit    int
	Offset   int
}

type CategoryRepository interface {
	Create(category *model.Category) error
	FindByID(id uint) (*model.Category, error)
	FindByName(name string) (*model.Category, error)
	FindBySlug(slug string) (*model.Category, error)
	List(filter CategoryFilter) ([]model.Category, int64, error)
	Update(category *model.Category) error
	Deactivate(id uint) error
	// EnsureByName returns the category called name, creating it if missing.
	EnsureByName(name, slug string) (*model.Category, error)
}

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(category *model.Category) error {
	logger.Debug("Creating category in database", map[string]interface{}{
		"name": category.Name,
		"slug": category.Slug,
	})

	if err := r.db.Create(category).Error; err != nil {
		logger.Error("Failed to create category in database", err, map[string]interface{}{
			"name": category.Name,
		})
		return err
	}

	logger.Debug("Category created in database", map[string]interface{}{
		"category_id": category.ID,
	})
	return nil
}

func (r *categoryRepository) FindByID(id uint) (*model.Category, error) {
	var category model.Category
	if err := r.db.First(&category, id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) FindByName(name string) (*model.Category, error) {
	var category model.Category
	if err := r.db.Where("name = ?", name).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) FindBySlug(slug string) (*model.Category, error) {
	var category model.Category
	if err := r.db.Where("slug = ?", slug).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) List(filter CategoryFilter) ([]model.Category, int64, error) {
	logger.Debug("Listing categories", map[string]interface{}{
		"search":    filter.Search,
		"is_active": filter.IsActive,
		"limit":     filter.Limit,
		"offset":    filter.Offset,
	})

	query := r.db.Model(&model.Category{})
	if filter.Search != "" {
		like := fmt.Sprintf("%%%s%%", strings.ToLower(filter.Search))
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count categories", err)
		return nil, 0, err
	}

	query = query.Order("name ASC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var categories []model.Category
	if err := query.Find(&categories).Error; err != nil {
		logger.Error("Failed to list categories", err)
		return nil, 0, err
	}
	return categories, total, nil
}

func (r *categoryRepository) Update(category *model.Category) error {
	logger.Debug("Updating category in database", map[string]interface{}{
		"category_id": category.ID,
	})

	if err := r.db.Save(category).Error; err != nil {
		logger.Error("Failed to update category in database", err, map[string]interface{}{
			"category_id": category.ID,
		})
		return err
	}
	return nil
}

func (r *categoryRepository) Deactivate(id uint) error {
	result := r.db.Model(&model.Category{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		logger.Error("Failed to deactivate category", result.Error, map[string]interface{}{
			"category_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *categoryRepository) EnsureByName(name, slug string) (*model.Category, error) {
	existing, err := r.FindByName(name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	category := &model.Category{Name: name, Slug: slug, IsActive: true}
	// A concurrent creator may win the unique index; its row is re-read below.
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(category).Error; err != nil {
		logger.Error("Failed to ensure category", err, map[string]interface{}{
			"name": name,
		})
		return nil, err
	}

	logger.Info("Category created implicitly", map[string]interface{}{
		"name": name,
	})
	return r.FindByName(name)
}
