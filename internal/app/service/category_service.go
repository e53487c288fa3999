package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"github.com/ikkim/pos-backend/internal/app/model"
	"github.com/ikkim/pos-backend/internal/app/repository"
	"github.com/ikkim/pos-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryExists   = errors.New("category already exists")
	ErrInvalidCategory  = errors.New("invalid category")
)

// AllCategoriesSlug lists products regardless of category.
const AllCategoriesSlug = "all"

const defaultCategoryProductLimit = 25

type CategoryInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"isActive"`
}

type CategoryListOptions struct {
	Page     int
	Limit    int
	Search   string
	IsActive *bool
}

type CategoryPage struct {
	Items []model.Category `json:"items"`
	Pagination
}

type CategoryProductsOptions struct {
	Page            int
	Limit           int
	SortBy          string
	SortAscending   bool
	IncludeInactive bool
}

type CategoryService interface {
	ListCategories(opts CategoryListOptions) (*CategoryPage, error)
	GetCategoryByID(id uint) (*model.Category, error)
	CreateCategory(input CategoryInput) (*model.Category, error)
	UpdateCategory(id uint, input CategoryInput) (*model.Category, error)
	DeleteCategory(id uint) error
	ProductsBySlug(categorySlug string, opts CategoryProductsOptions) (*ProductPage, error)
}

type categoryService struct {
	categoryRepo repository.CategoryRepository
	productRepo  repository.ProductRepository
}

func NewCategoryService(categoryRepo repository.CategoryRepository, productRepo repository.ProductRepository) CategoryService {
	return &categoryService{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
	}
}

func (s *categoryService) ListCategories(opts CategoryListOptions) (*CategoryPage, error) {
	page, limit := normalizePage(opts.Page, opts.Limit, defaultPageLimit)

	categories, total, err := s.categoryRepo.List(repository.CategoryFilter{
		Search:   strings.TrimSpace(opts.Search),
		IsActive: opts.IsActive,
		Limit:    limit,
		Offset:   pageOffset(page, limit),
	})
	if err != nil {
		logger.Error("Failed to list categories", err)
		return nil, err
	}

	return &CategoryPage{Items: categories, Pagination: newPagination(page, limit, total)}, nil
}

func (s *categoryService) GetCategoryByID(id uint) (*model.Category, error) {
	category, err := s.categoryRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return category, nil
}

func (s *categoryService) CreateCategory(input CategoryInput) (*model.Category, error) {
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidCategory)
	}
	name := strings.TrimSpace(*input.Name)

	if err := s.ensureNameFree(name, 0); err != nil {
		return nil, err
	}

	category := &model.Category{
		Name:     name,
		Slug:     slug.Make(name),
		IsActive: true,
	}
	if input.Description != nil {
		category.Description = strings.TrimSpace(*input.Description)
	}
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}

	if err := s.categoryRepo.Create(category); err != nil {
		return nil, err
	}

	logger.Info("Category created", map[string]interface{}{
		"category_id": category.ID,
		"name":        category.Name,
		"slug":        category.Slug,
	})
	return category, nil
}

func (s *categoryService) UpdateCategory(id uint, input CategoryInput) (*model.Category, error) {
	category, err := s.GetCategoryByID(id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidCategory)
		}
		if name != category.Name {
			if err := s.ensureNameFree(name, category.ID); err != nil {
				return nil, err
			}
			category.Name = name
			category.Slug = slug.Make(name)
		}
	}
	if input.Description != nil {
		category.Description = strings.TrimSpace(*input.Description)
	}
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}

	if err := s.categoryRepo.Update(category); err != nil {
		return nil, err
	}

	logger.Info("Category updated", map[string]interface{}{
		"category_id": category.ID,
	})
	return category, nil
}

// DeleteCategory deactivates the category. Products keep their category name.
func (s *categoryService) DeleteCategory(id uint) error {
	if err := s.categoryRepo.Deactivate(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCategoryNotFound
		}
		return err
	}

	logger.Info("Category deactivated", map[string]interface{}{
		"category_id": id,
	})
	return nil
}

func (s *categoryService) ProductsBySlug(categorySlug string, opts CategoryProductsOptions) (*ProductPage, error) {
	page, limit := normalizePage(opts.Page, opts.Limit, defaultCategoryProductLimit)

	filter := repository.ProductFilter{
		SortBy:        "name",
		SortAscending: true,
		Limit:         limit,
		Offset:        pageOffset(page, limit),
	}
	if opts.SortBy != "" {
		filter.SortBy = opts.SortBy
		filter.SortAscending = opts.SortAscending
	}
	if !opts.IncludeInactive {
		active := true
		filter.IsActive = &active
	}

	if !strings.EqualFold(categorySlug, AllCategoriesSlug) {
		category, err := s.categoryRepo.FindBySlug(categorySlug)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				logger.Warn("Category not found by slug", map[string]interface{}{
					"slug": categorySlug,
				})
				return nil, ErrCategoryNotFound
			}
			return nil, err
		}
		filter.Categories = []string{category.Name, category.Slug}
	}

	products, total, err := s.productRepo.FindWithFilter(filter)
	if err != nil {
		return nil, err
	}

	return &ProductPage{Items: products, Pagination: newPagination(page, limit, total)}, nil
}

func (s *categoryService) ensureNameFree(name string, selfID uint) error {
	existing, err := s.categoryRepo.FindByName(name)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if existing != nil && existing.ID != selfID {
		logger.Warn("Category name already taken", map[string]interface{}{
			"name": name,
		})
		return ErrCategoryExists
	}
	return nil
}
