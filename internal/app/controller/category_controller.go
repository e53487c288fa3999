package controller

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/pos-backend/internal/app/repository"
	"github.com/ikkim/pos-backend/internal/app/service"
	apperrors "github.com/ikkim/pos-backend/internal/errors"
	"github.com/ikkim/pos-backend/internal/middleware"
)

type CategoryController struct {
	categoryService service.CategoryService
}

func NewCategoryController(categoryService service.CategoryService) *CategoryController {
	return &CategoryController{
		categoryService: categoryService,
	}
}

// ListCategories GET /api/categories?page=&limit=&q=&isActive=
func (ctrl *CategoryController) ListCategories(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	page, err1 := parseOptionalInt(c.Query("page"))
	limit, err2 := parseOptionalInt(c.Query("limit"))
	isActive, err3 := parseOptionalBool(c.Query("isActive"))
	if err := errors.Join(err1, err2, err3); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid query parameters")
		return
	}

	result, err := ctrl.categoryService.ListCategories(service.CategoryListOptions{
		Page:     page,
		Limit:    limit,
		Search:   c.Query("q"),
		IsActive: isActive,
	})
	if err != nil {
		log.Error("Failed to list categories", err)
		apperrors.InternalError(c, "Failed to fetch categories")
		return
	}

	respond(c, http.StatusOK, result, "")
}

// GetCategory GET /api/categories/:id
func (ctrl *CategoryController) GetCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid category ID")
		return
	}

	category, err := ctrl.categoryService.GetCategoryByID(id)
	if err != nil {
		ctrl.respondCategoryError(c, err)
		return
	}

	respond(c, http.StatusOK, category, "")
}

// CreateCategory POST /api/categories
func (ctrl *CategoryController) CreateCategory(c *gin.Context) {
	var input service.CategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		apperrors.RespondWithValidationError(c, "Invalid category data", err)
		return
	}

	category, err := ctrl.categoryService.CreateCategory(input)
	if err != nil {
		ctrl.respondCategoryError(c, err)
		return
	}

	respond(c, http.StatusCreated, category, "Category created successfully")
}

// UpdateCategory PUT /api/categories/:id
func (ctrl *CategoryController) UpdateCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid category ID")
		return
	}

	var input service.CategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		apperrors.RespondWithValidationError(c, "Invalid category data", err)
		return
	}

	category, err := ctrl.categoryService.UpdateCategory(id, input)
	if err != nil {
		ctrl.respondCategoryError(c, err)
		return
	}

	respond(c, http.StatusOK, category, "Category updated successfully")
}

// DeleteCategory deactivates a category
// DELETE /api/categories/:id
func (ctrl *CategoryController) DeleteCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid category ID")
		return
	}

	if err := ctrl.categoryService.DeleteCategory(id); err != nil {
		ctrl.respondCategoryError(c, err)
		return
	}

	respond(c, http.StatusOK, nil, "Category deleted successfully")
}

// ProductsBySlug GET /api/categories/slug/:slug/products?page=&limit=&sortBy=&sortDir=&includeInactive=
func (ctrl *CategoryController) ProductsBySlug(c *gin.Context) {
	page, err1 := parseOptionalInt(c.Query("page"))
	limit, err2 := parseOptionalInt(c.Query("limit"))
	includeInactive, err3 := parseOptionalBool(c.Query("includeInactive"))
	if err := errors.Join(err1, err2, err3); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid query parameters")
		return
	}

	opts := service.CategoryProductsOptions{
		Page:            page,
		Limit:           limit,
		IncludeInactive: includeInactive != nil && *includeInactive,
	}
	if sortBy := c.Query("sortBy"); sortBy != "" {
		if _, ok := repository.ProductSortColumn(sortBy); !ok {
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Unknown sort field")
			return
		}
		opts.SortBy = sortBy
		opts.SortAscending = !strings.EqualFold(c.Query("sortDir"), "desc")
	}

	result, err := ctrl.categoryService.ProductsBySlug(c.Param("slug"), opts)
	if err != nil {
		ctrl.respondCategoryError(c, err)
		return
	}

	respond(c, http.StatusOK, result, "")
}

func (ctrl *CategoryController) respondCategoryError(c *gin.Context, err error) {
	log := middleware.GetLoggerFromContext(c)

	switch {
	case errors.Is(err, service.ErrCategoryNotFound):
		apperrors.NotFound(c, apperrors.CategoryNotFound, "Category not found")
	case errors.Is(err, service.ErrCategoryExists):
		apperrors.Conflict(c, apperrors.CategoryExists, "Category already exists")
	case errors.Is(err, service.ErrInvalidCategory):
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, err.Error())
	default:
		log.Error("Category operation failed", err)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "save category")
	}
}
