package controller

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/pos-backend/internal/app/repository"
	"github.com/ikkim/pos-backend/internal/app/service"
	apperrors "github.com/ikkim/pos-backend/internal/errors"
	"github.com/ikkim/pos-backend/internal/middleware"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ProductController struct {
	productService service.ProductService
}

func NewProductController(productService service.ProductService) *ProductController {
	return &ProductController{
		productService: productService,
	}
}

// ListProducts returns a filtered, paginated product list
// GET /api/products?page=&limit=&q=&category=&minPrice=&maxPrice=&sortBy=field:dir&isActive=
func (ctrl *ProductController) ListProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	opts, err := parseProductListQuery(c)
	if err != nil {
		log.Warn("Invalid product list query", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, err.Error())
		return
	}

	page, err := ctrl.productService.ListProducts(opts)
	if err != nil {
		log.Error("Failed to list products", err)
		apperrors.InternalError(c, "Failed to fetch products")
		return
	}

	respond(c, http.StatusOK, page, "")
}

func parseProductListQuery(c *gin.Context) (service.ProductListOptions, error) {
	opts := service.ProductListOptions{
		Search:   c.Query("q"),
		Category: c.Query("category"),
	}

	var err error
	if opts.Page, err = parseOptionalInt(c.Query("page")); err != nil {
		return opts, fmt.Errorf("page must be a number")
	}
	if opts.Limit, err = parseOptionalInt(c.Query("limit")); err != nil {
		return opts, fmt.Errorf("limit must be a number")
	}
	if opts.MinPrice, err = parseOptionalFloat(c.Query("minPrice")); err != nil {
		return opts, fmt.Errorf("minPrice must be a number")
	}
	if opts.MaxPrice, err = parseOptionalFloat(c.Query("maxPrice")); err != nil {
		return opts, fmt.Errorf("maxPrice must be a number")
	}
	if opts.IsActive, err = parseOptionalBool(c.Query("isActive")); err != nil {
		return opts, fmt.Errorf("isActive must be true or false")
	}

	if raw := c.Query("sortBy"); raw != "" {
		field, dir, _ := strings.Cut(raw, ":")
		if _, ok := repository.ProductSortColumn(field); !ok {
			return opts, fmt.Errorf("cannot sort by %q", field)
		}
		opts.SortBy = field
		opts.SortAscending = strings.EqualFold(dir, "asc")
	}

	return opts, nil
}

// GetProduct returns one product
// GET /api/products/:id
func (ctrl *ProductController) GetProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid product ID")
		return
	}

	product, err := ctrl.productService.GetProductByID(id)
	if err != nil {
		ctrl.respondProductError(c, err, id)
		return
	}

	log.Debug("Product fetched", map[string]interface{}{
		"product_id": id,
	})
	respond(c, http.StatusOK, product, "")
}

// CreateProduct adds a product to the catalog
// POST /api/products
func (ctrl *ProductController) CreateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var input service.ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		log.Warn("Invalid create product request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithValidationError(c, "Invalid product data", err)
		return
	}

	product, err := ctrl.productService.CreateProduct(input)
	if err != nil {
		ctrl.respondProductError(c, err, 0)
		return
	}

	respond(c, http.StatusCreated, product, "Product created successfully")
}

// UpdateProduct applies a partial update
// PUT /api/products/:id
func (ctrl *ProductController) UpdateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid product ID")
		return
	}

	var input service.ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		log.Warn("Invalid update product request", map[string]interface{}{
			"product_id": id,
			"error":      err.Error(),
		})
		apperrors.RespondWithValidationError(c, "Invalid product data", err)
		return
	}

	product, err := ctrl.productService.UpdateProduct(id, input)
	if err != nil {
		ctrl.respondProductError(c, err, id)
		return
	}

	respond(c, http.StatusOK, product, "Product updated successfully")
}

// DeleteProduct removes a product
// DELETE /api/products/:id
func (ctrl *ProductController) DeleteProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid product ID")
		return
	}

	if err := ctrl.productService.DeleteProduct(id); err != nil {
		ctrl.respondProductError(c, err, id)
		return
	}

	respond(c, http.StatusOK, nil, "Product deleted successfully")
}

// ExportProducts downloads the catalog as an xlsx workbook
// GET /api/products/export
func (ctrl *ProductController) ExportProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var buf bytes.Buffer
	if err := ctrl.productService.ExportCatalog(&buf); err != nil {
		log.Error("Failed to export catalog", err)
		apperrors.InternalError(c, "Failed to export products")
		return
	}

	filename := fmt.Sprintf("products-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (ctrl *ProductController) respondProductError(c *gin.Context, err error, id uint) {
	log := middleware.GetLoggerFromContext(c)

	switch {
	case errors.Is(err, service.ErrProductNotFound):
		apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
	case errors.Is(err, service.ErrInvalidProduct):
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, err.Error())
	default:
		log.Error("Product operation failed", err, map[string]interface{}{
			"product_id": id,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "save product")
	}
}
