package service

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gosimple/slug"
	"github.com/ikkim/pos-backend/internal/app/model"
	"github.com/ikkim/pos-backend/internal/app/repository"
	"github.com/ikkim/pos-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidProduct  = errors.New("invalid product")
)

// ProductInput is the catalog payload used by create and update. Nil fields
// are left untouched on update and defaulted on create.
type ProductInput struct {
	Name                *string             `json:"itemName"`
	HSN                 *string             `json:"itemHsn"`
	Code                *string             `json:"itemCode"`
	Barcode             *string             `json:"barcode"`
	PurchaseRate        *float64            `json:"purchaseRate"`
	RetailRate          *float64            `json:"retailRate"`
	WholesaleRate       *float64            `json:"wholesaleRate"`
	UnitPrimary         *string             `json:"unitPrimary"`
	UnitSecondary       *string             `json:"unitSecondary"`
	ConversionFactor    *float64            `json:"conversionFactor"`
	DiscountAmount      *float64            `json:"discountAmount"`
	DiscountType        *model.DiscountType `json:"discountType"`
	Warehouse           *string             `json:"warehouse"`
	TaxPercentage       *float64            `json:"taxPercentage"`
	BatchEnabled        *bool               `json:"batchEnabled"`
	SerialNumberEnabled *bool               `json:"serialNumberEnabled"`
	OpeningStockEnabled *bool               `json:"enabledOpeningStock"`
	PurchaseTax         *model.TaxMode      `json:"purchaseTax"`
	RetailTax           *model.TaxMode      `json:"retailTax"`
	WholesaleTax        *model.TaxMode      `json:"wholesaleTax"`
	Category            *string             `json:"category"`
	ImageURL            *string             `json:"imageUrl"`
	Stock               *int                `json:"stock"`
	// UnlimitedStock turns stock tracking off; Stock is then ignored.
	UnlimitedStock *bool `json:"unlimitedStock"`
	IsActive       *bool `json:"isActive"`
}

type ProductListOptions struct {
	Page          int
	Limit         int
	Search        string
	Category      string
	MinPrice      *float64
	MaxPrice      *float64
	IsActive      *bool
	SortBy        string
	SortAscending bool
}

type ProductPage struct {
	Items []model.Product `json:"items"`
	Pagination
}

type ProductService interface {
	ListProducts(opts ProductListOptions) (*ProductPage, error)
	GetProductByID(id uint) (*model.Product, error)
	CreateProduct(input ProductInput) (*model.Product, error)
	UpdateProduct(id uint, input ProductInput) (*model.Product, error)
	DeleteProduct(id uint) error
	RefreshLowStock(threshold int) (int64, error)
	ExportCatalog(w io.Writer) error
	ImportCatalog(r io.Reader) (*ImportResult, error)
}

type productService struct {
	productRepo       repository.ProductRepository
	categoryRepo      repository.CategoryRepository
	lowStockThreshold int
}

// NewProductService flags a tracked product as low on stock when its count
// is at or below lowStockThreshold, the same rule the scheduled refresh uses.
func NewProductService(productRepo repository.ProductRepository, categoryRepo repository.CategoryRepository, lowStockThreshold int) ProductService {
	return &productService{
		productRepo:       productRepo,
		categoryRepo:      categoryRepo,
		lowStockThreshold: lowStockThreshold,
	}
}

func (s *productService) ListProducts(opts ProductListOptions) (*ProductPage, error) {
	page, limit := normalizePage(opts.Page, opts.Limit, defaultPageLimit)

	filter := repository.ProductFilter{
		Search:        strings.TrimSpace(opts.Search),
		MinPrice:      opts.MinPrice,
		MaxPrice:      opts.MaxPrice,
		IsActive:      opts.IsActive,
		SortBy:        opts.SortBy,
		SortAscending: opts.SortAscending,
		Limit:         limit,
		Offset:        pageOffset(page, limit),
	}
	if opts.Category != "" {
		filter.Categories = []string{opts.Category}
	}

	products, total, err := s.productRepo.FindWithFilter(filter)
	if err != nil {
		logger.Error("Failed to list products", err)
		return nil, err
	}

	return &ProductPage{Items: products, Pagination: newPagination(page, limit, total)}, nil
}

func (s *productService) GetProductByID(id uint) (*model.Product, error) {
	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		logger.Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}
	return product, nil
}

func (s *productService) CreateProduct(input ProductInput) (*model.Product, error) {
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, fmt.Errorf("%w: itemName is required", ErrInvalidProduct)
	}
	if input.RetailRate == nil {
		return nil, fmt.Errorf("%w: retailRate is required", ErrInvalidProduct)
	}
	if input.Category == nil || strings.TrimSpace(*input.Category) == "" {
		return nil, fmt.Errorf("%w: category is required", ErrInvalidProduct)
	}

	product := &model.Product{
		ConversionFactor: 1,
		DiscountType:     model.DiscountPercentage,
		PurchaseTax:      model.TaxExclude,
		RetailTax:        model.TaxExclude,
		WholesaleTax:     model.TaxExclude,
		Stock:            new(int),
		IsActive:         true,
	}
	if err := applyProductInput(product, input, s.lowStockThreshold); err != nil {
		return nil, err
	}

	if _, err := s.categoryRepo.EnsureByName(product.Category, slug.Make(product.Category)); err != nil {
		logger.Error("Failed to ensure product category", err, map[string]interface{}{
			"category": product.Category,
		})
		return nil, err
	}

	if err := s.productRepo.Create(product); err != nil {
		return nil, err
	}

	logger.Info("Product created", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
		"category":   product.Category,
	})
	return product, nil
}

func (s *productService) UpdateProduct(id uint, input ProductInput) (*model.Product, error) {
	product, err := s.GetProductByID(id)
	if err != nil {
		return nil, err
	}

	if err := applyProductInput(product, input, s.lowStockThreshold); err != nil {
		return nil, err
	}

	if err := s.productRepo.Update(product); err != nil {
		return nil, err
	}

	logger.Info("Product updated", map[string]interface{}{
		"product_id": product.ID,
	})
	return product, nil
}

func (s *productService) DeleteProduct(id uint) error {
	if err := s.productRepo.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}

	logger.Info("Product deleted", map[string]interface{}{
		"product_id": id,
	})
	return nil
}

func (s *productService) RefreshLowStock(threshold int) (int64, error) {
	changed, err := s.productRepo.RefreshLowStock(threshold)
	if err != nil {
		return 0, err
	}

	logger.Info("Low stock flags refreshed", map[string]interface{}{
		"threshold": threshold,
		"changed":   changed,
	})
	return changed, nil
}

func applyProductInput(p *model.Product, in ProductInput, lowStockThreshold int) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return fmt.Errorf("%w: itemName cannot be empty", ErrInvalidProduct)
		}
		p.Name = name
	}
	if in.RetailRate != nil {
		if *in.RetailRate < 0 {
			return fmt.Errorf("%w: retailRate cannot be negative", ErrInvalidProduct)
		}
		p.RetailRate = *in.RetailRate
	}
	if in.Stock != nil && *in.Stock < 0 {
		return fmt.Errorf("%w: stock cannot be negative", ErrInvalidProduct)
	}
	if in.DiscountType != nil && *in.DiscountType != model.DiscountPercentage && *in.DiscountType != model.DiscountFixed {
		return fmt.Errorf("%w: discountType must be Percentage or Fixed", ErrInvalidProduct)
	}
	for _, mode := range []*model.TaxMode{in.PurchaseTax, in.RetailTax, in.WholesaleTax} {
		if mode != nil && *mode != model.TaxInclude && *mode != model.TaxExclude {
			return fmt.Errorf("%w: tax mode must be include or exclude", ErrInvalidProduct)
		}
	}

	setString(&p.HSN, in.HSN)
	setString(&p.Code, in.Code)
	setString(&p.Barcode, in.Barcode)
	setString(&p.UnitPrimary, in.UnitPrimary)
	setString(&p.UnitSecondary, in.UnitSecondary)
	setString(&p.Warehouse, in.Warehouse)
	setString(&p.ImageURL, in.ImageURL)
	setFloat(&p.PurchaseRate, in.PurchaseRate)
	setFloat(&p.WholesaleRate, in.WholesaleRate)
	setFloat(&p.ConversionFactor, in.ConversionFactor)
	setFloat(&p.DiscountAmount, in.DiscountAmount)
	setFloat(&p.TaxPercentage, in.TaxPercentage)
	setBool(&p.BatchEnabled, in.BatchEnabled)
	setBool(&p.SerialNumberEnabled, in.SerialNumberEnabled)
	setBool(&p.OpeningStockEnabled, in.OpeningStockEnabled)
	setBool(&p.IsActive, in.IsActive)

	if in.DiscountType != nil {
		p.DiscountType = *in.DiscountType
	}
	if in.PurchaseTax != nil {
		p.PurchaseTax = *in.PurchaseTax
	}
	if in.RetailTax != nil {
		p.RetailTax = *in.RetailTax
	}
	if in.WholesaleTax != nil {
		p.WholesaleTax = *in.WholesaleTax
	}
	if in.Category != nil {
		p.Category = strings.TrimSpace(*in.Category)
	}

	switch {
	case in.UnlimitedStock != nil && *in.UnlimitedStock:
		p.Stock = nil
	case in.Stock != nil:
		stock := *in.Stock
		p.Stock = &stock
	}
	p.LowStock = p.TracksStock() && p.AvailableStock() <= lowStockThreshold

	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
