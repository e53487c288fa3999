package model

import (
	"time"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "Percentage"
	DiscountFixed      DiscountType = "Fixed"
)

type TaxMode string

const (
	TaxInclude TaxMode = "include"
	TaxExclude TaxMode = "exclude"
)

type Product struct {
	ID      uint   `gorm:"primarykey" json:"id"`
	Name    string `gorm:"not null;index" json:"name"`
	HSN     string `json:"hsn"`
	Code    string `gorm:"index" json:"code"`
	Barcode string `gorm:"index" json:"barcode"`

	PurchaseRate  float64 `gorm:"not null;default:0" json:"purchase_rate"`
	RetailRate    float64 `gorm:"not null;default:0" json:"retail_rate"` // unit price charged at the till
	WholesaleRate float64 `json:"wholesale_rate"`

	UnitPrimary      string  `json:"unit_primary"`
	UnitSecondary    string  `json:"unit_secondary"`
	ConversionFactor float64 `gorm:"default:1" json:"conversion_factor"`

	DiscountAmount float64      `json:"discount_amount"`
	DiscountType   DiscountType `gorm:"type:varchar(20);default:'Percentage'" json:"discount_type"`
	Warehouse      string       `json:"warehouse"`
	TaxPercentage  float64      `json:"tax_percentage"`

	BatchEnabled        bool    `json:"batch_enabled"`
	SerialNumberEnabled bool    `json:"serial_number_enabled"`
	OpeningStockEnabled bool    `json:"opening_stock_enabled"`
	PurchaseTax         TaxMode `gorm:"type:varchar(10);default:'exclude'" json:"purchase_tax"`
	RetailTax           TaxMode `gorm:"type:varchar(10);default:'exclude'" json:"retail_tax"`
	WholesaleTax        TaxMode `gorm:"type:varchar(10);default:'exclude'" json:"wholesale_tax"`

	Category string `gorm:"column:category;index" json:"category"` // category name
	ImageURL string `json:"image_url"`

	// Stock is nil when the product is not stock-tracked (unlimited).
	Stock    *int `json:"stock"`
	LowStock bool `json:"low_stock"`
	IsActive bool `gorm:"not null;index" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}

// TracksStock reports whether the product has a finite stock count.
func (p *Product) TracksStock() bool {
	return p.Stock != nil
}

// AvailableStock returns the stock count, or -1 for untracked products.
func (p *Product) AvailableStock() int {
	if p.Stock == nil {
		return -1
	}
	return *p.Stock
}
