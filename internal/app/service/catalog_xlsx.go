package service

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ikkim/pos-backend/internal/db"
	"github.com/ikkim/pos-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
)

const catalogSheet = "Catalog"

// catalogHeader is the column layout shared by export and import.
var catalogHeader = []interface{}{
	"Item Name", "Item Code", "Barcode", "HSN", "Category",
	"Purchase Rate", "Retail Rate", "Wholesale Rate", "Unit", "Stock", "Active",
}

const (
	colName = iota
	colCode
	colBarcode
	colHSN
	colCategory
	colPurchaseRate
	colRetailRate
	colWholesaleRate
	colUnit
	colStock
	colActive
)

type ImportResult struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// ExportCatalog writes every product as one row of an xlsx workbook.
func (s *productService) ExportCatalog(w io.Writer) error {
	products, err := s.productRepo.FindAll()
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), catalogSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(catalogSheet, "A1", &catalogHeader); err != nil {
		return err
	}
	if err := f.SetColWidth(catalogSheet, "A", "A", 32); err != nil {
		return err
	}

	for i, p := range products {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		var stock interface{} = ""
		if p.Stock != nil {
			stock = *p.Stock
		}
		row := []interface{}{
			p.Name, p.Code, p.Barcode, p.HSN, p.Category,
			p.PurchaseRate, p.RetailRate, p.WholesaleRate, p.UnitPrimary, stock, p.IsActive,
		}
		if err := f.SetSheetRow(catalogSheet, cell, &row); err != nil {
			return err
		}
	}

	logger.Info("Catalog exported", map[string]interface{}{
		"products": len(products),
	})
	return f.Write(w)
}

// ImportCatalog creates one product per data row of the first sheet. Rows
// that fail validation are skipped and reported; the rest are still created.
// An empty Stock cell imports the product as not stock-tracked.
func (s *productService) ImportCatalog(r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data found in XLSX file")
	}

	result := &ImportResult{}
	for i, row := range rows[1:] {
		line := i + 2
		input, err := productInputFromRow(row)
		if err == nil {
			_, err = s.CreateProduct(input)
		}
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", line, err))
			continue
		}
		result.Created++
	}

	logger.Info("Catalog imported", map[string]interface{}{
		"sheet":   sheet,
		"created": result.Created,
		"skipped": result.Skipped,
	})
	return result, nil
}

func productInputFromRow(row []string) (ProductInput, error) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	name := cell(colName)
	if name == "" {
		return ProductInput{}, fmt.Errorf("%w: missing item name", ErrInvalidProduct)
	}
	category := cell(colCategory)
	if category == "" {
		category = db.DefaultCategoryName
	}

	input := ProductInput{
		Name:        &name,
		Code:        optionalString(cell(colCode)),
		Barcode:     optionalString(cell(colBarcode)),
		HSN:         optionalString(cell(colHSN)),
		Category:    &category,
		UnitPrimary: optionalString(cell(colUnit)),
	}

	var err error
	if input.RetailRate, err = parseRate(cell(colRetailRate), "retail rate"); err != nil {
		return ProductInput{}, err
	}
	if input.RetailRate == nil {
		return ProductInput{}, fmt.Errorf("%w: missing retail rate", ErrInvalidProduct)
	}
	if input.PurchaseRate, err = parseRate(cell(colPurchaseRate), "purchase rate"); err != nil {
		return ProductInput{}, err
	}
	if input.WholesaleRate, err = parseRate(cell(colWholesaleRate), "wholesale rate"); err != nil {
		return ProductInput{}, err
	}

	if raw := cell(colStock); raw != "" {
		stock, err := strconv.Atoi(raw)
		if err != nil {
			return ProductInput{}, fmt.Errorf("%w: stock %q is not a whole number", ErrInvalidProduct, raw)
		}
		input.Stock = &stock
	} else {
		unlimited := true
		input.UnlimitedStock = &unlimited
	}

	if raw := cell(colActive); raw != "" {
		active, err := strconv.ParseBool(strings.ToLower(raw))
		if err != nil {
			return ProductInput{}, fmt.Errorf("%w: active %q is not a boolean", ErrInvalidProduct, raw)
		}
		input.IsActive = &active
	}

	return input, nil
}

func parseRate(raw, field string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q is not a number", ErrInvalidProduct, field, raw)
	}
	return &v, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
