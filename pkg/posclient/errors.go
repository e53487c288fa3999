package posclient

import (
	"errors"
	"fmt"
)

// Error codes returned by the cart API.
const (
	CodeUnauthorized      = "AUTH_UNAUTHORIZED"
	CodeForbidden         = "AUTHZ_FORBIDDEN"
	CodeInvalidInput      = "VALIDATION_INVALID_INPUT"
	CodeProductNotFound   = "PRODUCT_NOT_FOUND"
	CodeInvalidQuantity   = "CART_INVALID_QUANTITY"
	CodeItemNotFound      = "CART_ITEM_NOT_FOUND"
	CodeOutOfStock        = "CART_OUT_OF_STOCK"
	CodeInsufficientStock = "CART_INSUFFICIENT_STOCK"
	CodeConflict          = "CART_CONFLICT"
)

// APIError is a failure envelope returned by the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("pos api: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("pos api: %s: %s", e.Code, e.Message)
}

// IsStockError reports whether the request failed because of stock levels.
func (e *APIError) IsStockError() bool {
	return e.Code == CodeOutOfStock || e.Code == CodeInsufficientStock
}

func (e *APIError) IsNotFound() bool {
	return e.Code == CodeProductNotFound || e.Code == CodeItemNotFound
}

// IsConflict reports a cart that kept changing under concurrent writers.
// The call is safe to repeat.
func (e *APIError) IsConflict() bool {
	return e.Code == CodeConflict
}

// IsStockError reports whether err is an *APIError caused by stock levels.
func IsStockError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsStockError()
}
