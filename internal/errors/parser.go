package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo is a code plus a message that is safe to show a client.
type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError turns a raw storage error into a client-facing code and message.
// context names the operation, e.g. "create product" or "update category".
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Code: InternalServerError, Message: "Something went wrong"}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(context)
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return parseDuplicateKeyError(err.Error(), context)
	}

	errLower := strings.ToLower(err.Error())

	// postgres 23505, sqlite "UNIQUE constraint failed"
	if strings.Contains(errLower, "duplicate key") || strings.Contains(errLower, "unique constraint") {
		return parseDuplicateKeyError(errLower, context)
	}

	// postgres 23502, sqlite "NOT NULL constraint failed"
	if strings.Contains(errLower, "not-null constraint") || strings.Contains(errLower, "not null constraint") {
		return ErrorInfo{Code: ValidationRequired, Message: "A required field is missing"}
	}

	if strings.Contains(errLower, "check constraint") {
		return ErrorInfo{Code: ValidationInvalidInput, Message: "Invalid input"}
	}

	if strings.Contains(errLower, "connection refused") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "timeout") {
		return ErrorInfo{
			Code:    InternalDatabaseError,
			Message: "Storage is unavailable, please try again shortly",
		}
	}

	return ErrorInfo{Code: InternalServerError, Message: defaultMessage(context)}
}

func parseDuplicateKeyError(errStr string, context string) ErrorInfo {
	errLower := strings.ToLower(errStr)
	ctxLower := strings.ToLower(context)

	switch {
	case strings.Contains(errLower, "mobile"):
		return ErrorInfo{Code: AuthMobileExists, Message: "Mobile already registered"}
	case strings.Contains(errLower, "username"):
		return ErrorInfo{Code: AuthUsernameExists, Message: "Username already taken"}
	case strings.Contains(errLower, "categories") || strings.Contains(ctxLower, "category"):
		return ErrorInfo{Code: CategoryExists, Message: "Category with this name already exists"}
	case strings.Contains(errLower, "carts"):
		return ErrorInfo{Code: CartConflict, Message: "Cart was modified concurrently, please retry"}
	}

	return ErrorInfo{Code: ResourceAlreadyExists, Message: "Resource already exists"}
}

func notFound(context string) ErrorInfo {
	ctxLower := strings.ToLower(context)

	switch {
	case strings.Contains(ctxLower, "product"):
		return ErrorInfo{Code: ProductNotFound, Message: "Product not found"}
	case strings.Contains(ctxLower, "category"):
		return ErrorInfo{Code: CategoryNotFound, Message: "Category not found"}
	case strings.Contains(ctxLower, "user"):
		return ErrorInfo{Code: AuthUserNotFound, Message: "User not found"}
	case strings.Contains(ctxLower, "cart"):
		return ErrorInfo{Code: CartItemNotFound, Message: "Item not in cart"}
	}

	return ErrorInfo{Code: ResourceNotFound, Message: "Requested resource not found"}
}

func defaultMessage(context string) string {
	ctxLower := strings.ToLower(context)

	switch {
	case strings.Contains(ctxLower, "create"):
		return "Failed to create, please try again"
	case strings.Contains(ctxLower, "update"):
		return "Failed to update, please try again"
	case strings.Contains(ctxLower, "delete"):
		return "Failed to delete, please try again"
	}

	return "Something went wrong, please try again"
}

// ParseAndRespond parses err and writes the failure envelope.
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, context string) {
	info := ParseError(err, context)
	c.JSON(statusCode, ErrorResponse{
		Success: false,
		Error:   info.Code,
		Message: info.Message,
	})
}
