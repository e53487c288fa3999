package errors

// Error codes returned in the "error" field of failure responses.
// Format: CATEGORY_SPECIFIC_DETAIL. Clients branch on these, never on message text.

const (
	// Auth
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"
	AuthTokenRevoked       = "AUTH_TOKEN_REVOKED"
	AuthMobileExists       = "AUTH_MOBILE_EXISTS"
	AuthUsernameExists     = "AUTH_USERNAME_EXISTS"
	AuthUserNotFound       = "AUTH_USER_NOT_FOUND"

	// Authorization
	AuthzForbidden    = "AUTHZ_FORBIDDEN"
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND"

	// Validation
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID     = "VALIDATION_INVALID_ID"
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT"
	ValidationRequired      = "VALIDATION_REQUIRED"

	// Generic resources
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// Catalog
	ProductNotFound  = "PRODUCT_NOT_FOUND"
	CategoryNotFound = "CATEGORY_NOT_FOUND"
	CategoryExists   = "CATEGORY_EXISTS"

	// Cart
	CartInvalidQuantity   = "CART_INVALID_QUANTITY"
	CartItemNotFound      = "CART_ITEM_NOT_FOUND"
	CartOutOfStock        = "CART_OUT_OF_STOCK"
	CartInsufficientStock = "CART_INSUFFICIENT_STOCK"
	CartConflict          = "CART_CONFLICT"

	// Upload
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadFailed          = "UPLOAD_FAILED"
	UploadNotConfigured   = "UPLOAD_NOT_CONFIGURED"

	// Internal
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"
)
