package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/pos-backend/internal/app/model"
	"github.com/ikkim/pos-backend/internal/app/service"
	apperrors "github.com/ikkim/pos-backend/internal/errors"
	"github.com/ikkim/pos-backend/internal/middleware"
)

type CartController struct {
	cartService service.CartService
	// allowOutOfStock is used when a request does not say otherwise.
	allowOutOfStock bool
}

func NewCartController(cartService service.CartService, allowOutOfStock bool) *CartController {
	return &CartController{
		cartService:     cartService,
		allowOutOfStock: allowOutOfStock,
	}
}

type AddCartItemRequest struct {
	ProductID       uint  `json:"productId" binding:"required"`
	Quantity        *int  `json:"quantity"`
	UserID          *uint `json:"userId"`
	AllowOutOfStock *bool `json:"allowOutOfStock"`
}

type UpdateCartItemRequest struct {
	ProductID       uint  `json:"productId" binding:"required"`
	Quantity        *int  `json:"quantity" binding:"required"`
	UserID          *uint `json:"userId"`
	AllowOutOfStock *bool `json:"allowOutOfStock"`
}

// GetCart returns the cart, or an empty one if the user has none yet
// GET /api/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := resolveCartUser(c, nil)
	if !ok {
		return
	}

	cart, err := ctrl.cartService.GetCart(userID)
	if err != nil {
		log.Error("Failed to fetch cart", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.InternalError(c, "Failed to fetch cart")
		return
	}

	respond(c, http.StatusOK, cart, "")
}

// AddItem adds quantity of a product, merging with an existing line
// POST /api/cart/items
func (ctrl *CartController) AddItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid add to cart request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithValidationError(c, "productId is required", err)
		return
	}

	userID, ok := resolveCartUser(c, req.UserID)
	if !ok {
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	cart, err := ctrl.cartService.AddItem(userID, req.ProductID, quantity, ctrl.addOptions(req.AllowOutOfStock))
	if err != nil {
		respondCartError(c, err, userID, req.ProductID)
		return
	}

	respond(c, http.StatusOK, cart, "Item added to cart")
}

// UpdateItem sets the absolute quantity of a line; 0 removes it
// PUT /api/cart/items
func (ctrl *CartController) UpdateItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid update cart request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithValidationError(c, "productId and quantity are required", err)
		return
	}

	userID, ok := resolveCartUser(c, req.UserID)
	if !ok {
		return
	}

	cart, err := ctrl.cartService.UpdateItemQuantity(userID, req.ProductID, *req.Quantity, ctrl.addOptions(req.AllowOutOfStock))
	if err != nil {
		respondCartError(c, err, userID, req.ProductID)
		return
	}

	respond(c, http.StatusOK, cart, "Cart updated")
}

// RemoveItem deletes a line
// DELETE /api/cart/items/:productId
func (ctrl *CartController) RemoveItem(c *gin.Context) {
	productID, ok := parseIDParam(c, "productId")
	if !ok {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid product ID")
		return
	}

	userID, ok := resolveCartUser(c, nil)
	if !ok {
		return
	}

	cart, err := ctrl.cartService.RemoveItem(userID, productID)
	if err != nil {
		respondCartError(c, err, userID, productID)
		return
	}

	respond(c, http.StatusOK, cart, "Item removed from cart")
}

// ClearCart empties the cart, creating it if needed
// DELETE /api/cart
func (ctrl *CartController) ClearCart(c *gin.Context) {
	userID, ok := resolveCartUser(c, nil)
	if !ok {
		return
	}

	cart, err := ctrl.cartService.ClearCart(userID)
	if err != nil {
		respondCartError(c, err, userID, 0)
		return
	}

	respond(c, http.StatusOK, cart, "Cart cleared")
}

func (ctrl *CartController) addOptions(override *bool) service.AddOptions {
	allow := ctrl.allowOutOfStock
	if override != nil {
		allow = *override
	}
	return service.AddOptions{AllowOutOfStock: allow}
}

// resolveCartUser picks the cart owner. Cashiers always act on their own
// cart; admins may name another user through the userId body field or query.
// On failure the response has already been written.
func resolveCartUser(c *gin.Context, bodyUserID *uint) (uint, bool) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		log.Warn("Unauthorized access to cart")
		apperrors.Unauthorized(c, "User not authenticated")
		return 0, false
	}

	if bodyUserID != nil && *bodyUserID == 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid userId")
		return 0, false
	}

	target := bodyUserID
	if target == nil {
		if raw := c.Query("userId"); raw != "" {
			id, err := strconv.ParseUint(raw, 10, 32)
			if err != nil || id == 0 {
				apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid userId")
				return 0, false
			}
			v := uint(id)
			target = &v
		}
	}

	if target == nil || *target == userID {
		return userID, true
	}

	role, _ := middleware.GetUserRole(c)
	if role != model.RoleAdmin {
		log.Warn("Cashier attempted to act on another cart", map[string]interface{}{
			"user_id":        userID,
			"target_user_id": *target,
		})
		apperrors.Forbidden(c, "Only admins may act on another user's cart")
		return 0, false
	}

	log.Info("Admin acting on another user's cart", map[string]interface{}{
		"user_id":        userID,
		"target_user_id": *target,
	})
	return *target, true
}

func respondCartError(c *gin.Context, err error, userID, productID uint) {
	log := middleware.GetLoggerFromContext(c)

	switch {
	case errors.Is(err, service.ErrInvalidQuantity):
		apperrors.BadRequest(c, apperrors.CartInvalidQuantity, err.Error())
	case errors.Is(err, service.ErrProductNotFound):
		apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
	case errors.Is(err, service.ErrCartItemNotFound):
		apperrors.NotFound(c, apperrors.CartItemNotFound, "Item not found in cart")
	case errors.Is(err, service.ErrOutOfStock):
		apperrors.BadRequest(c, apperrors.CartOutOfStock, err.Error())
	case errors.Is(err, service.ErrInsufficientStock):
		apperrors.BadRequest(c, apperrors.CartInsufficientStock, err.Error())
	case errors.Is(err, service.ErrCartConflict):
		apperrors.Conflict(c, apperrors.CartConflict, "Cart was changed by another session, please retry")
	default:
		log.Error("Cart operation failed", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		apperrors.InternalError(c, "")
	}
}
