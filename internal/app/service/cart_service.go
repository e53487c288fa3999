package service

import (
	"errors"
	"fmt"
	"math"

	"github.com/ikkim/pos-backend/internal/app/model"
	"github.com/ikkim/pos-backend/internal/app/repository"
	"github.com/ikkim/pos-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrCartItemNotFound  = errors.New("item not found in cart")
	ErrOutOfStock        = errors.New("product is out of stock")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrCartConflict      = errors.New("cart was modified concurrently")

	errVersionConflict = errors.New("cart version conflict")
)

// maxCartSaveAttempts bounds the reload-and-reapply loop on version conflicts.
const maxCartSaveAttempts = 3

// AddOptions tunes stock enforcement for add and update.
type AddOptions struct {
	// AllowOutOfStock skips every stock check.
	AllowOutOfStock bool
}

// CartNotifier is told about every successfully persisted cart.
type CartNotifier interface {
	CartChanged(userID uint, cart *model.CartView)
}

type CartService interface {
	GetCart(userID uint) (*model.CartView, error)
	GetOrCreateCart(userID uint) (*model.Cart, error)
	AddItem(userID, productID uint, quantity int, opts AddOptions) (*model.CartView, error)
	UpdateItemQuantity(userID, productID uint, quantity int, opts AddOptions) (*model.CartView, error)
	RemoveItem(userID, productID uint) (*model.CartView, error)
	ClearCart(userID uint) (*model.CartView, error)
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	notifier    CartNotifier
}

func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	notifier ...CartNotifier,
) CartService {
	var n CartNotifier
	if len(notifier) > 0 {
		n = notifier[0]
	}
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		notifier:    n,
	}
}

func (s *cartService) GetCart(userID uint) (*model.CartView, error) {
	logger.Debug("Fetching user cart", map[string]interface{}{
		"user_id": userID,
	})

	cart, err := s.cartRepo.FindByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &model.CartView{UserID: userID, Items: []model.CartLine{}}, nil
		}
		logger.Error("Failed to fetch user cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	return s.buildView(cart)
}

func (s *cartService) GetOrCreateCart(userID uint) (*model.Cart, error) {
	cart, err := s.cartRepo.FindByUserID(userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to fetch user cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	cart = &model.Cart{UserID: userID, Items: []model.CartItem{}, Total: 0, Version: 1}
	created, err := s.cartRepo.CreateIfAbsent(cart)
	if err != nil {
		return nil, err
	}
	if created {
		logger.Info("Cart created", map[string]interface{}{
			"user_id": userID,
			"cart_id": cart.ID,
		})
		return cart, nil
	}

	// Another request created it between our read and insert.
	return s.cartRepo.FindByUserID(userID)
}

func (s *cartService) AddItem(userID, productID uint, quantity int, opts AddOptions) (*model.CartView, error) {
	logger.Info("Adding item to cart", map[string]interface{}{
		"user_id":            userID,
		"product_id":         productID,
		"quantity":           quantity,
		"allow_out_of_stock": opts.AllowOutOfStock,
	})

	if quantity <= 0 {
		logger.Warn("Cannot add to cart: invalid quantity", map[string]interface{}{
			"user_id":  userID,
			"quantity": quantity,
		})
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidQuantity)
	}

	cart, err := s.withRetry(userID, "add", func() (*model.Cart, error) {
		product, err := s.findProduct(productID)
		if err != nil {
			return nil, err
		}

		if !opts.AllowOutOfStock && product.TracksStock() && *product.Stock <= 0 {
			logger.Warn("Cannot add to cart: product out of stock", map[string]interface{}{
				"user_id":    userID,
				"product_id": productID,
			})
			return nil, fmt.Errorf("%w: %q", ErrOutOfStock, product.Name)
		}

		cart, err := s.GetOrCreateCart(userID)
		if err != nil {
			return nil, err
		}
		expected := cart.Version

		if idx := cart.FindItem(productID); idx >= 0 {
			item := &cart.Items[idx]
			if quantity > math.MaxInt-item.Quantity {
				if !opts.AllowOutOfStock && product.TracksStock() {
					return nil, insufficientStock(userID, product, quantity)
				}
				return nil, fmt.Errorf("%w: quantity too large", ErrInvalidQuantity)
			}
			newQty := item.Quantity + quantity
			if !opts.AllowOutOfStock && exceedsStock(product, newQty) {
				return nil, insufficientStock(userID, product, newQty)
			}
			item.Quantity = newQty
			item.Price = product.RetailRate
		} else {
			if !opts.AllowOutOfStock && exceedsStock(product, quantity) {
				return nil, insufficientStock(userID, product, quantity)
			}
			cart.Items = append(cart.Items, model.CartItem{
				ProductID: product.ID,
				Name:      product.Name,
				Price:     product.RetailRate,
				Quantity:  quantity,
			})
		}

		return s.save(cart, expected)
	})
	if err != nil {
		return nil, err
	}

	return s.publish(cart)
}

func (s *cartService) UpdateItemQuantity(userID, productID uint, quantity int, opts AddOptions) (*model.CartView, error) {
	logger.Info("Updating cart item quantity", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
	})

	if quantity < 0 {
		logger.Warn("Cannot update cart item: negative quantity", map[string]interface{}{
			"user_id":  userID,
			"quantity": quantity,
		})
		return nil, fmt.Errorf("%w: quantity must be >= 0", ErrInvalidQuantity)
	}

	cart, err := s.withRetry(userID, "update", func() (*model.Cart, error) {
		cart, idx, err := s.findLine(userID, productID)
		if err != nil {
			return nil, err
		}
		expected := cart.Version

		if quantity == 0 {
			cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
			return s.save(cart, expected)
		}

		product, err := s.findProduct(productID)
		if err != nil {
			return nil, err
		}
		if !opts.AllowOutOfStock && exceedsStock(product, quantity) {
			return nil, insufficientStock(userID, product, quantity)
		}

		cart.Items[idx].Quantity = quantity
		cart.Items[idx].Price = product.RetailRate
		return s.save(cart, expected)
	})
	if err != nil {
		return nil, err
	}

	return s.publish(cart)
}

func (s *cartService) RemoveItem(userID, productID uint) (*model.CartView, error) {
	logger.Info("Removing item from cart", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
	})

	cart, err := s.withRetry(userID, "remove", func() (*model.Cart, error) {
		cart, idx, err := s.findLine(userID, productID)
		if err != nil {
			return nil, err
		}
		expected := cart.Version

		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
		return s.save(cart, expected)
	})
	if err != nil {
		return nil, err
	}

	return s.publish(cart)
}

func (s *cartService) ClearCart(userID uint) (*model.CartView, error) {
	logger.Info("Clearing cart", map[string]interface{}{
		"user_id": userID,
	})

	cart, err := s.withRetry(userID, "clear", func() (*model.Cart, error) {
		cart, err := s.GetOrCreateCart(userID)
		if err != nil {
			return nil, err
		}
		expected := cart.Version

		cart.Items = []model.CartItem{}
		return s.save(cart, expected)
	})
	if err != nil {
		return nil, err
	}

	return s.publish(cart)
}

// withRetry runs attempt until it saves without a version conflict, giving up
// with ErrCartConflict after maxCartSaveAttempts. Each attempt reloads the cart
// and revalidates against the catalog.
func (s *cartService) withRetry(userID uint, op string, attempt func() (*model.Cart, error)) (*model.Cart, error) {
	for i := 1; i <= maxCartSaveAttempts; i++ {
		cart, err := attempt()
		if !errors.Is(err, errVersionConflict) {
			return cart, err
		}
		logger.Warn("Cart version conflict, retrying", map[string]interface{}{
			"user_id":   userID,
			"operation": op,
			"attempt":   i,
		})
	}

	logger.Warn("Cart update abandoned after repeated conflicts", map[string]interface{}{
		"user_id":   userID,
		"operation": op,
		"attempts":  maxCartSaveAttempts,
	})
	return nil, ErrCartConflict
}

func (s *cartService) save(cart *model.Cart, expectedVersion int) (*model.Cart, error) {
	RecalculateTotals(cart)

	ok, err := s.cartRepo.SaveIfVersion(cart, expectedVersion)
	if err != nil {
		logger.Error("Failed to save cart", err, map[string]interface{}{
			"user_id": cart.UserID,
			"cart_id": cart.ID,
		})
		return nil, err
	}
	if !ok {
		return nil, errVersionConflict
	}

	logger.Info("Cart saved", map[string]interface{}{
		"user_id": cart.UserID,
		"items":   len(cart.Items),
		"total":   cart.Total,
		"version": cart.Version,
	})
	return cart, nil
}

// findLine loads an existing cart and locates productID in it. A missing
// cart is reported as a missing line; neither is created here.
func (s *cartService) findLine(userID, productID uint) (*model.Cart, int, error) {
	cart, err := s.cartRepo.FindByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cart item not found: user has no cart", map[string]interface{}{
				"user_id":    userID,
				"product_id": productID,
			})
			return nil, -1, ErrCartItemNotFound
		}
		return nil, -1, err
	}

	idx := cart.FindItem(productID)
	if idx < 0 {
		logger.Warn("Cart item not found", map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return nil, -1, ErrCartItemNotFound
	}
	return cart, idx, nil
}

func (s *cartService) findProduct(productID uint) (*model.Product, error) {
	product, err := s.productRepo.FindByID(productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Product not found", map[string]interface{}{
				"product_id": productID,
			})
			return nil, ErrProductNotFound
		}
		logger.Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": productID,
		})
		return nil, err
	}
	return product, nil
}

func exceedsStock(product *model.Product, quantity int) bool {
	return product.TracksStock() && quantity > *product.Stock
}

func insufficientStock(userID uint, product *model.Product, requested int) error {
	logger.Warn("Insufficient stock", map[string]interface{}{
		"user_id":    userID,
		"product_id": product.ID,
		"requested":  requested,
		"available":  product.AvailableStock(),
	})
	return fmt.Errorf("%w for product %q, available: %d", ErrInsufficientStock, product.Name, product.AvailableStock())
}

// publish builds the client view and pushes it to the user's open sessions.
func (s *cartService) publish(cart *model.Cart) (*model.CartView, error) {
	view, err := s.buildView(cart)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.CartChanged(cart.UserID, view)
	}
	return view, nil
}

// buildView attaches the current catalog product to every line. Lines whose
// product has since been deleted are returned without one.
func (s *cartService) buildView(cart *model.Cart) (*model.CartView, error) {
	ids := make([]uint, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}

	products, err := s.productRepo.FindByIDs(ids)
	if err != nil {
		return nil, err
	}

	lines := make([]model.CartLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, model.CartLine{CartItem: item, Product: products[item.ProductID]})
	}

	updatedAt := cart.UpdatedAt
	return &model.CartView{
		ID:        cart.ID,
		UserID:    cart.UserID,
		Items:     lines,
		Total:     cart.Total,
		Version:   cart.Version,
		UpdatedAt: &updatedAt,
	}, nil
}
