package service

import (
	"math"
	"sync"
	"testing"

	"github.com/ikkim/pos-backend/internal/app/model"
	"github.com/ikkim/pos-backend/internal/app/repository"
	"github.com/ikkim/pos-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []*model.CartView
}

func (n *recordingNotifier) CartChanged(userID uint, cart *model.CartView) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, cart)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

// conflictingCartRepo reports a version conflict for the first n saves.
type conflictingCartRepo struct {
	repository.CartRepository
	conflicts int
	saves     int
}

func (r *conflictingCartRepo) SaveIfVersion(cart *model.Cart, expectedVersion int) (bool, error) {
	r.saves++
	if r.saves <= r.conflicts {
		return false, nil
	}
	return r.CartRepository.SaveIfVersion(cart, expectedVersion)
}

type cartFixture struct {
	service     CartService
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	notifier    *recordingNotifier
}

func setupCartServiceTest(t *testing.T) *cartFixture {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	f := &cartFixture{
		cartRepo:    repository.NewCartRepository(testDB),
		productRepo: repository.NewProductRepository(testDB),
		notifier:    &recordingNotifier{},
	}
	f.service = NewCartService(f.cartRepo, f.productRepo, f.notifier)
	return f
}

func (f *cartFixture) product(t *testing.T, name string, price float64, stock *int) *model.Product {
	t.Helper()
	p := &model.Product{
		Name:       name,
		RetailRate: price,
		Category:   "General",
		Stock:      stock,
		IsActive:   true,
	}
	require.NoError(t, f.productRepo.Create(p))
	return p
}

func intPtr(v int) *int {
	return &v
}

func assertTotalsConsistent(t *testing.T, cart *model.CartView) {
	t.Helper()
	var sum float64
	for _, line := range cart.Items {
		assert.InDelta(t, line.Price*float64(line.Quantity), line.Subtotal, 1e-9)
		sum += line.Subtotal
	}
	assert.InDelta(t, sum, cart.Total, 1e-9)
}

func TestCartService_GetCart_NoCart(t *testing.T) {
	f := setupCartServiceTest(t)

	cart, err := f.service.GetCart(7)
	require.NoError(t, err)
	assert.Equal(t, uint(7), cart.UserID)
	assert.Empty(t, cart.Items)
	assert.NotNil(t, cart.Items)
	assert.Zero(t, cart.Total)

	_, err = f.cartRepo.FindByUserID(7)
	assert.Error(t, err, "reading must not create a cart")
}

func TestCartService_GetOrCreateCart(t *testing.T) {
	f := setupCartServiceTest(t)

	first, err := f.service.GetOrCreateCart(1)
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.Empty(t, first.Items)
	assert.Zero(t, first.Total)

	second, err := f.service.GetOrCreateCart(1)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestCartService_GetOrCreateCart_Concurrent(t *testing.T) {
	f := setupCartServiceTest(t)

	ids := make([]uint, 8)
	var g errgroup.Group
	for i := range ids {
		i := i
		g.Go(func() error {
			cart, err := f.service.GetOrCreateCart(3)
			if err != nil {
				return err
			}
			ids[i] = cart.ID
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestCartService_ExampleScenarios(t *testing.T) {
	f := setupCartServiceTest(t)
	p1 := f.product(t, "P1", 10, intPtr(5))
	p2 := f.product(t, "P2", 4, intPtr(3))
	p3 := f.product(t, "P3", 1, nil)
	const user = uint(1)

	t.Run("add to empty cart", func(t *testing.T) {
		cart, err := f.service.AddItem(user, p1.ID, 2, AddOptions{})
		require.NoError(t, err)
		require.Len(t, cart.Items, 1)
		line := cart.Items[0]
		assert.Equal(t, p1.ID, line.ProductID)
		assert.Equal(t, 2, line.Quantity)
		assert.Equal(t, 10.0, line.Price)
		assert.Equal(t, 20.0, line.Subtotal)
		assert.Equal(t, 20.0, cart.Total)
		require.NotNil(t, line.Product)
		assert.Equal(t, "P1", line.Product.Name)
	})

	t.Run("add same product merges", func(t *testing.T) {
		cart, err := f.service.AddItem(user, p1.ID, 1, AddOptions{})
		require.NoError(t, err)
		require.Len(t, cart.Items, 1)
		assert.Equal(t, 3, cart.Items[0].Quantity)
		assert.Equal(t, 30.0, cart.Items[0].Subtotal)
		assert.Equal(t, 30.0, cart.Total)
	})

	t.Run("update to zero removes", func(t *testing.T) {
		cart, err := f.service.UpdateItemQuantity(user, p1.ID, 0, AddOptions{})
		require.NoError(t, err)
		assert.Empty(t, cart.Items)
		assert.NotNil(t, cart.Items)
		assert.Zero(t, cart.Total)
	})

	t.Run("insufficient stock leaves cart unchanged", func(t *testing.T) {
		before, err := f.service.GetCart(user)
		require.NoError(t, err)

		_, err = f.service.AddItem(user, p2.ID, 10, AddOptions{})
		assert.ErrorIs(t, err, ErrInsufficientStock)
		assert.Contains(t, err.Error(), "available: 3")

		after, err := f.service.GetCart(user)
		require.NoError(t, err)
		assert.Equal(t, before.Version, after.Version)
		assert.Equal(t, before.Items, after.Items)
	})

	t.Run("remove never added", func(t *testing.T) {
		_, err := f.service.RemoveItem(user, p3.ID)
		assert.ErrorIs(t, err, ErrCartItemNotFound)
	})
}

func TestCartService_AddItem(t *testing.T) {
	f := setupCartServiceTest(t)
	unlimited := f.product(t, "Unlimited", 2.5, nil)
	empty := f.product(t, "Empty", 3, intPtr(0))

	tests := []struct {
		name      string
		productID uint
		quantity  int
		opts      AddOptions
		wantErr   error
	}{
		{"zero quantity", unlimited.ID, 0, AddOptions{}, ErrInvalidQuantity},
		{"negative quantity", unlimited.ID, -2, AddOptions{}, ErrInvalidQuantity},
		{"unknown product", 9999, 1, AddOptions{}, ErrProductNotFound},
		{"out of stock", empty.ID, 1, AddOptions{}, ErrOutOfStock},
		{"out of stock with bypass", empty.ID, 1, AddOptions{AllowOutOfStock: true}, nil},
		{"untracked stock has no limit", unlimited.ID, 1000, AddOptions{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart, err := f.service.AddItem(10, tt.productID, tt.quantity, tt.opts)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, cart)
				return
			}
			require.NoError(t, err)
			assertTotalsConsistent(t, cart)
		})
	}
}

func TestCartService_AddItem_ExceedsStockOnMerge(t *testing.T) {
	f := setupCartServiceTest(t)
	p := f.product(t, "Limited", 5, intPtr(4))

	_, err := f.service.AddItem(1, p.ID, 3, AddOptions{})
	require.NoError(t, err)

	_, err = f.service.AddItem(1, p.ID, 2, AddOptions{})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	cart, err := f.service.AddItem(1, p.ID, 2, AddOptions{AllowOutOfStock: true})
	require.NoError(t, err)
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestCartService_AddItem_MergeOverflow(t *testing.T) {
	f := setupCartServiceTest(t)
	limited := f.product(t, "Limited", 5, intPtr(5))
	unlimited := f.product(t, "Unlimited", 5, nil)

	_, err := f.service.AddItem(1, limited.ID, 1, AddOptions{})
	require.NoError(t, err)
	_, err = f.service.AddItem(1, unlimited.ID, 1, AddOptions{})
	require.NoError(t, err)

	_, err = f.service.AddItem(1, limited.ID, math.MaxInt, AddOptions{})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	_, err = f.service.AddItem(1, limited.ID, math.MaxInt, AddOptions{AllowOutOfStock: true})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = f.service.AddItem(1, unlimited.ID, math.MaxInt, AddOptions{})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	cart, err := f.service.GetCart(1)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	for _, line := range cart.Items {
		assert.Equal(t, 1, line.Quantity)
	}
	assert.Equal(t, 10.0, cart.Total)
}

func TestCartService_AddItem_KeepsInsertionOrder(t *testing.T) {
	f := setupCartServiceTest(t)
	a := f.product(t, "A", 1, nil)
	b := f.product(t, "B", 2, nil)
	c := f.product(t, "C", 3, nil)

	for _, p := range []*model.Product{b, a, c} {
		_, err := f.service.AddItem(1, p.ID, 1, AddOptions{})
		require.NoError(t, err)
	}
	cart, err := f.service.AddItem(1, a.ID, 1, AddOptions{})
	require.NoError(t, err)

	require.Len(t, cart.Items, 3)
	assert.Equal(t, []uint{b.ID, a.ID, c.ID}, []uint{cart.Items[0].ProductID, cart.Items[1].ProductID, cart.Items[2].ProductID})
	assert.Equal(t, 7.0, cart.Total)
	assertTotalsConsistent(t, cart)
}

func TestCartService_AddItem_RefreshesPrice(t *testing.T) {
	f := setupCartServiceTest(t)
	p := f.product(t, "Tea", 10, nil)

	_, err := f.service.AddItem(1, p.ID, 1, AddOptions{})
	require.NoError(t, err)

	p.RetailRate = 12
	p.Name = "Green Tea"
	require.NoError(t, f.productRepo.Update(p))

	cart, err := f.service.AddItem(1, p.ID, 1, AddOptions{})
	require.NoError(t, err)
	assert.Equal(t, 12.0, cart.Items[0].Price)
	assert.Equal(t, 24.0, cart.Total)
	assert.Equal(t, "Tea", cart.Items[0].Name, "line name is captured when first added")
}

func TestCartService_UpdateItemQuantity(t *testing.T) {
	f := setupCartServiceTest(t)
	p := f.product(t, "Limited", 2, intPtr(5))
	other := f.product(t, "Other", 1, nil)

	_, err := f.service.AddItem(1, p.ID, 1, AddOptions{})
	require.NoError(t, err)
	_, err = f.service.AddItem(1, other.ID, 1, AddOptions{})
	require.NoError(t, err)

	t.Run("sets absolute quantity", func(t *testing.T) {
		cart, err := f.service.UpdateItemQuantity(1, p.ID, 5, AddOptions{})
		require.NoError(t, err)
		assert.Equal(t, 5, cart.Items[0].Quantity)
		assertTotalsConsistent(t, cart)
	})

	t.Run("above stock leaves state unchanged", func(t *testing.T) {
		before, err := f.service.GetCart(1)
		require.NoError(t, err)

		_, err = f.service.UpdateItemQuantity(1, p.ID, 6, AddOptions{})
		assert.ErrorIs(t, err, ErrInsufficientStock)

		after, err := f.service.GetCart(1)
		require.NoError(t, err)
		assert.Equal(t, before.Items, after.Items)
		assert.Equal(t, before.Total, after.Total)
		assert.Equal(t, before.Version, after.Version)
	})

	t.Run("above stock with bypass", func(t *testing.T) {
		cart, err := f.service.UpdateItemQuantity(1, p.ID, 6, AddOptions{AllowOutOfStock: true})
		require.NoError(t, err)
		assert.Equal(t, 6, cart.Items[0].Quantity)
	})

	t.Run("negative quantity", func(t *testing.T) {
		_, err := f.service.UpdateItemQuantity(1, p.ID, -1, AddOptions{})
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})

	t.Run("line not in cart", func(t *testing.T) {
		_, err := f.service.UpdateItemQuantity(1, 9999, 2, AddOptions{})
		assert.ErrorIs(t, err, ErrCartItemNotFound)
	})

	t.Run("zero removes exactly one line", func(t *testing.T) {
		before, err := f.service.GetCart(1)
		require.NoError(t, err)

		cart, err := f.service.UpdateItemQuantity(1, p.ID, 0, AddOptions{})
		require.NoError(t, err)
		assert.Len(t, cart.Items, len(before.Items)-1)
		assert.Equal(t, other.ID, cart.Items[0].ProductID)
		assert.Equal(t, 1.0, cart.Total)
	})
}

func TestCartService_UpdateItemQuantity_ZeroIgnoresDeletedProduct(t *testing.T) {
	f := setupCartServiceTest(t)
	p := f.product(t, "Discontinued", 3, nil)

	_, err := f.service.AddItem(1, p.ID, 2, AddOptions{})
	require.NoError(t, err)
	require.NoError(t, f.productRepo.Delete(p.ID))

	_, err = f.service.UpdateItemQuantity(1, p.ID, 1, AddOptions{})
	assert.ErrorIs(t, err, ErrProductNotFound)

	cart, err := f.service.UpdateItemQuantity(1, p.ID, 0, AddOptions{})
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestCartService_UpdateAndRemove_DoNotCreateCart(t *testing.T) {
	f := setupCartServiceTest(t)
	p := f.product(t, "Any", 1, nil)

	_, err := f.service.UpdateItemQuantity(5, p.ID, 1, AddOptions{})
	assert.ErrorIs(t, err, ErrCartItemNotFound)
	_, err = f.service.RemoveItem(5, p.ID)
	assert.ErrorIs(t, err, ErrCartItemNotFound)

	_, err = f.cartRepo.FindByUserID(5)
	assert.Error(t, err)
}

func TestCartService_RemoveItem(t *testing.T) {
	f := setupCartServiceTest(t)
	a := f.product(t, "A", 1.5, nil)
	b := f.product(t, "B", 2.25, nil)

	_, err := f.service.AddItem(1, a.ID, 2, AddOptions{})
	require.NoError(t, err)
	_, err = f.service.AddItem(1, b.ID, 4, AddOptions{})
	require.NoError(t, err)

	cart, err := f.service.RemoveItem(1, a.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, b.ID, cart.Items[0].ProductID)
	assert.Equal(t, 9.0, cart.Total)

	_, err = f.service.RemoveItem(1, a.ID)
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestCartService_ClearCart(t *testing.T) {
	f := setupCartServiceTest(t)
	p := f.product(t, "A", 4, nil)

	t.Run("without existing cart", func(t *testing.T) {
		cart, err := f.service.ClearCart(2)
		require.NoError(t, err)
		assert.Empty(t, cart.Items)
		assert.Zero(t, cart.Total)

		_, err = f.cartRepo.FindByUserID(2)
		assert.NoError(t, err, "clear upserts the cart")
	})

	t.Run("with items, idempotent", func(t *testing.T) {
		_, err := f.service.AddItem(2, p.ID, 3, AddOptions{})
		require.NoError(t, err)

		for i := 0; i < 2; i++ {
			cart, err := f.service.ClearCart(2)
			require.NoError(t, err)
			assert.Empty(t, cart.Items)
			assert.NotNil(t, cart.Items)
			assert.Zero(t, cart.Total)
		}
	})
}

func TestCartService_DecimalTotals(t *testing.T) {
	f := setupCartServiceTest(t)
	a := f.product(t, "A", 0.1, nil)
	b := f.product(t, "B", 0.2, nil)

	_, err := f.service.AddItem(1, a.ID, 1, AddOptions{})
	require.NoError(t, err)
	cart, err := f.service.AddItem(1, b.ID, 1, AddOptions{})
	require.NoError(t, err)

	assert.Equal(t, 0.3, cart.Total)
}

func TestCartService_NotifiesOnSuccessOnly(t *testing.T) {
	f := setupCartServiceTest(t)
	p := f.product(t, "A", 1, intPtr(1))

	_, err := f.service.AddItem(1, p.ID, 1, AddOptions{})
	require.NoError(t, err)
	_, err = f.service.AddItem(1, p.ID, 1, AddOptions{})
	require.Error(t, err)
	_, err = f.service.ClearCart(1)
	require.NoError(t, err)

	assert.Equal(t, 2, f.notifier.count())
	assert.Empty(t, f.notifier.calls[1].Items)
}

func TestCartService_RetriesVersionConflicts(t *testing.T) {
	f := setupCartServiceTest(t)
	p := f.product(t, "A", 1, nil)

	t.Run("recovers within budget", func(t *testing.T) {
		repo := &conflictingCartRepo{CartRepository: f.cartRepo, conflicts: maxCartSaveAttempts - 1}
		svc := NewCartService(repo, f.productRepo)

		cart, err := svc.AddItem(1, p.ID, 1, AddOptions{})
		require.NoError(t, err)
		assert.Equal(t, 1, cart.Items[0].Quantity)
		assert.Equal(t, maxCartSaveAttempts, repo.saves)
	})

	t.Run("gives up after budget", func(t *testing.T) {
		repo := &conflictingCartRepo{CartRepository: f.cartRepo, conflicts: maxCartSaveAttempts}
		svc := NewCartService(repo, f.productRepo)

		_, err := svc.AddItem(1, p.ID, 1, AddOptions{})
		assert.ErrorIs(t, err, ErrCartConflict)
		assert.Equal(t, maxCartSaveAttempts, repo.saves)

		cart, err := f.service.GetCart(1)
		require.NoError(t, err)
		assert.Equal(t, 1, cart.Items[0].Quantity)
	})
}

func TestCartService_ConcurrentAddsAreNotLost(t *testing.T) {
	f := setupCartServiceTest(t)
	p := f.product(t, "A", 1, nil)
	_, err := f.service.GetOrCreateCart(1)
	require.NoError(t, err)

	const workers = 10
	var (
		mu        sync.Mutex
		succeeded int
		g         errgroup.Group
	)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			_, err := f.service.AddItem(1, p.ID, 1, AddOptions{})
			if err != nil {
				if assert.ErrorIs(t, err, ErrCartConflict) {
					return nil
				}
				return err
			}
			mu.Lock()
			succeeded++
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	cart, err := f.service.GetCart(1)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, succeeded, cart.Items[0].Quantity)
	assert.Equal(t, float64(succeeded), cart.Total)
	assert.Positive(t, succeeded)
}
