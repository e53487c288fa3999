package repository

import (
	"testing"

	"github.com/ikkim/pos-backend/internal/app/model"
	"github.com/ikkim/pos-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupCartTest(t *testing.T) CartRepository {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	return NewCartRepository(testDB)
}

func TestCartRepository_CreateIfAbsent(t *testing.T) {
	repo := setupCartTest(t)

	cart := &model.Cart{UserID: 1}
	created, err := repo.CreateIfAbsent(cart)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, cart.ID)
	assert.Equal(t, 1, cart.Version)

	created, err = repo.CreateIfAbsent(&model.Cart{UserID: 1})
	require.NoError(t, err)
	assert.False(t, created)

	found, err := repo.FindByUserID(1)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, found.ID)
	assert.NotNil(t, found.Items)
	assert.Empty(t, found.Items)
}

func TestCartRepository_FindByUserID_NotFound(t *testing.T) {
	repo := setupCartTest(t)

	_, err := repo.FindByUserID(42)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCartRepository_SaveIfVersion(t *testing.T) {
	repo := setupCartTest(t)

	cart := &model.Cart{UserID: 7}
	_, err := repo.CreateIfAbsent(cart)
	require.NoError(t, err)

	cart.Items = []model.CartItem{
		{ProductID: 3, Name: "Milk 1L", Price: 60, Quantity: 2, Subtotal: 120},
		{ProductID: 1, Name: "Chips", Price: 20, Quantity: 1, Subtotal: 20},
	}
	cart.Total = 140

	ok, err := repo.SaveIfVersion(cart, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, cart.Version)

	stored, err := repo.FindByUserID(7)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version)
	assert.Equal(t, 140.0, stored.Total)
	require.Len(t, stored.Items, 2)
	// insertion order survives the JSON column
	assert.Equal(t, uint(3), stored.Items[0].ProductID)
	assert.Equal(t, uint(1), stored.Items[1].ProductID)
}

func TestCartRepository_SaveIfVersion_Conflict(t *testing.T) {
	repo := setupCartTest(t)

	cart := &model.Cart{UserID: 7}
	_, err := repo.CreateIfAbsent(cart)
	require.NoError(t, err)

	staleA, err := repo.FindByUserID(7)
	require.NoError(t, err)
	staleB, err := repo.FindByUserID(7)
	require.NoError(t, err)

	staleA.Items = []model.CartItem{{ProductID: 1, Name: "A", Price: 5, Quantity: 1, Subtotal: 5}}
	staleA.Total = 5
	ok, err := repo.SaveIfVersion(staleA, staleA.Version)
	require.NoError(t, err)
	require.True(t, ok)

	staleB.Items = []model.CartItem{{ProductID: 2, Name: "B", Price: 7, Quantity: 1, Subtotal: 7}}
	staleB.Total = 7
	ok, err = repo.SaveIfVersion(staleB, staleB.Version)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, staleB.Version)

	stored, err := repo.FindByUserID(7)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, uint(1), stored.Items[0].ProductID)
}
