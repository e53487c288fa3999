package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/ikkim/pos-backend/config"
	"github.com/ikkim/pos-backend/internal/app/controller"
	"github.com/ikkim/pos-backend/internal/app/model"
	"github.com/ikkim/pos-backend/internal/app/repository"
	"github.com/ikkim/pos-backend/internal/app/service"
	"github.com/ikkim/pos-backend/internal/db"
	apperrors "github.com/ikkim/pos-backend/internal/errors"
	"github.com/ikkim/pos-backend/internal/middleware"
	"github.com/ikkim/pos-backend/internal/router"
	ws "github.com/ikkim/pos-backend/internal/websocket"
	"github.com/ikkim/pos-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

// memoryBlacklist stands in for the redis token blacklist.
type memoryBlacklist struct {
	mu     sync.Mutex
	tokens map[string]bool
}

func (b *memoryBlacklist) Blacklist(_ context.Context, token string, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens[token] = true
	return nil
}

func (b *memoryBlacklist) IsBlacklisted(_ context.Context, token string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens[token], nil
}

type TestServer struct {
	Server *httptest.Server
	DB     *gorm.DB
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func setupIntegrationTest(t *testing.T) *TestServer {
	gin.SetMode(gin.TestMode)

	cost := util.BcryptCost
	util.BcryptCost = bcrypt.MinCost
	t.Cleanup(func() { util.BcryptCost = cost })

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	cfg := &config.Config{
		Server: config.ServerConfig{GinMode: gin.TestMode},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"*"}},
	}

	userRepo := repository.NewUserRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	categoryRepo := repository.NewCategoryRepository(testDB)
	cartRepo := repository.NewCartRepository(testDB)

	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	blacklist := &memoryBlacklist{tokens: map[string]bool{}}

	authService := service.NewAuthService(userRepo, testSecret, 15*time.Minute, 7*24*time.Hour, blacklist)
	productService := service.NewProductService(productRepo, categoryRepo, 0)
	categoryService := service.NewCategoryService(categoryRepo, productRepo)
	cartService := service.NewCartService(cartRepo, productRepo, hub)

	r := router.NewRouter(
		controller.NewAuthController(authService),
		controller.NewProductController(productService),
		controller.NewCategoryController(categoryService),
		controller.NewCartController(cartService, false),
		controller.NewCartSocketController(hub, cartService, cfg.CORS.AllowedOrigins),
		controller.NewUploadController(nil),
		middleware.NewAuthMiddleware(testSecret, blacklist),
		cfg,
	)

	server := httptest.NewServer(r.Setup())
	t.Cleanup(server.Close)

	return &TestServer{Server: server, DB: testDB}
}

func (s *TestServer) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, s.Server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func decodeCart(t *testing.T, env envelope) model.CartView {
	t.Helper()
	var cart model.CartView
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	return cart
}

func (s *TestServer) createAdminToken(t *testing.T) string {
	t.Helper()
	admin := &model.User{Name: "Owner", Mobile: "9000000000", PasswordHash: "x", Role: model.RoleAdmin}
	require.NoError(t, s.DB.Create(admin).Error)
	tokens, err := util.GenerateTokenPair(admin.ID, admin.Mobile, string(admin.Role), testSecret, time.Hour, time.Hour)
	require.NoError(t, err)
	return tokens.AccessToken
}

func readCartEvent(t *testing.T, conn *websocket.Conn) ws.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event ws.Event
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestCartFlow(t *testing.T) {
	s := setupIntegrationTest(t)

	status, env := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]interface{}{
		"name":     "Till One",
		"mobile":   "9876543210",
		"password": "secret1",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var auth controller.AuthResponse
	require.NoError(t, json.Unmarshal(env.Data, &auth))
	token := auth.Token
	cashierID := auth.User.ID

	status, env = s.do(t, http.MethodGet, "/api/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, apperrors.AuthUnauthorized, env.Error)

	status, env = s.do(t, http.MethodGet, "/api/cart", token, nil)
	require.Equal(t, http.StatusOK, status)
	empty := decodeCart(t, env)
	assert.Empty(t, empty.Items)
	assert.Zero(t, empty.Total)

	status, env = s.do(t, http.MethodPost, "/api/products", token, map[string]interface{}{
		"itemName":   "Masala Tea",
		"retailRate": 10,
		"stock":      5,
		"category":   "Beverages",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var product model.Product
	require.NoError(t, json.Unmarshal(env.Data, &product))

	wsURL := "ws" + strings.TrimPrefix(s.Server.URL, "http") + "/api/cart/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	initial := readCartEvent(t, conn)
	assert.Equal(t, ws.EventCartUpdated, initial.Type)
	require.NotNil(t, initial.Cart)
	assert.Empty(t, initial.Cart.Items)

	t.Run("add pushes to open sessions", func(t *testing.T) {
		status, env := s.do(t, http.MethodPost, "/api/cart/items", token, map[string]interface{}{
			"productId": product.ID,
			"quantity":  2,
		})
		require.Equal(t, http.StatusOK, status, env.Message)
		cart := decodeCart(t, env)
		require.Len(t, cart.Items, 1)
		assert.Equal(t, 20.0, cart.Total)
		require.NotNil(t, cart.Items[0].Product)
		assert.Equal(t, "Masala Tea", cart.Items[0].Product.Name)

		pushed := readCartEvent(t, conn)
		require.NotNil(t, pushed.Cart)
		assert.Equal(t, 20.0, pushed.Cart.Total)
		assert.Equal(t, cart.Version, pushed.Cart.Version)
	})

	t.Run("quantity defaults to one", func(t *testing.T) {
		status, env := s.do(t, http.MethodPost, "/api/cart/items", token, map[string]interface{}{
			"productId": product.ID,
		})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, 3, decodeCart(t, env).Items[0].Quantity)
		readCartEvent(t, conn)
	})

	t.Run("insufficient stock has a structured code", func(t *testing.T) {
		status, env := s.do(t, http.MethodPost, "/api/cart/items", token, map[string]interface{}{
			"productId": product.ID,
			"quantity":  10,
		})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.False(t, env.Success)
		assert.Equal(t, apperrors.CartInsufficientStock, env.Error)
		assert.Contains(t, env.Message, "available: 5")
	})

	t.Run("bypass flag allows overselling", func(t *testing.T) {
		status, env := s.do(t, http.MethodPut, "/api/cart/items", token, map[string]interface{}{
			"productId":       product.ID,
			"quantity":        8,
			"allowOutOfStock": true,
		})
		require.Equal(t, http.StatusOK, status, env.Message)
		assert.Equal(t, 80.0, decodeCart(t, env).Total)
		readCartEvent(t, conn)
	})

	t.Run("unknown product", func(t *testing.T) {
		status, env := s.do(t, http.MethodPost, "/api/cart/items", token, map[string]interface{}{
			"productId": 9999,
		})
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, apperrors.ProductNotFound, env.Error)
	})

	t.Run("invalid quantity", func(t *testing.T) {
		status, env := s.do(t, http.MethodPost, "/api/cart/items", token, map[string]interface{}{
			"productId": product.ID,
			"quantity":  0,
		})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, apperrors.CartInvalidQuantity, env.Error)
	})

	t.Run("remove missing line", func(t *testing.T) {
		status, env := s.do(t, http.MethodDelete, "/api/cart/items/9999", token, nil)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, apperrors.CartItemNotFound, env.Error)
	})

	t.Run("cashier cannot act on another cart", func(t *testing.T) {
		status, env := s.do(t, http.MethodGet, "/api/cart?userId=4242", token, nil)
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, apperrors.AuthzForbidden, env.Error)
	})

	t.Run("admin acts on cashier cart", func(t *testing.T) {
		adminToken := s.createAdminToken(t)

		status, env := s.do(t, http.MethodGet, fmt.Sprintf("/api/cart?userId=%d", cashierID), adminToken, nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, 80.0, decodeCart(t, env).Total)

		status, env = s.do(t, http.MethodPut, "/api/cart/items", adminToken, map[string]interface{}{
			"productId": product.ID,
			"quantity":  0,
			"userId":    cashierID,
		})
		require.Equal(t, http.StatusOK, status)
		assert.Empty(t, decodeCart(t, env).Items)

		pushed := readCartEvent(t, conn)
		assert.Empty(t, pushed.Cart.Items)
	})

	t.Run("clear", func(t *testing.T) {
		status, env := s.do(t, http.MethodDelete, "/api/cart", token, nil)
		require.Equal(t, http.StatusOK, status)
		cart := decodeCart(t, env)
		assert.Empty(t, cart.Items)
		assert.Zero(t, cart.Total)
	})

	t.Run("logout revokes token", func(t *testing.T) {
		status, _ := s.do(t, http.MethodPost, "/api/auth/logout", token, nil)
		require.Equal(t, http.StatusOK, status)

		status, env := s.do(t, http.MethodGet, "/api/auth/me", token, nil)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, apperrors.AuthTokenRevoked, env.Error)
	})
}

func TestCatalogFlow(t *testing.T) {
	s := setupIntegrationTest(t)
	adminToken := s.createAdminToken(t)

	status, env := s.do(t, http.MethodPost, "/api/categories", adminToken, map[string]interface{}{
		"name": "Snacks",
	})
	require.Equal(t, http.StatusCreated, status)

	status, env = s.do(t, http.MethodPost, "/api/categories", adminToken, map[string]interface{}{
		"name": "Snacks",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, apperrors.CategoryExists, env.Error)

	for _, name := range []string{"Chips", "Biscuits"} {
		status, env = s.do(t, http.MethodPost, "/api/products", adminToken, map[string]interface{}{
			"itemName":   name,
			"retailRate": 20,
			"category":   "Snacks",
		})
		require.Equal(t, http.StatusCreated, status, env.Message)
	}

	status, env = s.do(t, http.MethodGet, "/api/categories/slug/snacks/products", "", nil)
	require.Equal(t, http.StatusOK, status)
	var page service.ProductPage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, "Biscuits", page.Items[0].Name)

	status, env = s.do(t, http.MethodGet, "/api/products?sortBy=name:desc&category=snacks", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, "Chips", page.Items[0].Name)

	status, env = s.do(t, http.MethodGet, "/api/products?sortBy=password", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, apperrors.ValidationInvalidInput, env.Error)

	status, env = s.do(t, http.MethodPost, "/api/uploads/product-image", adminToken, map[string]interface{}{
		"filename":    "chips.png",
		"contentType": "image/png",
	})
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, apperrors.UploadNotConfigured, env.Error)
}

func TestHealth(t *testing.T) {
	s := setupIntegrationTest(t)

	resp, err := http.Get(s.Server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
}
