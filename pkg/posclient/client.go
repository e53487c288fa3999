// Package posclient is a Go client for the POS cart API. Every successful
// cart call replaces the client's CartMirror with the returned cart.
package posclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	mirror     *CartMirror
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMirror shares an existing mirror, e.g. between a client and a watcher.
func WithMirror(m *CartMirror) Option {
	return func(c *Client) {
		c.mirror = m
	}
}

// New creates a client for the API rooted at baseURL (e.g.
// "http://till.local:8080/api") authenticating with token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
		mirror:     NewCartMirror(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Mirror() *CartMirror {
	return c.mirror
}

// ItemOption tunes add and update calls.
type ItemOption func(*itemRequest)

// AllowOutOfStock asks the server to skip stock checks for this call.
func AllowOutOfStock() ItemOption {
	return func(r *itemRequest) {
		allow := true
		r.AllowOutOfStock = &allow
	}
}

// ForUser makes an admin act on another user's cart.
func ForUser(userID uint) ItemOption {
	return func(r *itemRequest) {
		r.UserID = &userID
	}
}

type itemRequest struct {
	ProductID       uint  `json:"productId"`
	Quantity        *int  `json:"quantity,omitempty"`
	UserID          *uint `json:"userId,omitempty"`
	AllowOutOfStock *bool `json:"allowOutOfStock,omitempty"`
}

func (c *Client) GetCart(ctx context.Context) (*Cart, error) {
	return c.cartCall(ctx, http.MethodGet, "/cart", nil)
}

// AddItem adds quantity units of a product; quantity 0 lets the server
// default to one.
func (c *Client) AddItem(ctx context.Context, productID uint, quantity int, opts ...ItemOption) (*Cart, error) {
	req := itemRequest{ProductID: productID}
	if quantity != 0 {
		req.Quantity = &quantity
	}
	for _, opt := range opts {
		opt(&req)
	}
	return c.cartCall(ctx, http.MethodPost, "/cart/items", req)
}

// UpdateItem sets the absolute quantity of a line. Zero removes it.
func (c *Client) UpdateItem(ctx context.Context, productID uint, quantity int, opts ...ItemOption) (*Cart, error) {
	req := itemRequest{ProductID: productID, Quantity: &quantity}
	for _, opt := range opts {
		opt(&req)
	}
	return c.cartCall(ctx, http.MethodPut, "/cart/items", req)
}

func (c *Client) RemoveItem(ctx context.Context, productID uint) (*Cart, error) {
	return c.cartCall(ctx, http.MethodDelete, fmt.Sprintf("/cart/items/%d", productID), nil)
}

func (c *Client) ClearCart(ctx context.Context) (*Cart, error) {
	return c.cartCall(ctx, http.MethodDelete, "/cart", nil)
}

func (c *Client) cartCall(ctx context.Context, method, path string, body interface{}) (*Cart, error) {
	var cart Cart
	if err := c.do(ctx, method, path, body, &cart); err != nil {
		return nil, err
	}
	if cart.Items == nil {
		cart.Items = []CartLine{}
	}
	c.mirror.Replace(&cart)
	return &cart, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest || !env.Success {
		return &APIError{Status: resp.StatusCode, Code: env.Error, Message: env.Message}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}
