package posclient

import "sync"

// CartMirror caches the last cart the server returned. It is replaced
// wholesale, never patched.
type CartMirror struct {
	mu   sync.RWMutex
	cart *Cart
	subs []func(*Cart)
}

func NewCartMirror() *CartMirror {
	return &CartMirror{}
}

// Snapshot returns a copy of the cached cart, or nil before the first load.
func (m *CartMirror) Snapshot() *Cart {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cart == nil {
		return nil
	}
	return m.cart.clone()
}

func (m *CartMirror) Total() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cart == nil {
		return 0
	}
	return m.cart.Total
}

func (m *CartMirror) ItemCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cart == nil {
		return 0
	}
	return m.cart.ItemCount()
}

// OnChange registers fn to be called with a copy of every new cart.
func (m *CartMirror) OnChange(fn func(*Cart)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

// Replace stores cart as the current state.
func (m *CartMirror) Replace(cart *Cart) {
	m.store(cart, false)
}

// applyPush stores a pushed cart unless the mirror already holds a newer
// version of the same cart.
func (m *CartMirror) applyPush(cart *Cart) bool {
	return m.store(cart, true)
}

func (m *CartMirror) store(cart *Cart, skipStale bool) bool {
	if cart == nil {
		return false
	}

	m.mu.Lock()
	if skipStale && m.cart != nil && m.cart.ID == cart.ID && cart.Version < m.cart.Version {
		m.mu.Unlock()
		return false
	}
	m.cart = cart.clone()
	subs := make([]func(*Cart), len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(cart.clone())
	}
	return true
}
