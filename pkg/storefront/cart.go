package storefront

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Zaharka0/tobacco-store-design/models"
)

// ErrIdentityRequired is returned by AddItem when no contact phone is
// stored and the identity prompt was declined. The cart stays absent.
var ErrIdentityRequired = errors.New("телефон обязателен для корзины")

const defaultBotUsername = "whiteshishka_bot"

// CartManager owns the single cart of one device. It lazily creates
// the cart on the first add (prompting for a phone through the
// IdentityProvider), persists the cart id and phone through the
// SessionStore, and reloads the full line-item list after every
// mutation so the displayed total always reflects server-computed
// truth. Mutations are serialized: one in-flight mutation per cart.
type CartManager struct {
	api         *Client
	store       SessionStore
	identity    IdentityProvider
	botUsername string

	mu     sync.Mutex
	cartID int64
	phone  string
	items  []models.CartItem
	total  float64
}

// NewCartManager restores any persisted session state from the store.
// A stored cart id is only honored when a phone is stored alongside it.
// An empty botUsername selects the default shop bot.
func NewCartManager(api *Client, store SessionStore, identity IdentityProvider, botUsername string) *CartManager {
	if botUsername == "" {
		botUsername = defaultBotUsername
	}
	m := &CartManager{api: api, store: store, identity: identity, botUsername: botUsername}
	if phone, ok := store.Get(keyPhone); ok && phone != "" {
		m.phone = phone
		if raw, ok := store.Get(keyCartID); ok {
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
				m.cartID = id
			}
		}
	}
	return m
}

// CartID returns the server-issued cart id, 0 while the cart is absent.
func (m *CartManager) CartID() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cartID
}

// Phone returns the stored contact phone, empty when none was supplied.
func (m *CartManager) Phone() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phone
}

// Items returns a copy of the last successfully loaded line items.
func (m *CartManager) Items() []models.CartItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]models.CartItem, len(m.items))
	copy(items, m.items)
	return items
}

// Total returns the server-computed grand total of the last load.
func (m *CartManager) Total() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

// ItemCount returns the sum of line item quantities.
func (m *CartManager) ItemCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, it := range m.items {
		count += it.Quantity
	}
	return count
}

// LoadCart refreshes items and total from the backend. It is a no-op
// while the cart is absent. On failure the last successfully loaded
// state stays visible and the error is returned.
func (m *CartManager) LoadCart(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reload(ctx)
}

// reload fetches server truth into the manager. Callers hold mu.
func (m *CartManager) reload(ctx context.Context) error {
	if m.cartID == 0 {
		return nil
	}
	resp, err := m.api.CartItems(ctx, m.cartID)
	if err != nil {
		return err
	}
	m.items = resp.Items
	m.total = resp.Total
	return nil
}

// ensureCart drives the Absent → Pending-Identity → Active transitions.
// Callers hold mu.
func (m *CartManager) ensureCart(ctx context.Context) (int64, error) {
	if m.cartID != 0 {
		return m.cartID, nil
	}

	phone := m.phone
	if phone == "" {
		p, provided := m.identity.RequestPhone(ctx)
		if !provided || p == "" {
			return 0, ErrIdentityRequired
		}
		phone = p
		m.phone = phone
		m.store.Set(keyPhone, phone)
	}

	// The current timestamp is enough entropy for the session token
	// in this non-adversarial context.
	sessionID := strconv.FormatInt(time.Now().UnixMilli(), 10)
	id, err := m.api.CreateCart(ctx, phone, sessionID)
	if err != nil {
		return 0, err
	}
	m.cartID = id
	m.store.Set(keyCartID, strconv.FormatInt(id, 10))
	return id, nil
}

// AddItem submits a line item with quantity 1, creating the cart first
// when needed, then reloads the cart. On failure (identity declined,
// transport error) the cart state is left unchanged and the error is
// returned for user-facing reporting; a failed reload after a
// successful add is only logged, the add itself stands.
func (m *CartManager) AddItem(ctx context.Context, productID int64, name string, price float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cartID, err := m.ensureCart(ctx)
	if err != nil {
		return err
	}
	if err := m.api.AddCartItem(ctx, cartID, productID, name, price, 1); err != nil {
		return err
	}
	if err := m.reload(ctx); err != nil {
		log.Printf("Error reloading cart %d after add: %v", cartID, err)
	}
	return nil
}

// RemoveItem deletes a line item and reloads the cart unconditionally,
// even when the delete fails, to resynchronize with server truth.
// Transport failures are logged, not returned: removing an
// already-removed item simply reloads the current contents.
func (m *CartManager) RemoveItem(ctx context.Context, itemID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.api.RemoveCartItem(ctx, itemID); err != nil {
		log.Printf("Error removing cart item %d: %v", itemID, err)
	}
	if err := m.reload(ctx); err != nil {
		log.Printf("Error reloading cart %d after remove: %v", m.cartID, err)
	}
}

// ClearCart discards the in-memory items and the stored cart id. The
// phone is retained for faster re-entry.
func (m *CartManager) ClearCart() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = nil
	m.total = 0
	m.cartID = 0
	m.store.Delete(keyCartID)
}

// CheckoutHandoff builds the deep link that hands the order over to the
// Telegram bot: one "name xQty = total₽" line per item, the grand total
// and the contact phone, URL-encoded into the start payload. It returns
// the empty string for an empty cart; callers must not open a link then.
func (m *CartManager) CheckoutHandoff() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.items) == 0 {
		return ""
	}

	lines := make([]string, 0, len(m.items))
	for _, it := range m.items {
		lines = append(lines, fmt.Sprintf("%s x%d = %s₽", it.ProductName, it.Quantity, formatPrice(it.Total)))
	}
	message := fmt.Sprintf("🛒 Оформить заказ:\n\n%s\n\n💰 Итого: %s₽\n\n📱 Телефон: %s",
		strings.Join(lines, "\n"), formatPrice(m.total), m.phone)

	return fmt.Sprintf("https://t.me/%s?start=order_%d&text=%s",
		m.botUsername, m.cartID, url.QueryEscape(message))
}
