package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zaharka0/tobacco-store-design/models"
)

// fakeBackend is an in-memory stand-in for the site-content function.
type fakeBackend struct {
	mu         sync.Mutex
	nextCartID int64
	nextItemID int64
	phoneCarts map[string]int64
	items      map[int64][]models.CartItem

	cartCreates int
	failAdd     bool
	failRemove  bool
	failLoad    bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		nextCartID: 100,
		nextItemID: 1000,
		phoneCarts: make(map[string]int64),
		items:      make(map[int64][]models.CartItem),
	}
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch r.URL.Query().Get("action") {
	case "cart":
		var req struct {
			UserPhone string `json:"user_phone"`
			SessionID string `json:"session_id"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		id, ok := b.phoneCarts[req.UserPhone]
		if !ok {
			b.nextCartID++
			id = b.nextCartID
			b.phoneCarts[req.UserPhone] = id
		}
		b.cartCreates++
		json.NewEncoder(w).Encode(map[string]int64{"cart_id": id})

	case "cart-item":
		if b.failAdd {
			http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
			return
		}
		var req struct {
			CartID       int64   `json:"cart_id"`
			ProductID    int64   `json:"product_id"`
			ProductName  string  `json:"product_name"`
			ProductPrice float64 `json:"product_price"`
			Quantity     int     `json:"quantity"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		items := b.items[req.CartID]
		bumped := false
		for i := range items {
			if items[i].ProductID == req.ProductID {
				items[i].Quantity += req.Quantity
				bumped = true
				break
			}
		}
		if !bumped {
			b.nextItemID++
			items = append(items, models.CartItem{
				ID:           b.nextItemID,
				ProductID:    req.ProductID,
				ProductName:  req.ProductName,
				ProductPrice: req.ProductPrice,
				Quantity:     req.Quantity,
			})
		}
		b.items[req.CartID] = items
		json.NewEncoder(w).Encode(map[string]bool{"success": true})

	case "cart-items":
		if b.failLoad {
			http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
			return
		}
		cartID, _ := strconv.ParseInt(r.URL.Query().Get("cart_id"), 10, 64)
		var resp models.CartItemsResponse
		resp.Items = []models.CartItem{}
		for _, it := range b.items[cartID] {
			it.Total = it.ProductPrice * float64(it.Quantity)
			resp.Total += it.Total
			resp.Items = append(resp.Items, it)
		}
		json.NewEncoder(w).Encode(resp)

	case "cart-item-remove":
		if b.failRemove {
			http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
			return
		}
		itemID, _ := strconv.ParseInt(r.URL.Query().Get("item_id"), 10, 64)
		for cartID, items := range b.items {
			kept := items[:0]
			for _, it := range items {
				if it.ID != itemID {
					kept = append(kept, it)
				}
			}
			b.items[cartID] = kept
		}
		json.NewEncoder(w).Encode(map[string]bool{"success": true})

	default:
		http.Error(w, `{"error":"unknown action"}`, http.StatusBadRequest)
	}
}

func providePhone(phone string) IdentityProvider {
	return IdentityFunc(func(context.Context) (string, bool) { return phone, true })
}

func declineIdentity() IdentityProvider {
	return IdentityFunc(func(context.Context) (string, bool) { return "", false })
}

func newTestManager(t *testing.T, backend *fakeBackend, identity IdentityProvider) (*CartManager, *MemoryStore) {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	client := NewClient(FuncURLs{SiteContent: srv.URL}, srv.Client())
	store := NewMemoryStore()
	return NewCartManager(client, store, identity, ""), store
}

func TestCheckoutHandoffEmptyCart(t *testing.T) {
	m, _ := newTestManager(t, newFakeBackend(), declineIdentity())
	assert.Equal(t, "", m.CheckoutHandoff())
}

func TestAddItemCreatesCartAndLoadsTruth(t *testing.T) {
	backend := newFakeBackend()
	m, store := newTestManager(t, backend, providePhone("79990000000"))

	err := m.AddItem(context.Background(), 7, "USB-C Кабель", 350)
	require.NoError(t, err)

	assert.NotZero(t, m.CartID())
	assert.Equal(t, "79990000000", m.Phone())
	assert.Equal(t, 1, m.ItemCount())
	assert.Equal(t, 350.0, m.Total())

	items := m.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(7), items[0].ProductID)
	assert.NotZero(t, items[0].ID, "line items get a server-assigned identifier")
	assert.Equal(t, 350.0, items[0].Total, "total == price * 1 with default quantity")

	phone, ok := store.Get("cart_phone")
	assert.True(t, ok)
	assert.Equal(t, "79990000000", phone)
	raw, ok := store.Get("cart_id")
	require.True(t, ok)
	assert.Equal(t, strconv.FormatInt(m.CartID(), 10), raw)
}

func TestAddItemIdentityDeclined(t *testing.T) {
	backend := newFakeBackend()
	m, store := newTestManager(t, backend, declineIdentity())

	err := m.AddItem(context.Background(), 7, "USB-C Кабель", 350)
	assert.ErrorIs(t, err, ErrIdentityRequired)

	// The operation aborts back to Absent: nothing stored, no cart created.
	assert.Zero(t, m.CartID())
	assert.Empty(t, m.Items())
	_, ok := store.Get("cart_phone")
	assert.False(t, ok)
	assert.Zero(t, backend.cartCreates)
}

func TestAddItemTransportFailureLeavesStateUnchanged(t *testing.T) {
	backend := newFakeBackend()
	m, _ := newTestManager(t, backend, providePhone("79990000000"))

	require.NoError(t, m.AddItem(context.Background(), 1, "JUUL Pod System", 3500))
	before := m.Items()

	backend.failAdd = true
	err := m.AddItem(context.Background(), 2, "SMOK Nord 4", 2800)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrIdentityRequired)
	assert.Equal(t, before, m.Items(), "no partial mutation retained client-side")
	assert.Equal(t, 3500.0, m.Total())
}

func TestTotalsMatchServerAfterEveryLoad(t *testing.T) {
	backend := newFakeBackend()
	m, _ := newTestManager(t, backend, providePhone("79990000000"))
	ctx := context.Background()

	require.NoError(t, m.AddItem(ctx, 4, "Жидкость Ягодный Микс", 450))
	require.NoError(t, m.AddItem(ctx, 5, "Жидкость Тропик", 500))
	require.NoError(t, m.AddItem(ctx, 5, "Жидкость Тропик", 500)) // quantity bump

	require.NoError(t, m.LoadCart(ctx))

	var sumTotals float64
	var sumQty int
	for _, it := range m.Items() {
		sumTotals += it.Total
		sumQty += it.Quantity
	}
	assert.Equal(t, sumTotals, m.Total())
	assert.Equal(t, sumQty, m.ItemCount())
	assert.Equal(t, 3, m.ItemCount())
	assert.Equal(t, 1450.0, m.Total())
}

func TestRemoveItemRecomputesTotal(t *testing.T) {
	backend := newFakeBackend()
	m, _ := newTestManager(t, backend, providePhone("79990000000"))
	ctx := context.Background()

	require.NoError(t, m.AddItem(ctx, 4, "Жидкость Ягодный Микс", 450))
	require.NoError(t, m.AddItem(ctx, 1, "Сменные картриджи", 1000))
	require.Equal(t, 1450.0, m.Total())

	var removed models.CartItem
	for _, it := range m.Items() {
		if it.ProductPrice == 450 {
			removed = it
		}
	}
	require.NotZero(t, removed.ID)

	countBefore := m.ItemCount()
	m.RemoveItem(ctx, removed.ID)

	assert.Equal(t, 1000.0, m.Total())
	assert.Equal(t, countBefore-removed.Quantity, m.ItemCount())
}

func TestRemoveItemTwiceIsIdempotent(t *testing.T) {
	backend := newFakeBackend()
	m, _ := newTestManager(t, backend, providePhone("79990000000"))
	ctx := context.Background()

	require.NoError(t, m.AddItem(ctx, 7, "USB-C Кабель", 350))
	require.NoError(t, m.AddItem(ctx, 8, "Сменные картриджи", 800))
	itemID := m.Items()[0].ID

	m.RemoveItem(ctx, itemID)
	after := m.Items()
	total := m.Total()

	// Second remove of the same id reloads the unchanged contents.
	m.RemoveItem(ctx, itemID)
	assert.Equal(t, after, m.Items())
	assert.Equal(t, total, m.Total())
}

func TestRemoveItemReloadsEvenOnDeleteFailure(t *testing.T) {
	backend := newFakeBackend()
	m, _ := newTestManager(t, backend, providePhone("79990000000"))
	ctx := context.Background()

	require.NoError(t, m.AddItem(ctx, 7, "USB-C Кабель", 350))

	// Mutate server state behind the manager's back, then fail the delete:
	// the unconditional reload must resynchronize anyway.
	backend.mu.Lock()
	cartID := m.CartID()
	backend.nextItemID++
	backend.items[cartID] = append(backend.items[cartID], models.CartItem{
		ID: backend.nextItemID, ProductID: 8, ProductName: "Сменные картриджи", ProductPrice: 800, Quantity: 1,
	})
	backend.failRemove = true
	backend.mu.Unlock()

	m.RemoveItem(ctx, m.Items()[0].ID)
	assert.Equal(t, 2, m.ItemCount())
	assert.Equal(t, 1150.0, m.Total())
}

func TestClearCartKeepsPhone(t *testing.T) {
	backend := newFakeBackend()
	m, store := newTestManager(t, backend, providePhone("79990000000"))

	require.NoError(t, m.AddItem(context.Background(), 7, "USB-C Кабель", 350))
	m.ClearCart()

	assert.Zero(t, m.CartID())
	assert.Empty(t, m.Items())
	assert.Zero(t, m.Total())
	_, ok := store.Get("cart_id")
	assert.False(t, ok)
	phone, ok := store.Get("cart_phone")
	assert.True(t, ok)
	assert.Equal(t, "79990000000", phone)
}

func TestNewCartManagerRestoresSession(t *testing.T) {
	backend := newFakeBackend()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	client := NewClient(FuncURLs{SiteContent: srv.URL}, srv.Client())

	store := NewMemoryStore()
	store.Set("cart_phone", "79990000000")
	store.Set("cart_id", "42")
	m := NewCartManager(client, store, declineIdentity(), "")
	assert.Equal(t, int64(42), m.CartID())
	assert.Equal(t, "79990000000", m.Phone())

	// A cart id without a phone is not honored.
	orphan := NewMemoryStore()
	orphan.Set("cart_id", "42")
	m2 := NewCartManager(client, orphan, declineIdentity(), "")
	assert.Zero(t, m2.CartID())
}

func TestCheckoutHandoffEncodesSummary(t *testing.T) {
	backend := newFakeBackend()
	m, _ := newTestManager(t, backend, providePhone("79990000000"))
	ctx := context.Background()

	require.NoError(t, m.AddItem(ctx, 7, "USB-C Кабель", 350))
	require.NoError(t, m.AddItem(ctx, 8, "Сменные картриджи", 800))

	link := m.CheckoutHandoff()
	require.NotEmpty(t, link)

	assert.True(t, strings.HasPrefix(link, "https://t.me/whiteshishka_bot?start=order_"), link)
	assert.Contains(t, link, fmt.Sprintf("order_%d", m.CartID()))

	u, err := url.Parse(link)
	require.NoError(t, err)
	text := u.Query().Get("text")
	assert.Contains(t, text, "USB-C Кабель x1 = 350₽")
	assert.Contains(t, text, "Сменные картриджи x1 = 800₽")
	assert.Contains(t, text, "Итого: 1150₽")
	assert.Contains(t, text, "79990000000")
}
