// Package storefront is the client side of the shop: a typed client of
// the deployed function URLs, the catalog filter, the cart session
// manager and the content binding used by storefront views.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Zaharka0/tobacco-store-design/models"
)

// FuncURLs holds the deployed URL of every backend function, mirroring
// the generated func2url mapping.
type FuncURLs struct {
	Products    string `json:"products"`
	SiteContent string `json:"site-content"`
	Promotions  string `json:"promotions"`
	Content     string `json:"content"`
	SiteTexts   string `json:"site-texts"`
	Theme       string `json:"theme"`
}

// Client calls the backend functions over HTTP. All methods take a
// context; there is deliberately no client-side timeout, callers cancel
// through the context.
type Client struct {
	urls FuncURLs
	http *http.Client
}

// NewClient returns a Client over the given function URLs. A nil
// httpClient falls back to http.DefaultClient.
func NewClient(urls FuncURLs, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{urls: urls, http: httpClient}
}

// productsPageSize is the page size used when collecting the full
// catalog; the loop stops at the first short page.
const productsPageSize = 100

// FetchProducts collects the complete product list, paginating with
// limit/offset until a short page is returned.
func (c *Client) FetchProducts(ctx context.Context) ([]models.Product, error) {
	var all []models.Product
	for offset := 0; ; offset += productsPageSize {
		u := fmt.Sprintf("%s?limit=%d&offset=%d", c.urls.Products, productsPageSize, offset)
		var page []models.Product
		if err := c.getJSON(ctx, u, &page); err != nil {
			return nil, fmt.Errorf("fetch products page at offset %d: %w", offset, err)
		}
		all = append(all, page...)
		if len(page) < productsPageSize {
			return all, nil
		}
	}
}

// Product fetches a single product by id.
func (c *Client) Product(ctx context.Context, id int64) (models.Product, error) {
	var p models.Product
	err := c.getJSON(ctx, fmt.Sprintf("%s?id=%d", c.urls.Products, id), &p)
	return p, err
}

// CreateCart asks the backend for a cart tied to the given phone and
// session token, returning the server-issued cart id. The backend
// reuses the newest active cart for the phone when one exists.
func (c *Client) CreateCart(ctx context.Context, userPhone, sessionID string) (int64, error) {
	var out struct {
		CartID int64 `json:"cart_id"`
	}
	body := map[string]string{"user_phone": userPhone, "session_id": sessionID}
	if err := c.sendJSON(ctx, http.MethodPost, c.urls.SiteContent+"?action=cart", body, &out); err != nil {
		return 0, fmt.Errorf("create cart: %w", err)
	}
	return out.CartID, nil
}

// CartItems loads the line items and the server-computed grand total.
func (c *Client) CartItems(ctx context.Context, cartID int64) (models.CartItemsResponse, error) {
	var out models.CartItemsResponse
	u := fmt.Sprintf("%s?action=cart-items&cart_id=%d", c.urls.SiteContent, cartID)
	if err := c.getJSON(ctx, u, &out); err != nil {
		return models.CartItemsResponse{}, fmt.Errorf("load cart %d: %w", cartID, err)
	}
	return out, nil
}

// AddCartItem submits one line item. Name and price are denormalized
// snapshots of the product at add-time.
func (c *Client) AddCartItem(ctx context.Context, cartID, productID int64, name string, price float64, quantity int) error {
	body := map[string]interface{}{
		"cart_id":       cartID,
		"product_id":    productID,
		"product_name":  name,
		"product_price": price,
		"quantity":      quantity,
	}
	if err := c.sendJSON(ctx, http.MethodPost, c.urls.SiteContent+"?action=cart-item", body, nil); err != nil {
		return fmt.Errorf("add cart item: %w", err)
	}
	return nil
}

// RemoveCartItem deletes a line item by its id.
func (c *Client) RemoveCartItem(ctx context.Context, itemID int64) error {
	u := fmt.Sprintf("%s?action=cart-item-remove&item_id=%d", c.urls.SiteContent, itemID)
	if err := c.sendJSON(ctx, http.MethodDelete, u, nil, nil); err != nil {
		return fmt.Errorf("remove cart item %d: %w", itemID, err)
	}
	return nil
}

// CheckoutCart marks the cart as handed off to the bot.
func (c *Client) CheckoutCart(ctx context.Context, cartID int64, telegramUserID string) error {
	body := map[string]interface{}{"cart_id": cartID, "telegram_user_id": telegramUserID}
	return c.sendJSON(ctx, http.MethodPost, c.urls.SiteContent+"?action=cart-checkout", body, nil)
}

// ActivePromotions returns the promotions currently marked active. The
// active filter is applied client-side.
func (c *Client) ActivePromotions(ctx context.Context) ([]models.Promotion, error) {
	var all []models.Promotion
	if err := c.getJSON(ctx, c.urls.Promotions+"?action=promotions", &all); err != nil {
		return nil, fmt.Errorf("fetch promotions: %w", err)
	}
	active := all[:0]
	for _, p := range all {
		if p.IsActive {
			active = append(active, p)
		}
	}
	return active, nil
}

// PageContent returns all content blocks of one page.
func (c *Client) PageContent(ctx context.Context, pageName string) ([]models.ContentBlock, error) {
	var blocks []models.ContentBlock
	u := c.urls.Content + "?page=" + url.QueryEscape(pageName)
	if err := c.getJSON(ctx, u, &blocks); err != nil {
		return nil, fmt.Errorf("fetch content for page %q: %w", pageName, err)
	}
	return blocks, nil
}

// SiteTexts returns the flat site-wide text store.
func (c *Client) SiteTexts(ctx context.Context) (map[string]models.SiteText, error) {
	texts := map[string]models.SiteText{}
	if err := c.getJSON(ctx, c.urls.SiteTexts, &texts); err != nil {
		return nil, fmt.Errorf("fetch site texts: %w", err)
	}
	return texts, nil
}

// Theme returns the color scheme key-value map.
func (c *Client) Theme(ctx context.Context) (map[string]string, error) {
	theme := map[string]string{}
	if err := c.getJSON(ctx, c.urls.Theme, &theme); err != nil {
		return nil, fmt.Errorf("fetch theme: %w", err)
	}
	return theme, nil
}

// Notifications returns the admin notification feed, newest first.
func (c *Client) Notifications(ctx context.Context) ([]models.Notification, error) {
	var out struct {
		Notifications []models.Notification `json:"notifications"`
	}
	if err := c.getJSON(ctx, c.urls.SiteContent+"?action=notifications", &out); err != nil {
		return nil, fmt.Errorf("fetch notifications: %w", err)
	}
	return out.Notifications, nil
}

// MarkNotificationRead flags one notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id int64) error {
	body := map[string]int64{"id": id}
	return c.sendJSON(ctx, http.MethodPut, c.urls.SiteContent+"?action=notification-read", body, nil)
}

// TrackPageView records a page view for the analytics dashboard.
func (c *Client) TrackPageView(ctx context.Context, pageURL, referrer string) error {
	body := map[string]string{"page_url": pageURL, "referrer": referrer}
	return c.sendJSON(ctx, http.MethodPost, c.urls.SiteContent+"?action=analytics-track", body, nil)
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	return c.sendJSON(ctx, http.MethodGet, rawURL, nil, out)
}

func (c *Client) sendJSON(ctx context.Context, method, rawURL string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("unexpected status %s: %s", resp.Status, string(snippet))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ParseFuncURLs reads a func2url-style JSON document.
func ParseFuncURLs(data []byte) (FuncURLs, error) {
	var urls FuncURLs
	if err := json.Unmarshal(data, &urls); err != nil {
		return FuncURLs{}, fmt.Errorf("parse function URL map: %w", err)
	}
	return urls, nil
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
