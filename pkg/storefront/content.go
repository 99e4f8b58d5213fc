package storefront

import (
	"context"
	"encoding/json"
	"log"

	"github.com/Zaharka0/tobacco-store-design/models"
)

// PageBinding resolves the block keys of one page to remote content or
// caller-supplied defaults. Only visible blocks bind; hidden ones fall
// through to the default like missing ones.
type PageBinding struct {
	page   string
	blocks map[string]models.ContentBlock
}

// LoadPage fetches the content blocks of a page. A fully unavailable
// content service degrades to an empty binding (every lookup returns
// its default) with a background log line, never an error to the user.
func (c *Client) LoadPage(ctx context.Context, pageName string) *PageBinding {
	pb := &PageBinding{page: pageName, blocks: make(map[string]models.ContentBlock)}
	blocks, err := c.PageContent(ctx, pageName)
	if err != nil {
		log.Printf("Error loading content for page %q, using defaults: %v", pageName, err)
		return pb
	}
	for _, b := range blocks {
		if b.IsVisible {
			pb.blocks[b.BlockKey] = b
		}
	}
	return pb
}

// Text resolves a block to its text value, or def when the block is
// missing, hidden, or not plain text.
func (pb *PageBinding) Text(key, def string) string {
	b, ok := pb.blocks[key]
	if !ok {
		return def
	}
	if s := b.Text(); s != "" {
		return s
	}
	return def
}

// JSON unmarshals a structured block into out, reporting whether the
// block was present and decodable.
func (pb *PageBinding) JSON(key string, out interface{}) bool {
	b, ok := pb.blocks[key]
	if !ok {
		return false
	}
	if err := json.Unmarshal(b.Content, out); err != nil {
		log.Printf("Error decoding content block %q on page %q: %v", key, pb.page, err)
		return false
	}
	return true
}

// Has reports whether a visible block exists for the key.
func (pb *PageBinding) Has(key string) bool {
	_, ok := pb.blocks[key]
	return ok
}

// TextBinding resolves site-wide text keys with fallbacks, mirroring
// PageBinding for the flat site_texts store.
type TextBinding struct {
	texts map[string]models.SiteText
}

// LoadSiteTexts fetches the site text store, degrading to defaults when
// the service is unavailable.
func (c *Client) LoadSiteTexts(ctx context.Context) *TextBinding {
	texts, err := c.SiteTexts(ctx)
	if err != nil {
		log.Printf("Error loading site texts, using defaults: %v", err)
		texts = map[string]models.SiteText{}
	}
	return &TextBinding{texts: texts}
}

// Text resolves a key to its stored value or the fallback.
func (tb *TextBinding) Text(key, fallback string) string {
	if t, ok := tb.texts[key]; ok && t.Value != "" {
		return t.Value
	}
	return fallback
}
