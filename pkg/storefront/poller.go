package storefront

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/Zaharka0/tobacco-store-design/models"
)

const (
	notificationsInterval = 30 * time.Second
	onlineInterval        = 8 * time.Second
)

// WatchNotifications polls the admin notification feed and invokes fn
// with each successfully loaded batch, once immediately and then every
// interval (30s when interval <= 0). Poll failures are logged and the
// loop keeps going; cancelling ctx tears the poller down.
func (c *Client) WatchNotifications(ctx context.Context, interval time.Duration, fn func([]models.Notification)) {
	if interval <= 0 {
		interval = notificationsInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			notifs, err := c.Notifications(ctx)
			if err != nil {
				log.Printf("Error polling notifications: %v", err)
			} else {
				fn(notifs)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// OnlineCounter simulates the "users online" widget: a base of 15 plus
// a random 0..9, refreshed every 8 seconds until its context is
// cancelled.
type OnlineCounter struct {
	mu    sync.Mutex
	count int
}

// StartOnlineCounter seeds the counter and starts the refresh loop.
func StartOnlineCounter(ctx context.Context) *OnlineCounter {
	o := &OnlineCounter{}
	o.refresh()
	go func() {
		ticker := time.NewTicker(onlineInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				o.refresh()
			}
		}
	}()
	return o
}

func (o *OnlineCounter) refresh() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.count = 15 + rand.Intn(10)
}

// Count returns the current simulated online-user count.
func (o *OnlineCounter) Count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.count
}
