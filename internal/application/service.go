// internal/application/service.go
package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/ports"
)

var logger = loggo.GetLogger("pos.application")

// Observer receives business measurements. metrics.Collector implements it.
type Observer interface {
	OrderCreated(paymentMethod string, total float64)
	SetActiveShifts(n int)
	ShiftExpired()
	ShiftWarning(remaining time.Duration)
}

type nopObserver struct{}

func (nopObserver) OrderCreated(string, float64) {}
func (nopObserver) SetActiveShifts(int)          {}
func (nopObserver) ShiftExpired()                {}
func (nopObserver) ShiftWarning(time.Duration)   {}

func observerOrNop(o Observer) Observer {
	if o == nil {
		return nopObserver{}
	}
	return o
}

var errAccessDenied = errors.NewForbidden(nil, "Access denied")

func requireAdmin(viewer *domain.User) error {
	if viewer == nil {
		return errors.NewUnauthorized(nil, "Not authenticated")
	}
	if !viewer.IsAdmin() {
		return errAccessDenied
	}
	return nil
}

// cacheGet decodes key into dst. Misses, cache failures and malformed
// entries all report false; a malformed entry is removed.
func cacheGet(ctx context.Context, cache ports.CachePort, key string, dst interface{}) bool {
	if cache == nil {
		return false
	}
	data, err := cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, errors.NotFound) {
			logger.Warningf("cache get %s: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		logger.Warningf("dropping malformed cache entry %s: %v", key, err)
		if err := cache.Delete(ctx, key); err != nil {
			logger.Warningf("cache delete %s: %v", key, err)
		}
		return false
	}
	return true
}

func cacheSet(ctx context.Context, cache ports.CachePort, key string, value interface{}, ttl time.Duration) {
	if cache == nil {
		return
	}
	var err error
	if ttl > 0 {
		err = cache.SetTTL(ctx, key, value, ttl)
	} else {
		err = cache.Set(ctx, key, value)
	}
	if err != nil {
		logger.Warningf("cache set %s: %v", key, err)
	}
}

func cacheDelete(ctx context.Context, cache ports.CachePort, key string) {
	if cache == nil {
		return
	}
	if err := cache.Delete(ctx, key); err != nil {
		logger.Warningf("cache delete %s: %v", key, err)
	}
}

func cacheInvalidate(ctx context.Context, cache ports.CachePort, prefix string) {
	if cache == nil {
		return
	}
	if err := cache.DeleteByPrefix(ctx, prefix); err != nil {
		logger.Warningf("cache invalidate %s*: %v", prefix, err)
	}
}

// publish sends an event; a broker failure is logged, never returned.
func publish(ctx context.Context, events ports.EventPublisher, typ string, at time.Time, payload interface{}) {
	if events == nil {
		return
	}
	if err := events.Publish(ctx, ports.Event{Type: typ, OccurredAt: at, Payload: payload}); err != nil {
		logger.Warningf("publishing %s: %v", typ, err)
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
