// internal/application/helpers_test.go
package application

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/juju/errors"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
)

var testNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

var (
	admin    = &domain.User{ID: 1, Name: "Admin User", Email: "admin@coffee.com", Role: domain.RoleAdmin, IsActive: true}
	cashier  = &domain.User{ID: 2, Name: "Cashier One", Email: "cashier1@coffee.com", Role: domain.RoleCashier, IsActive: true}
	cashier2 = &domain.User{ID: 3, Name: "Cashier Two", Email: "cashier2@coffee.com", Role: domain.RoleCashier, IsActive: true}
)

type mockCache struct {
	get    func(ctx context.Context, key string) ([]byte, error)
	set    func(ctx context.Context, key string, value interface{}) error
	setTTL func(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	del    func(ctx context.Context, key string) error
	delete func(ctx context.Context, prefix string) error
	ping   func(ctx context.Context) error
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	return m.get(ctx, key)
}

func (m *mockCache) Set(ctx context.Context, key string, value interface{}) error {
	return m.set(ctx, key, value)
}

func (m *mockCache) SetTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return m.setTTL(ctx, key, value, ttl)
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	return m.del(ctx, key)
}

func (m *mockCache) DeleteByPrefix(ctx context.Context, prefix string) error {
	return m.delete(ctx, prefix)
}

func (m *mockCache) Ping(ctx context.Context) error {
	return m.ping(ctx)
}

// memCache is a map backed cache with the same miss semantics as redis.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	if !ok {
		return nil, errors.NotFoundf("cache key %s", key)
	}
	return b, nil
}

func (m *memCache) Set(ctx context.Context, key string, value interface{}) error {
	return m.SetTTL(ctx, key, value, 0)
}

func (m *memCache) SetTTL(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = b
	m.ttls[key] = ttl
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memCache) DeleteByPrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
		}
	}
	return nil
}

func (m *memCache) Ping(context.Context) error { return nil }

func (m *memCache) raw(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	return string(b), ok
}

func (m *memCache) put(key, raw string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = []byte(raw)
}

// recordingObserver counts what services report.
type recordingObserver struct {
	mu       sync.Mutex
	orders   int
	revenue  float64
	active   int
	expired  int
	warnings []time.Duration
}

func (o *recordingObserver) OrderCreated(_ string, total float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.orders++
	o.revenue += total
}

func (o *recordingObserver) SetActiveShifts(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active = n
}

func (o *recordingObserver) ShiftExpired() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.expired++
}

func (o *recordingObserver) ShiftWarning(remaining time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.warnings = append(o.warnings, remaining)
}

func (o *recordingObserver) expiredCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.expired
}

func boolPtr(b bool) *bool               { return &b }
func strPtr(s string) *string            { return &s }
func rolePtr(r domain.Role) *domain.Role { return &r }
