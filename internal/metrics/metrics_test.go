// internal/metrics/metrics_test.go
package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector(t *testing.T) {
	c := NewCollector()
	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	c.ObserveRequest("GET", "/api/menu", 200, 20*time.Millisecond)
	c.ObserveRequest("GET", "/api/menu", 200, 30*time.Millisecond)
	c.OrderCreated("cash", 9)
	c.OrderCreated("card", 4.5)
	c.SetActiveShifts(3)
	c.ShiftExpired()
	c.ShiftWarning(15 * time.Minute)

	if got := testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/api/menu", "200")); got != 2 {
		t.Errorf("http requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.ordersCreated.WithLabelValues("cash")); got != 1 {
		t.Errorf("cash orders = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.orderRevenue); got != 13.5 {
		t.Errorf("revenue = %v, want 13.5", got)
	}
	if got := testutil.ToFloat64(c.activeShifts); got != 3 {
		t.Errorf("active shifts = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.shiftWarnings.WithLabelValues("15")); got != 1 {
		t.Errorf("15 minute warnings = %v, want 1", got)
	}
	if n, err := testutil.GatherAndCount(reg); err != nil || n == 0 {
		t.Errorf("GatherAndCount() = %d, %v", n, err)
	}
}
