// internal/adapters/rest/router.go
package rest

import (
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/juju/clock"
	"github.com/juju/loggo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/application"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
)

var logger = loggo.GetLogger("pos.rest")

// APIVersion is reported by the API index.
const APIVersion = "1.0.0"

// RequestObserver records served requests. metrics.Collector implements it.
type RequestObserver interface {
	ObserveRequest(method, route string, code int, took time.Duration)
}

type Services struct {
	Auth    *application.AuthService
	Users   *application.UserService
	Menu    *application.MenuService
	Orders  *application.OrderService
	Shifts  *application.ShiftService
	Payment *application.PaymentService
	Reports *application.ReportService
}

type Config struct {
	Env               string
	CORSOrigins       []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	Metrics           RequestObserver

	// Gatherer serves /metrics when set.
	Gatherer prometheus.Gatherer
	Clock    clock.Clock
}

type handler struct {
	Services
	env        string
	production bool
	clock      clock.Clock
}

var registerTagNames sync.Once

// jsonFieldNames makes validation errors name fields as clients send them.
func jsonFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
}

// NewRouter builds the HTTP API.
func NewRouter(svc Services, cfg Config) *gin.Engine {
	jsonFieldNames()
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	h := &handler{
		Services:   svc,
		env:        cfg.Env,
		production: cfg.Env == "production",
		clock:      cfg.Clock,
	}

	r := gin.New()
	r.Use(requestID(), requestLogger(cfg.Metrics), gin.CustomRecovery(h.recovered), corsMiddleware(cfg.CORSOrigins))

	r.GET("/health", h.health)
	if cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api", rateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
	api.GET("", h.index)

	authn := h.authenticate(false)
	adminOnly := requireRole(domain.RoleAdmin)

	a := api.Group("/auth")
	a.POST("/login", h.login)
	a.POST("/logout", authn, h.logout)
	a.GET("/profile", authn, h.profile)

	u := api.Group("/users", authn, adminOnly)
	u.GET("", h.listUsers)
	u.POST("", h.createUser)
	u.GET("/:id", h.getUser)
	u.PUT("/:id", h.updateUser)
	u.DELETE("/:id", h.deleteUser)
	u.PATCH("/:id/toggle-status", h.toggleUserStatus)

	m := api.Group("/menu", authn)
	m.GET("", h.listMenu)
	m.GET("/categories", h.menuCategories)
	m.GET("/low-stock", adminOnly, h.lowStock)
	m.GET("/:id", h.getMenuItem)
	m.POST("", adminOnly, h.createMenuItem)
	m.PUT("/:id", adminOnly, h.updateMenuItem)
	m.DELETE("/:id", adminOnly, h.deleteMenuItem)
	m.PATCH("/:id/stock", adminOnly, h.updateStock)

	o := api.Group("/orders", authn)
	o.GET("", h.listOrders)
	o.POST("", h.createOrder)
	o.GET("/stats", h.orderStats)
	o.GET("/:id", h.getOrder)
	o.PATCH("/:id/status", h.updateOrderStatus)

	api.GET("/shifts/ws", h.authenticate(true), h.shiftSocket)
	s := api.Group("/shifts", authn)
	s.GET("", h.listShifts)
	s.GET("/current", h.currentShift)
	s.POST("/current", h.clockIn)
	s.POST("/clock-out", h.clockOut)
	s.GET("/stats", adminOnly, h.shiftStats)

	p := api.Group("/payment")
	p.POST("/notification", h.paymentNotification)
	p.POST("/create", authn, h.createPayment)
	p.GET("/status/:orderId", authn, h.paymentStatus)

	rep := api.Group("/reports", authn)
	rep.GET("/dashboard", h.dashboard)
	rep.GET("/sales", adminOnly, h.salesReport)

	r.NoRoute(h.notFound)
	return r
}

func (h *handler) recovered(c *gin.Context, err interface{}) {
	logger.Errorf("panic serving %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	fail(c, http.StatusInternalServerError, "Internal server error")
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Coffee Shop API is running!",
		"timestamp":   h.clock.Now().UTC().Format(time.RFC3339),
		"environment": h.env,
	})
}

func (h *handler) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Coffee Shop API",
		"version": APIVersion,
		"endpoints": gin.H{
			"auth":    "/api/auth",
			"users":   "/api/users",
			"menu":    "/api/menu",
			"orders":  "/api/orders",
			"shifts":  "/api/shifts",
			"payment": "/api/payment",
			"reports": "/api/reports",
			"health":  "/health",
			"metrics": "/metrics",
		},
		"documentation": "See README for the full endpoint reference",
	})
}

func (h *handler) notFound(c *gin.Context) {
	if !strings.HasPrefix(c.Request.URL.Path, "/api") {
		fail(c, http.StatusNotFound, "Route not found")
		return
	}
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
		"success": false,
		"message": "API endpoint not found",
		"path":    c.Request.URL.Path,
	})
}
