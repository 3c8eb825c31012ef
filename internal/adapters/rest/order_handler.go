// internal/adapters/rest/order_handler.go
package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/cart"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
)

const dateLayout = "2006-01-02"

type statusUpdate struct {
	Status domain.OrderStatus `json:"status" binding:"required,oneof=pending processing completed cancelled"`
}

// dateQuery parses an optional YYYY-MM-DD query parameter.
func dateQuery(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		fail(c, http.StatusBadRequest, name+" must be a date formatted as YYYY-MM-DD")
		return time.Time{}, false
	}
	return t, true
}

func (h *handler) listOrders(c *gin.Context) {
	var filter domain.OrderFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	from, valid := dateQuery(c, "from")
	if !valid {
		return
	}
	to, valid := dateQuery(c, "to")
	if !valid {
		return
	}
	if !from.IsZero() {
		filter.From = &from
	}
	if !to.IsZero() {
		end := to.AddDate(0, 0, 1)
		filter.To = &end
	}
	orders, page, err := h.Orders.List(c.Request.Context(), currentUser(c), filter)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	okPage(c, orders, page)
}

func (h *handler) createOrder(c *gin.Context) {
	var req cart.OrderRequest
	if !h.bind(c, &req) {
		return
	}
	order, err := h.Orders.Create(c.Request.Context(), currentUser(c), &req)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	ok(c, http.StatusCreated, "Order created successfully", order)
}

func (h *handler) getOrder(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	order, err := h.Orders.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	ok(c, http.StatusOK, "", order)
}

func (h *handler) updateOrderStatus(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	var req statusUpdate
	if !h.bind(c, &req) {
		return
	}
	order, err := h.Orders.UpdateStatus(c.Request.Context(), currentUser(c), id, req.Status)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	ok(c, http.StatusOK, "Order status updated successfully", order)
}

func (h *handler) orderStats(c *gin.Context) {
	stats, err := h.Orders.Stats(c.Request.Context(), currentUser(c))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	ok(c, http.StatusOK, "", stats)
}
