// internal/adapters/rest/payment_handler.go
package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/application"
)

type paymentCreate struct {
	OrderID int64 `json:"orderId" binding:"required,gt=0"`
}

func (h *handler) createPayment(c *gin.Context) {
	var req paymentCreate
	if !h.bind(c, &req) {
		return
	}
	payment, err := h.Payment.Create(c.Request.Context(), currentUser(c), req.OrderID)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	ok(c, http.StatusCreated, "Payment created", payment)
}

// paymentNotification is the gateway callback; it is authenticated by the
// signature inside the body rather than a bearer token.
func (h *handler) paymentNotification(c *gin.Context) {
	var n application.PaymentNotification
	if !h.bind(c, &n) {
		return
	}
	order, err := h.Payment.Notify(c.Request.Context(), n)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	ok(c, http.StatusOK, "Notification processed", gin.H{"orderId": order.ID, "status": order.Status})
}

func (h *handler) paymentStatus(c *gin.Context) {
	id, valid := idParam(c, "orderId")
	if !valid {
		return
	}
	status, err := h.Payment.Status(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	ok(c, http.StatusOK, "", status)
}
