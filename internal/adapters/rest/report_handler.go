// internal/adapters/rest/report_handler.go
package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *handler) dashboard(c *gin.Context) {
	d, err := h.Reports.Dashboard(c.Request.Context(), currentUser(c))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	ok(c, http.StatusOK, "", d)
}

func (h *handler) salesReport(c *gin.Context) {
	from, valid := dateQuery(c, "from")
	if !valid {
		return
	}
	to, valid := dateQuery(c, "to")
	if !valid {
		return
	}
	sales, err := h.Reports.Sales(c.Request.Context(), from, to)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	ok(c, http.StatusOK, "", sales)
}
