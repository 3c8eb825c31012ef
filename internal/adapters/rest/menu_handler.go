// internal/adapters/rest/menu_handler.go
package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/application"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
)

func (h *handler) listMenu(c *gin.Context) {
	var filter domain.MenuFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	// the register only offers what can be sold
	if !currentUser(c).IsAdmin() {
		filter.AvailableOnly = true
	}
	items, page, err := h.Menu.List(c.Request.Context(), filter)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	okPage(c, items, page)
}

func (h *handler) menuCategories(c *gin.Context) {
	cats, err := h.Menu.Categories(c.Request.Context())
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	ok(c, http.StatusOK, "", cats)
}

func (h *handler) lowStock(c *gin.Context) {
	items, err := h.Menu.LowStock(c.Request.Context())
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	if items == nil {
		items = []*domain.MenuItem{}
	}
	ok(c, http.StatusOK, "", items)
}

func (h *handler) getMenuItem(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	item, err := h.Menu.Get(c.Request.Context(), id)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	ok(c, http.StatusOK, "", item)
}

func (h *handler) createMenuItem(c *gin.Context) {
	var in application.MenuItemInput
	if !h.bind(c, &in) {
		return
	}
	item, err := h.Menu.Create(c.Request.Context(), in)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	ok(c, http.StatusCreated, "Menu item created successfully", item)
}

func (h *handler) updateMenuItem(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	var in application.MenuItemUpdate
	if !h.bind(c, &in) {
		return
	}
	item, err := h.Menu.Update(c.Request.Context(), id, in)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	ok(c, http.StatusOK, "Menu item updated successfully", item)
}

func (h *handler) deleteMenuItem(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	hidden, err := h.Menu.Delete(c.Request.Context(), id)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	if hidden {
		ok(c, http.StatusOK, "Menu item appears on past orders and was marked unavailable", gin.H{"hidden": true})
		return
	}
	ok(c, http.StatusOK, "Menu item deleted successfully", nil)
}

func (h *handler) updateStock(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	var in application.StockUpdate
	if !h.bind(c, &in) {
		return
	}
	item, err := h.Menu.UpdateStock(c.Request.Context(), id, in.Operation, in.Quantity)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	ok(c, http.StatusOK, "Stock updated successfully", item)
}
