// internal/adapters/rest/user_handler.go
package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/application"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
)

func (h *handler) listUsers(c *gin.Context) {
	var filter domain.UserFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	if filter.Role != "" && !filter.Role.Valid() {
		fail(c, http.StatusBadRequest, "Role must be admin or cashier")
		return
	}
	users, page, err := h.Users.List(c.Request.Context(), filter)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	okPage(c, users, page)
}

func (h *handler) getUser(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	user, err := h.Users.Get(c.Request.Context(), id)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	ok(c, http.StatusOK, "", user)
}

func (h *handler) createUser(c *gin.Context) {
	var in application.CreateUserInput
	if !h.bind(c, &in) {
		return
	}
	user, err := h.Users.Create(c.Request.Context(), in)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	ok(c, http.StatusCreated, "User created successfully", user)
}

func (h *handler) updateUser(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	var in application.UpdateUserInput
	if !h.bind(c, &in) {
		return
	}
	user, err := h.Users.Update(c.Request.Context(), currentUser(c), id, in)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	ok(c, http.StatusOK, "User updated successfully", user)
}

func (h *handler) deleteUser(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	deactivated, err := h.Users.Delete(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	if deactivated {
		ok(c, http.StatusOK, "User has order history and was deactivated instead", gin.H{"deactivated": true})
		return
	}
	ok(c, http.StatusOK, "User deleted successfully", nil)
}

func (h *handler) toggleUserStatus(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	user, err := h.Users.ToggleStatus(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	msg := "User deactivated successfully"
	if user.IsActive {
		msg = "User activated successfully"
	}
	ok(c, http.StatusOK, msg, user)
}
