// internal/adapters/rest/auth_handler.go
package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *handler) login(c *gin.Context) {
	var req loginRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	ok(c, http.StatusOK, "Login successful", res)
}

func (h *handler) logout(c *gin.Context) {
	if err := h.Auth.Logout(c.Request.Context(), currentClaims(c)); err != nil {
		h.abortWithError(c, err)
		return
	}
	ok(c, http.StatusOK, "Logout successful", nil)
}

func (h *handler) profile(c *gin.Context) {
	ok(c, http.StatusOK, "", currentUser(c))
}

// idParam parses a positive integer path parameter, answering 400 otherwise.
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}
