// internal/adapters/rest/response.go
package rest

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/juju/errors"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
)

// ok writes {"success":true,"data":data} plus an optional message.
func ok(c *gin.Context, status int, message string, data interface{}) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

func okPage(c *gin.Context, data interface{}, page domain.Pagination) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data, "pagination": page})
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// statusOf maps an application error to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errors.NotValid), errors.Is(err, errors.BadRequest), errors.Is(err, errors.AlreadyExists):
		return http.StatusBadRequest
	case errors.Is(err, errors.Unauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errors.Forbidden):
		return http.StatusForbidden
	case errors.Is(err, errors.NotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// abortWithError writes the error envelope for err. Unexpected errors are
// logged with their trace and only expose it outside production.
func (h *handler) abortWithError(c *gin.Context, err error) {
	status := statusOf(err)
	if status != http.StatusInternalServerError {
		fail(c, status, err.Error())
		return
	}
	logger.Errorf("%s %s: %s", c.Request.Method, c.FullPath(), errors.ErrorStack(err))
	body := gin.H{"success": false, "message": "Internal server error"}
	if !h.production {
		body["message"] = err.Error()
		body["stack"] = errors.ErrorStack(err)
	}
	c.AbortWithStatusJSON(status, body)
}

// bind decodes the JSON body into dst, answering 400 on failure.
func (h *handler) bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		validationError(c, err)
		return false
	}
	return true
}

func (h *handler) bindQuery(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		validationError(c, err)
		return false
	}
	return true
}

func validationError(c *gin.Context, err error) {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Validation Error",
			"errors":  []string{"Invalid request body"},
		})
		return
	}
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		msgs = append(msgs, fieldMessage(fe))
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": "Validation Error",
		"errors":  msgs,
	})
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s cannot be less than %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return fmt.Sprintf("%s is invalid", field)
}
