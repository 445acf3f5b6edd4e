package server

import (
	"errors"
	"net/http"

	"kiwoom-dashboard/src/helpers"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// Response shaping: {success, message?, data?}
// -----------------------------------------------------------------------------

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func respondMessage(c *gin.Context, status int, success bool, message string) {
	c.JSON(status, gin.H{"success": success, "message": message})
}

// -----------------------------------------------------------------------------

// respondError maps the error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var (
		auth      *helpers.AuthError
		val       *helpers.ValidationError
		up        *helpers.UpstreamError
		transport *helpers.TransportError
	)

	switch {
	case errors.As(err, &auth):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"success":       false,
			"authenticated": false,
			"message":       auth.Message,
		})
	case errors.As(err, &val):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": val.Message,
			"field":   val.Field,
		})
	case errors.As(err, &up):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"success":    false,
			"message":    up.Message,
			"error_code": up.Code,
		})
	case errors.As(err, &transport):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
			"success": false,
			"message": transport.Message,
		})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": err.Error(),
		})
	}
}
