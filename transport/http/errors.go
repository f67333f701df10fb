package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/pqauth/core"
)

// respondError maps the error taxonomy onto HTTP. Authentication failures are
// deliberately uniform so callers cannot tell an unknown identity from a bad
// signature.
func respondError(c *gin.Context, err error) {
	switch core.KindOf(err) {
	case core.KindInputValidation:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case core.KindAuthentication:
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case core.KindStateConflict:
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "identity already registered"})
	default:
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
