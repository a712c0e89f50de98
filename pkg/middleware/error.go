package middleware

import (
	"errors"
	"net/http"

	"earneasy-rewardplane/pkg/errutil"

	"github.com/gin-gonic/gin"
)

// Error renders the last handler error. Domain errors carry a CoreStatus and
// map onto their HTTP equivalent; anything else is an internal error.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		var be errutil.BaseError
		if errors.As(last.Err, &be) {
			c.JSON(be.Code.HTTPStatus(), be.JSON())
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    errutil.StatusInternal,
				"message": last.Error(),
			},
		})
	}
}
