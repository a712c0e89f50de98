package ledger

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(NewService),
	fx.Invoke(registerRoutes),
)

func registerRoutes(r *gin.Engine, svc *Service) {
	r.GET("/v1/users/:id/balance", func(c *gin.Context) {
		account, err := svc.Balance(c.Request.Context(), c.Param("id"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, account)
	})

	r.GET("/v1/users/:id/transactions", func(c *gin.Context) {
		entries, err := svc.Entries(c.Request.Context(), c.Param("id"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": entries})
	})

	r.GET("/v1/users/:id/transactions/verify", func(c *gin.Context) {
		valid, err := svc.VerifyChain(c.Request.Context(), c.Param("id"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"valid": valid})
	})
}
