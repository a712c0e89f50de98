package withdrawal

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("withdrawal.service",
	fx.Provide(NewService),
	fx.Invoke(registerRoutes),
)

func registerRoutes(r *gin.Engine, svc *Service) {
	r.POST("/v1/withdrawals", func(c *gin.Context) {
		var req CreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(err)
			return
		}

		w, err := svc.Create(c.Request.Context(), req)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusCreated, w)
	})

	r.GET("/v1/withdrawals", func(c *gin.Context) {
		var (
			requests []*Request
			err      error
		)
		if userID := c.Query("user_id"); userID != "" {
			requests, err = svc.ListByUser(c.Request.Context(), userID)
		} else {
			requests, err = svc.List(c.Request.Context())
		}
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": requests})
	})

	r.POST("/v1/withdrawals/:id/approve", func(c *gin.Context) {
		w, err := svc.Approve(c.Request.Context(), c.Param("id"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, w)
	})

	r.POST("/v1/withdrawals/:id/reject", func(c *gin.Context) {
		w, err := svc.Reject(c.Request.Context(), c.Param("id"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, w)
	})
}
