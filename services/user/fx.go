package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("user.service",
	fx.Provide(NewService),
	fx.Invoke(registerRoutes),
)

func registerRoutes(r *gin.Engine, svc *Service) {
	r.POST("/v1/auth/login", func(c *gin.Context) {
		var req struct {
			Email string `json:"email" binding:"required"`
			Role  Role   `json:"role" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(err)
			return
		}

		u, err := svc.Login(c.Request.Context(), req.Email, req.Role)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, u)
	})

	r.GET("/v1/users", func(c *gin.Context) {
		users, err := svc.List(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": users})
	})

	r.POST("/v1/users/:id/ban", func(c *gin.Context) {
		var req struct {
			Banned bool `json:"banned"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(err)
			return
		}

		if err := svc.SetBanned(c.Request.Context(), c.Param("id"), req.Banned); err != nil {
			_ = c.Error(err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}
