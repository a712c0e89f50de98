package settings

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("settings.service",
	fx.Provide(NewService),
	fx.Invoke(registerRoutes),
)

func registerRoutes(r *gin.Engine, svc *Service) {
	r.GET("/v1/settings", func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.Get())
	})

	r.PUT("/v1/settings", func(c *gin.Context) {
		var req AppSettings
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(err)
			return
		}

		snap, err := svc.Update(c.Request.Context(), req)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"settings": svc.Get(), "adnet": snap})
	})

	r.POST("/v1/consent", func(c *gin.Context) {
		var req struct {
			Granted bool `json:"granted"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(err)
			return
		}

		snap, err := svc.SetConsent(c.Request.Context(), req.Granted)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"consent": svc.Consent(), "adnet": snap})
	})
}
