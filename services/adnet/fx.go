package adnet

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("adnet.service",
	fx.Provide(
		NewOrchestrator,
		NewSelector,
		fx.Annotate(NewSimulatedSurface, fx.As(new(RewardedSurface))),
	),
	fx.Invoke(registerRoutes),
)

func registerRoutes(r *gin.Engine, o *Orchestrator) {
	r.GET("/v1/adnet/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, o.Snapshot())
	})
}
