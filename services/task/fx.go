package task

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("task.service",
	fx.Provide(NewService),
	fx.Invoke(registerRoutes),
)

func registerRoutes(r *gin.Engine, svc *Service) {
	r.POST("/v1/tasks", func(c *gin.Context) {
		var req UpsertTask
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(err)
			return
		}

		t, err := svc.CreateTask(c.Request.Context(), req)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusCreated, t)
	})

	r.GET("/v1/tasks", func(c *gin.Context) {
		tasks, err := svc.ListTasks(c.Request.Context(), c.Query("active") == "true")
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": tasks})
	})

	r.GET("/v1/tasks/:id", func(c *gin.Context) {
		t, err := svc.GetTask(c.Request.Context(), c.Param("id"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, t)
	})

	r.PUT("/v1/tasks/:id", func(c *gin.Context) {
		var req UpsertTask
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(err)
			return
		}

		t, err := svc.UpdateTask(c.Request.Context(), c.Param("id"), req)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, t)
	})

	r.DELETE("/v1/tasks/:id", func(c *gin.Context) {
		if err := svc.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
			_ = c.Error(err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	r.POST("/v1/tasks/:id/start", func(c *gin.Context) {
		var req struct {
			UserID string `json:"user_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(err)
			return
		}

		attempt, err := svc.Start(c.Request.Context(), req.UserID, c.Param("id"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusCreated, attempt)
	})

	r.POST("/v1/attempts/:id/visibility", func(c *gin.Context) {
		var req struct {
			Visible *bool `json:"visible" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(err)
			return
		}

		if err := svc.SetVisibility(c.Param("id"), *req.Visible); err != nil {
			_ = c.Error(err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	r.POST("/v1/attempts/:id/complete", func(c *gin.Context) {
		entry, err := svc.Complete(c.Request.Context(), c.Param("id"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"entry": entry})
	})

	r.POST("/v1/attempts/:id/abandon", func(c *gin.Context) {
		if err := svc.Abandon(c.Param("id")); err != nil {
			_ = c.Error(err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}
