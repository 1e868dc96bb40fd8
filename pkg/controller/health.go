package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewHealthController reports liveness at GET /health.
func NewHealthController() IController {
	return &health{}
}

type health struct{}

func (h *health) Bind(group *gin.RouterGroup) error {
	group.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return nil
}

func (h *health) Close() error {
	return nil
}
