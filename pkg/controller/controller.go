// Package controller provides the HTTP controllers of the notes service. Each controller
// registers its routes on a router group and releases its resources on shutdown.
package controller

import (
	"github.com/gin-gonic/gin"
)

// IController defines the interface that all controllers must implement.
type IController interface {
	// Bind registers the controller's routes with the provided router group.
	// It is called once, while the server builds its engine.
	Bind(group *gin.RouterGroup) error

	// Close releases any resources held by the controller. It runs as a server shutdown hook.
	Close() error
}

// detail is the error body shape used by every controller.
func detail(message string) gin.H {
	return gin.H{"detail": message}
}
