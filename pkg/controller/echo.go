package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Message is the body accepted and returned by the echo endpoint.
type Message struct {
	Message *string `json:"message" binding:"required"`
}

// NewEchoController answers POST /v1/test with the message it received.
func NewEchoController() IController {
	return &echo{}
}

type echo struct{}

func (e *echo) Bind(group *gin.RouterGroup) error {
	v1 := group.Group("/v1")
	v1.POST("/test", e.echo)
	v1.POST("/test/", e.echo)
	return nil
}

func (e *echo) echo(c *gin.Context) {
	var msg Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		log.Debug().Err(err).Msg("Rejected echo request")
		c.JSON(http.StatusUnprocessableEntity, detail(err.Error()))
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (e *echo) Close() error {
	return nil
}
