package controller

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/animalet/notes-api/pkg/notes"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// NoteStore is the persistence the notes controller relies on. *notes.Store implements it.
type NoteStore interface {
	Create(ctx context.Context, in notes.NoteCreate) (notes.Note, error)
	Get(ctx context.Context, id string) (notes.Note, error)
	List(ctx context.Context, limit int) ([]notes.Note, error)
	Update(ctx context.Context, id string, u notes.NoteUpdate) (notes.Note, error)
	Delete(ctx context.Context, id string) error
	ByTag(ctx context.Context, tag string) ([]notes.Note, error)
	Ping(ctx context.Context) (int, error)
}

// NewNotesController serves notes CRUD under /v1/notes.
func NewNotesController(store NoteStore) IController {
	return &notesController{store: store}
}

type notesController struct {
	store NoteStore
}

func (n *notesController) Bind(group *gin.RouterGroup) error {
	if n.store == nil {
		return errors.New("notes controller requires a store")
	}

	routes := group.Group("/v1/notes")
	routes.GET("", n.list)
	routes.GET("/", n.list)
	routes.POST("", n.create)
	routes.POST("/", n.create)
	routes.GET("/health/check", n.healthCheck)
	routes.GET("/tags/:tag", n.byTag)
	routes.GET("/:id", n.get)
	routes.PUT("/:id", n.update)
	routes.DELETE("/:id", n.delete)

	log.Info().Str("path", routes.BasePath()).Msg("Notes routes bound")
	return nil
}

func (n *notesController) Close() error {
	return nil
}

func (n *notesController) list(c *gin.Context) {
	limit := notes.DefaultListLimit
	if raw, ok := c.GetQuery("limit"); ok {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > notes.MaxListLimit {
			c.JSON(http.StatusUnprocessableEntity, detail(fmt.Sprintf("limit must be an integer between 1 and %d", notes.MaxListLimit)))
			return
		}
		limit = parsed
	}

	list, err := n.store.List(c.Request.Context(), limit)
	if err != nil {
		n.fail(c, err, "Failed to list notes")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (n *notesController) create(c *gin.Context) {
	var in notes.NoteCreate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusUnprocessableEntity, detail(err.Error()))
		return
	}
	if err := in.Validate(); err != nil {
		c.JSON(http.StatusUnprocessableEntity, detail(err.Error()))
		return
	}

	note, err := n.store.Create(c.Request.Context(), in)
	if err != nil {
		n.fail(c, err, "Failed to create note")
		return
	}
	c.JSON(http.StatusCreated, note)
}

func (n *notesController) get(c *gin.Context) {
	id := c.Param("id")
	note, err := n.store.Get(c.Request.Context(), id)
	if err != nil {
		n.fail(c, err, "Failed to get note")
		return
	}
	c.JSON(http.StatusOK, note)
}

func (n *notesController) update(c *gin.Context) {
	id := c.Param("id")
	var u notes.NoteUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		c.JSON(http.StatusUnprocessableEntity, detail(err.Error()))
		return
	}
	if err := u.Validate(); err != nil {
		c.JSON(http.StatusUnprocessableEntity, detail(err.Error()))
		return
	}

	note, err := n.store.Update(c.Request.Context(), id, u)
	if err != nil {
		n.fail(c, err, "Failed to update note")
		return
	}
	c.JSON(http.StatusOK, note)
}

func (n *notesController) delete(c *gin.Context) {
	id := c.Param("id")
	if err := n.store.Delete(c.Request.Context(), id); err != nil {
		n.fail(c, err, "Failed to delete note")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Note '%s' deleted successfully", id)})
}

func (n *notesController) byTag(c *gin.Context) {
	list, err := n.store.ByTag(c.Request.Context(), c.Param("tag"))
	if err != nil {
		n.fail(c, err, "Failed to list notes by tag")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (n *notesController) healthCheck(c *gin.Context) {
	count, err := n.store.Ping(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("DynamoDB health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"message": "DynamoDB connection failed",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"message":     "DynamoDB connection is working",
		"notes_count": count,
	})
}

// fail maps store errors to responses: 404 for absent notes, 422 for invalid input, 500 otherwise.
func (n *notesController) fail(c *gin.Context, err error, message string) {
	var validation *notes.ValidationError
	switch {
	case errors.Is(err, notes.ErrNoteNotFound):
		c.JSON(http.StatusNotFound, detail(fmt.Sprintf("Note with ID '%s' not found", c.Param("id"))))
	case errors.As(err, &validation):
		c.JSON(http.StatusUnprocessableEntity, detail(validation.Error()))
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg(message)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, detail(fmt.Sprintf("%s: %v", message, err)))
	}
}
