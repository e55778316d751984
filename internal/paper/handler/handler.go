package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paperbuilder/paper-builder/backend/go-services/internal/paper/service"
	"github.com/paperbuilder/paper-builder/backend/go-services/internal/paper/store"
	"github.com/paperbuilder/paper-builder/backend/go-services/internal/paper/validation"
)

// RegisterPaperRoutes wires the paper API onto r.
func RegisterPaperRoutes(r *gin.Engine, svc service.Service) {
	g := r.Group("/api/papers")

	g.GET("", func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.List())
	})

	g.GET("/summary", func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.Summaries())
	})

	g.POST("", func(c *gin.Context) {
		input, ok := bindInput(c)
		if !ok {
			return
		}
		p, err := svc.CreatePaper(input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, p)
	})

	g.GET("/current", func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.Current())
	})

	g.PUT("/current", func(c *gin.Context) {
		var req struct {
			ID *string `json:"id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.ID == nil {
			svc.ClearSelection()
			c.JSON(http.StatusOK, nil)
			return
		}
		p, err := svc.SelectPaper(*req.ID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	})

	g.GET("/events", func(c *gin.Context) {
		streamChanges(c, svc)
	})

	g.GET("/:id", func(c *gin.Context) {
		p, err := svc.Get(c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	})

	g.PATCH("/:id", func(c *gin.Context) {
		input, ok := bindInput(c)
		if !ok {
			return
		}
		p, err := svc.UpdatePaper(c.Param("id"), input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	})

	g.DELETE("/:id", func(c *gin.Context) {
		if err := svc.DeletePaper(c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	g.POST("/:id/sections", func(c *gin.Context) {
		input, ok := bindInput(c)
		if !ok {
			return
		}
		sec, err := svc.AddSection(c.Param("id"), input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, sec)
	})

	g.GET("/:id/sections/:sectionId", func(c *gin.Context) {
		sec, err := svc.GetSection(c.Param("id"), c.Param("sectionId"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, sec)
	})

	g.DELETE("/:id/sections/:sectionId", func(c *gin.Context) {
		if err := svc.RemoveSection(c.Param("id"), c.Param("sectionId")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func bindInput(c *gin.Context) (map[string]any, bool) {
	var input map[string]any
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	if input == nil {
		input = map[string]any{}
	}
	return input, true
}

func writeError(c *gin.Context, err error) {
	if fe, ok := validation.AsFieldErrors(err); ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": fe})
		return
	}
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// streamChanges sends one "change" server-sent event per store mutation
// until the client goes away. Slow clients miss events rather than
// blocking writers.
func streamChanges(c *gin.Context, svc service.Service) {
	changes := make(chan store.Change, 32)
	unsubscribe := svc.Subscribe(func(ch store.Change, _ store.State) {
		select {
		case changes <- ch:
		default:
		}
	})
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ch := <-changes:
			c.SSEvent("change", ch)
			c.Writer.Flush()
		}
	}
}
