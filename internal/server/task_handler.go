package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"tasktracker/internal/task"
	"tasktracker/internal/taskdb"

	"github.com/gin-gonic/gin"
)

// TaskHandler is the managed-table surface: owner-scoped select,
// insert, update-by-id and purge, plus the SSE change feed devices
// subscribe to for push-driven fetches.
type TaskHandler struct {
	repo *taskdb.Repo
	hub  *Hub
}

func NewTaskHandler(repo *taskdb.Repo, hub *Hub) *TaskHandler {
	return &TaskHandler{repo: repo, hub: hub}
}

func (h *TaskHandler) List(c *gin.Context) {
	tasks, err := h.repo.ListByOwner(UserIDFromContext(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (h *TaskHandler) Insert(c *gin.Context) {
	owner := UserIDFromContext(c)
	var t task.Task
	if err := c.ShouldBindJSON(&t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}
	if err := validateRow(t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.repo.Insert(owner, t); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.hub.Notify(owner)
	c.JSON(http.StatusOK, t)
}

func (h *TaskHandler) Update(c *gin.Context) {
	owner := UserIDFromContext(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}
	var t task.Task
	if err := c.ShouldBindJSON(&t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}
	t.ID = id
	if err := validateRow(t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.repo.Update(owner, t); err != nil {
		if errors.Is(err, taskdb.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.hub.Notify(owner)
	c.JSON(http.StatusOK, t)
}

func (h *TaskHandler) Purge(c *gin.Context) {
	owner := UserIDFromContext(c)
	n, err := h.repo.PurgeDeleted(owner)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if n > 0 {
		h.hub.Notify(owner)
	}
	c.JSON(http.StatusOK, gin.H{"purged": n})
}

// Events streams one SSE event per change to the owner's rows until
// the client goes away.
func (h *TaskHandler) Events(c *gin.Context) {
	owner := UserIDFromContext(c)
	ch, cancel := h.hub.Subscribe(owner)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-store")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case <-ch:
			c.SSEvent("change", "1")
			return true
		}
	})
}

func validateRow(t task.Task) error {
	if t.ID <= 0 {
		return errors.New("id is required")
	}
	if strings.TrimSpace(t.Text) == "" {
		return errors.New("text is required")
	}
	if strings.TrimSpace(t.AddedBy) == "" {
		return errors.New("addedBy is required")
	}
	if !t.Type.Valid() {
		return errors.New("unknown task type")
	}
	if t.LastModified <= 0 {
		return errors.New("lastModified is required")
	}
	return nil
}
