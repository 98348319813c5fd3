package server

import (
	"errors"
	"net/http"
	"strings"

	"tasktracker/internal/blobstore"

	"github.com/gin-gonic/gin"
)

// BlobHandler is the document-store surface: POST a {filename,
// content} pair to overwrite the owner's document, GET it back by
// name. Matches the upload contract the devices speak: {url} on
// success, {error} with 400/405/500 otherwise.
type BlobHandler struct {
	store *blobstore.Store
}

func NewBlobHandler(store *blobstore.Store) *BlobHandler {
	return &BlobHandler{store: store}
}

type blobUploadBody struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

func (h *BlobHandler) Upload(c *gin.Context) {
	if !strings.HasPrefix(strings.ToLower(c.GetHeader("Content-Type")), "application/json") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content-type must be application/json"})
		return
	}
	var body blobUploadBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}
	if strings.TrimSpace(body.Filename) == "" || body.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing filename or content"})
		return
	}
	url, err := h.store.Put(UserIDFromContext(c), body.Filename, []byte(body.Content))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *BlobHandler) Download(c *gin.Context) {
	b, err := h.store.Get(UserIDFromContext(c), c.Param("filename"))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	// Devices already cache-bust with a query parameter; no-store keeps
	// intermediaries honest too.
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/json", b)
}

// MethodNotAllowed mirrors the original endpoint's 405 on anything but
// POST.
func MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
}
