package assets

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

const maxUploadBytes = 256 << 20

type uploader interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
}

type Handler struct {
	store      uploader
	tracker    *UploadTracker
	tempPrefix string
}

func Register(rg *gin.RouterGroup, store uploader, tracker *UploadTracker, tempPrefix string) {
	h := &Handler{store: store, tracker: tracker, tempPrefix: tempPrefix}
	rg.POST("", h.upload)
}

// upload stores a file at the temporary location and returns the
// generated key. The asset stays temporary until a project mutation
// referencing it is persisted; untouched uploads are swept after the
// tracking TTL.
func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	defer file.Close()

	key := NewObjectKey(header.Filename)
	contentType := header.Header.Get("Content-Type")

	if err := h.store.Put(c.Request.Context(), h.tempPrefix+key, file, contentType); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "upload failed"})
		return
	}

	if err := h.tracker.Track(c.Request.Context(), key); err != nil {
		// The object is uploaded; a missed tracking entry only shortens
		// its sweep grace period.
		c.Error(err)
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "key": key, "name": header.Filename})
}
