package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/couchly/sofa-advisor/internal/agent"
	"github.com/couchly/sofa-advisor/internal/storage"
	"github.com/couchly/sofa-advisor/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ChatHandler struct {
	agent    *agent.Agent
	uploader storage.Uploader
}

func NewChatHandler(a *agent.Agent, uploader storage.Uploader) *ChatHandler {
	return &ChatHandler{agent: a, uploader: uploader}
}

// Chat is the blocking contract: one turn in, the final assistant message
// (plus carry-forward context) out.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req agent.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ChatHandler.Chat", "invalid request body", err))
		return
	}
	if strings.TrimSpace(req.Input) == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ChatHandler.Chat", "input is required", nil))
		return
	}

	res := h.agent.Chat(c.Request.Context(), req)
	c.JSON(http.StatusOK, res)
}

// ChatStream re-expresses the same turn as server-sent events:
// intent, then optional products, then content.
func (h *ChatHandler) ChatStream(c *gin.Context) {
	var req agent.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ChatHandler.ChatStream", "invalid request body", err))
		return
	}
	if strings.TrimSpace(req.Input) == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ChatHandler.ChatStream", "input is required", nil))
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	events := h.agent.ChatStream(c.Request.Context(), req)
	c.Stream(func(w io.Writer) bool {
		ev, ok := <-events
		if !ok {
			return false
		}
		c.SSEvent(string(ev.Type), ev)
		return true
	})
}

// UploadImage stores a sofa photo and returns the reference to pass back as
// image_ref on the next chat turn.
func (h *ChatHandler) UploadImage(c *gin.Context) {
	const op = "ChatHandler.UploadImage"

	if h.uploader == nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "image upload is not configured", nil))
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "missing image file", err))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "file is not an image", nil))
		return
	}

	objectName := "uploads/" + uuid.NewString() + filepath.Ext(header.Filename)
	url, err := h.uploader.Upload(c.Request.Context(), objectName, contentType, file)
	if err != nil {
		writeError(c, utils.E(utils.CodeUpstream, op, "failed to store image", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"image_ref": url})
}
