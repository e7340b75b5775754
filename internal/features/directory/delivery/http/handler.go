package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"member-directory-bot/internal/common/apperr"
	"member-directory-bot/internal/features/directory/render"
	"member-directory-bot/internal/features/directory/service"
)

// Handler exposes the member directory read-only, for the web viewer.
type Handler struct {
	directory *service.Service
}

func NewHandler(router *gin.Engine, directory *service.Service) {
	h := &Handler{directory: directory}

	api := router.Group("/api/v1")
	{
		api.GET("/chats/:chat_id/members", h.listMembers)
		api.GET("/chats/:chat_id/members/export", h.exportMembers)
	}
}

func (h *Handler) chatID(c *gin.Context) (int64, bool) {
	chatID, err := strconv.ParseInt(c.Param("chat_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return 0, false
	}
	return chatID, true
}

func (h *Handler) listMembers(c *gin.Context) {
	chatID, ok := h.chatID(c)
	if !ok {
		return
	}

	members, err := h.directory.List(c.Request.Context(), chatID, service.ParseSortMode(c.Query("sort")))
	if err != nil {
		status := http.StatusInternalServerError
		if apperr.CodeOf(err) == apperr.CodeStoreUnavailable {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": "failed to load directory"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"chat_id": chatID,
		"count":   len(members),
		"members": members,
	})
}

func (h *Handler) exportMembers(c *gin.Context) {
	chatID, ok := h.chatID(c)
	if !ok {
		return
	}

	members, err := h.directory.List(c.Request.Context(), chatID, service.ParseSortMode(c.Query("sort")))
	if err != nil {
		status := http.StatusInternalServerError
		if apperr.CodeOf(err) == apperr.CodeStoreUnavailable {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": "failed to load directory"})
		return
	}

	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(render.ExportText(members)))
}
