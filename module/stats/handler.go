package stats

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"relaygate/service/ws"
)

// Handler exposes the read-only introspection endpoints. Everything is
// computed from live manager state; nothing here mutates.
type Handler struct {
	mgr *ws.ConnManager
}

func NewHandler(mgr *ws.ConnManager) *Handler {
	return &Handler{mgr: mgr}
}

func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.mgr.Stats())
}

func (h *Handler) Online(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "user_id must be an integer"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id": id,
		"online":  h.mgr.IsOnline(ws.UserID(id)),
	})
}
