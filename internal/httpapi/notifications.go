package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	Notifications Notifications
	Logger        *slog.Logger
}

func (h *NotificationHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	page, err := h.Notifications.ListForUser(c.Request.Context(), currentUser(c), c.Query("cursor"), limit)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	respondJSON(c, http.StatusOK, page)
}
