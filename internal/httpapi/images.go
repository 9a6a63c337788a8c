package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

type ImageHandler struct {
	Images Images
	Logger *slog.Logger
}

func (h *ImageHandler) Get(c *gin.Context) {
	obj, err := h.Images.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, obj.ContentType, obj.Data)
}
