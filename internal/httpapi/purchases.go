package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

type PurchaseHandler struct {
	Purchases Purchases
	Logger    *slog.Logger
}

func (h *PurchaseHandler) List(c *gin.Context) {
	requests, err := h.Purchases.ListForUser(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	respondJSON(c, http.StatusOK, requests)
}

func (h *PurchaseHandler) Confirm(c *gin.Context) {
	req, err := h.Purchases.Confirm(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	respondJSON(c, http.StatusOK, req)
}

func (h *PurchaseHandler) Cancel(c *gin.Context) {
	req, err := h.Purchases.Cancel(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	respondJSON(c, http.StatusOK, req)
}
