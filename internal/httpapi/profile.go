package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/safar/bookswap/internal/apperr"
	"github.com/safar/bookswap/internal/identity"
)

type ProfileHandler struct {
	Profiles Profiles
	Logger   *slog.Logger
}

func (h *ProfileHandler) Get(c *gin.Context) {
	profile, err := h.Profiles.Profile(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	respondJSON(c, http.StatusOK, profile)
}

func (h *ProfileHandler) Update(c *gin.Context) {
	var in identity.ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, h.Logger, apperr.Validation("invalid request body"))
		return
	}

	profile, err := h.Profiles.Update(c.Request.Context(), currentUser(c), in)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	respondJSON(c, http.StatusOK, profile)
}
