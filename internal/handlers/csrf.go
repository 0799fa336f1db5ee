package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orgtreehq/orgtree/internal/security"
	"github.com/orgtreehq/orgtree/pkg/errors"
	"github.com/orgtreehq/orgtree/pkg/response"
)

// CSRFHandler lets clients fetch a fresh signed token explicitly, for example
// after the cookie expired mid-session.
type CSRFHandler struct {
	manager *security.CSRFManager
}

func NewCSRFHandler(manager *security.CSRFManager) *CSRFHandler {
	return &CSRFHandler{manager: manager}
}

// GET /api/csrf
func (h *CSRFHandler) Token(c *gin.Context) {
	pair, err := h.manager.Issue()
	if err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"csrf_token": pair.SignedToken})
}
