package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orgtreehq/orgtree/internal/security"
	"github.com/orgtreehq/orgtree/pkg/response"
)

// SecurityAuditHandler exposes the configuration posture checks to superusers.
type SecurityAuditHandler struct {
	svc *security.AuditService
}

func NewSecurityAuditHandler(svc *security.AuditService) *SecurityAuditHandler {
	return &SecurityAuditHandler{svc: svc}
}

// GET /api/admin/security-audit
func (h *SecurityAuditHandler) Run(c *gin.Context) {
	result := h.svc.Run(requestContext(c))
	response.Success(c, http.StatusOK, result)
}
