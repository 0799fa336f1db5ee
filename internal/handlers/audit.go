package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/orgtreehq/orgtree/internal/services"
	"github.com/orgtreehq/orgtree/pkg/response"
)

// AuditHandler exposes the platform-wide audit trail to superusers.
type AuditHandler struct {
	svc *services.AuditService
}

func NewAuditHandler(db *gorm.DB) (*AuditHandler, error) {
	svc, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	return &AuditHandler{svc: svc}, nil
}

// GET /api/admin/audit
func (h *AuditHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	if page <= 0 {
		page = 1
	}
	pageSize := parseIntQuery(c, "page_size", 50)
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}

	opts := services.AuditListOptions{
		Page:     page,
		PageSize: pageSize,
		Filters: services.AuditFilters{
			UserID:         c.Query("user_id"),
			OrganizationID: c.Query("org_id"),
			TransferID:     c.Query("transfer_id"),
			Action:         c.Query("action"),
			Result:         c.Query("result"),
		},
	}

	if raw := c.Query("since"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			opts.Filters.Since = &ts
		}
	}
	if raw := c.Query("until"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			opts.Filters.Until = &ts
		}
	}

	logs, total, err := h.svc.List(requestContext(c), opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	pages := int(total) / opts.PageSize
	if int(total)%opts.PageSize != 0 {
		pages++
	}
	response.SuccessWithMeta(c, http.StatusOK, logs, &response.Meta{
		Page:       opts.Page,
		PerPage:    opts.PageSize,
		Total:      int(total),
		TotalPages: pages,
	})
}
