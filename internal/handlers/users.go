package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/orgtreehq/orgtree/internal/access"
	"github.com/orgtreehq/orgtree/internal/services"
	"github.com/orgtreehq/orgtree/pkg/errors"
	"github.com/orgtreehq/orgtree/pkg/response"
)

// UserHandler exposes superuser account administration.
type UserHandler struct {
	svc *services.UserService
}

func NewUserHandler(db *gorm.DB) (*UserHandler, error) {
	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	svc, err := services.NewUserService(db, audit)
	if err != nil {
		return nil, err
	}
	return &UserHandler{svc: svc}, nil
}

type setSystemRoleRequest struct {
	SystemRole string `json:"system_role" validate:"required"`
}

// PATCH /api/admin/users/:id/role
func (h *UserHandler) SetSystemRole(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var body setSystemRoleRequest
	if !bindAndValidate(c, &body) {
		return
	}

	role, err := access.ParseSystemRole(body.SystemRole)
	if err != nil {
		response.Error(c, errors.NewBadRequest(err.Error()))
		return
	}

	user, err := h.svc.SetSystemRole(requestContext(c), identity, c.Param("id"), role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, userPayload(user))
}
