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

// MembershipHandler manages the member roster of an organization.
type MembershipHandler struct {
	svc *services.MembershipService
}

func NewMembershipHandler(db *gorm.DB) (*MembershipHandler, error) {
	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	evaluator, err := services.NewEvaluator(db)
	if err != nil {
		return nil, err
	}
	svc, err := services.NewMembershipService(db, evaluator, audit)
	if err != nil {
		return nil, err
	}
	return &MembershipHandler{svc: svc}, nil
}

type addMemberRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"required"`
}

type updateMemberRequest struct {
	Role string `json:"role" validate:"required"`
}

// GET /api/orgs/:id/members
func (h *MembershipHandler) List(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	members, err := h.svc.List(orgContext(c, c.Param("id")), identity, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, members)
}

// POST /api/orgs/:id/members
func (h *MembershipHandler) Add(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var body addMemberRequest
	if !bindAndValidate(c, &body) {
		return
	}

	role, err := access.ParseRole(body.Role)
	if err != nil {
		response.Error(c, errors.NewBadRequest(err.Error()))
		return
	}

	member, err := h.svc.Add(orgContext(c, c.Param("id")), identity, c.Param("id"), body.UserID, role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, member)
}

// PATCH /api/orgs/:id/members/:userID
func (h *MembershipHandler) UpdateRole(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var body updateMemberRequest
	if !bindAndValidate(c, &body) {
		return
	}

	role, err := access.ParseRole(body.Role)
	if err != nil {
		response.Error(c, errors.NewBadRequest(err.Error()))
		return
	}

	member, err := h.svc.UpdateRole(orgContext(c, c.Param("id")), identity, c.Param("id"), c.Param("userID"), role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, member)
}

// DELETE /api/orgs/:id/members/:userID
func (h *MembershipHandler) Remove(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	if err := h.svc.Remove(orgContext(c, c.Param("id")), identity, c.Param("id"), c.Param("userID")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true})
}
