package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/orgtreehq/orgtree/internal/services"
	"github.com/orgtreehq/orgtree/pkg/response"
)

// DepartmentHandler manages the department tree of an organization.
type DepartmentHandler struct {
	svc *services.DepartmentService
}

func NewDepartmentHandler(db *gorm.DB) (*DepartmentHandler, error) {
	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	evaluator, err := services.NewEvaluator(db)
	if err != nil {
		return nil, err
	}
	svc, err := services.NewDepartmentService(db, evaluator, audit)
	if err != nil {
		return nil, err
	}
	return &DepartmentHandler{svc: svc}, nil
}

type createDepartmentRequest struct {
	Name        string  `json:"name" validate:"required,notblank,max=128"`
	Description string  `json:"description" validate:"omitempty,max=512"`
	ParentID    *string `json:"parent_id"`
	SortOrder   int     `json:"sort_order"`
}

type updateDepartmentRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=128"`
	Description *string `json:"description" validate:"omitempty,max=512"`
	ParentID    *string `json:"parent_id"`
	SortOrder   *int    `json:"sort_order"`
}

// GET /api/orgs/:id/departments
func (h *DepartmentHandler) List(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	tree, err := h.svc.ListTree(orgContext(c, c.Param("id")), identity, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, tree)
}

// POST /api/orgs/:id/departments
func (h *DepartmentHandler) Create(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var body createDepartmentRequest
	if !bindAndValidate(c, &body) {
		return
	}

	dept, err := h.svc.Create(orgContext(c, c.Param("id")), identity, c.Param("id"), services.CreateDepartmentInput{
		Name:        body.Name,
		Description: body.Description,
		ParentID:    body.ParentID,
		SortOrder:   body.SortOrder,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, dept)
}

// PATCH /api/orgs/:id/departments/:deptID
func (h *DepartmentHandler) Update(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var body updateDepartmentRequest
	if !bindAndValidate(c, &body) {
		return
	}

	dept, err := h.svc.Update(orgContext(c, c.Param("id")), identity, c.Param("id"), c.Param("deptID"), services.UpdateDepartmentInput{
		Name:        body.Name,
		Description: body.Description,
		ParentID:    body.ParentID,
		SortOrder:   body.SortOrder,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, dept)
}

// DELETE /api/orgs/:id/departments/:deptID
func (h *DepartmentHandler) Delete(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(orgContext(c, c.Param("id")), identity, c.Param("id"), c.Param("deptID")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
