package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/orgtreehq/orgtree/internal/services"
	"github.com/orgtreehq/orgtree/pkg/errors"
	"github.com/orgtreehq/orgtree/pkg/response"
)

// OrganizationHandler exposes organization CRUD plus share token rotation.
type OrganizationHandler struct {
	svc *services.OrganizationService
}

func NewOrganizationHandler(db *gorm.DB) (*OrganizationHandler, error) {
	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	evaluator, err := services.NewEvaluator(db)
	if err != nil {
		return nil, err
	}
	svc, err := services.NewOrganizationService(db, evaluator, audit)
	if err != nil {
		return nil, err
	}
	return &OrganizationHandler{svc: svc}, nil
}

type createOrganizationRequest struct {
	Name        string         `json:"name" validate:"required,notblank,max=128"`
	Description string         `json:"description" validate:"omitempty,max=512"`
	Public      bool           `json:"public"`
	Settings    map[string]any `json:"settings"`
}

type updateOrganizationRequest struct {
	Name        *string        `json:"name" validate:"omitempty,min=1,max=128"`
	Description *string        `json:"description" validate:"omitempty,max=512"`
	Public      *bool          `json:"public"`
	Settings    map[string]any `json:"settings"`
}

// GET /api/orgs
func (h *OrganizationHandler) List(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	orgs, err := h.svc.ListForUser(requestContext(c), identity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, orgs)
}

// GET /api/orgs/:id
func (h *OrganizationHandler) Get(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	org, decision, err := h.svc.GetByID(orgContext(c, c.Param("id")), identity, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"organization": org,
		"access":       decision,
	})
}

// POST /api/orgs
func (h *OrganizationHandler) Create(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var body createOrganizationRequest
	if !bindAndValidate(c, &body) {
		return
	}

	name := strings.TrimSpace(body.Name)
	if name == "" {
		response.Error(c, errors.NewBadRequest("name is required"))
		return
	}

	org, err := h.svc.Create(requestContext(c), identity, services.CreateOrganizationInput{
		Name:        name,
		Description: strings.TrimSpace(body.Description),
		Public:      body.Public,
		Settings:    body.Settings,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, org)
}

// PATCH /api/orgs/:id
func (h *OrganizationHandler) Update(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var body updateOrganizationRequest
	if !bindAndValidate(c, &body) {
		return
	}

	if body.Name == nil && body.Description == nil && body.Public == nil && body.Settings == nil {
		response.Error(c, errors.NewBadRequest("no fields provided for update"))
		return
	}

	input := services.UpdateOrganizationInput{
		Description: body.Description,
		Public:      body.Public,
		Settings:    body.Settings,
	}
	if body.Name != nil {
		trimmedName := strings.TrimSpace(*body.Name)
		if trimmedName == "" {
			response.Error(c, errors.NewBadRequest("name must not be empty"))
			return
		}
		input.Name = &trimmedName
	}

	org, err := h.svc.Update(orgContext(c, c.Param("id")), identity, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, org)
}

// DELETE /api/orgs/:id
func (h *OrganizationHandler) Delete(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(orgContext(c, c.Param("id")), identity, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// POST /api/orgs/:id/share-token
func (h *OrganizationHandler) RotateShareToken(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	token, err := h.svc.RotateShareToken(orgContext(c, c.Param("id")), identity, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"share_token": token})
}
