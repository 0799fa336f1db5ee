package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/orgtreehq/orgtree/internal/services"
	"github.com/orgtreehq/orgtree/pkg/response"
)

// PersonHandler manages org chart person records.
type PersonHandler struct {
	svc *services.PersonService
}

func NewPersonHandler(db *gorm.DB) (*PersonHandler, error) {
	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	evaluator, err := services.NewEvaluator(db)
	if err != nil {
		return nil, err
	}
	svc, err := services.NewPersonService(db, evaluator, audit)
	if err != nil {
		return nil, err
	}
	return &PersonHandler{svc: svc}, nil
}

type createPersonRequest struct {
	Name         string  `json:"name" validate:"required,notblank,max=128"`
	Title        string  `json:"title" validate:"omitempty,max=128"`
	Email        string  `json:"email" validate:"omitempty,email"`
	DepartmentID *string `json:"department_id"`
	ReportsToID  *string `json:"reports_to_id"`
}

type updatePersonRequest struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=128"`
	Title        *string `json:"title" validate:"omitempty,max=128"`
	Email        *string `json:"email" validate:"omitempty,email"`
	DepartmentID *string `json:"department_id"`
	ReportsToID  *string `json:"reports_to_id"`
}

// GET /api/orgs/:id/people
func (h *PersonHandler) List(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	people, err := h.svc.List(orgContext(c, c.Param("id")), identity, c.Param("id"), strings.TrimSpace(c.Query("q")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, people)
}

// POST /api/orgs/:id/people
func (h *PersonHandler) Create(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var body createPersonRequest
	if !bindAndValidate(c, &body) {
		return
	}

	person, err := h.svc.Create(orgContext(c, c.Param("id")), identity, c.Param("id"), services.CreatePersonInput{
		Name:         body.Name,
		Title:        body.Title,
		Email:        body.Email,
		DepartmentID: body.DepartmentID,
		ReportsToID:  body.ReportsToID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, person)
}

// PATCH /api/orgs/:id/people/:personID
func (h *PersonHandler) Update(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var body updatePersonRequest
	if !bindAndValidate(c, &body) {
		return
	}

	person, err := h.svc.Update(orgContext(c, c.Param("id")), identity, c.Param("id"), c.Param("personID"), services.UpdatePersonInput{
		Name:         body.Name,
		Title:        body.Title,
		Email:        body.Email,
		DepartmentID: body.DepartmentID,
		ReportsToID:  body.ReportsToID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, person)
}

// DELETE /api/orgs/:id/people/:personID
func (h *PersonHandler) Delete(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(orgContext(c, c.Param("id")), identity, c.Param("id"), c.Param("personID")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
