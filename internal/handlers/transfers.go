package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/orgtreehq/orgtree/internal/services"
	"github.com/orgtreehq/orgtree/pkg/response"
)

// TransferHandler drives the ownership transfer lifecycle.
type TransferHandler struct {
	svc *services.TransferService
}

func NewTransferHandler(db *gorm.DB) (*TransferHandler, error) {
	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	evaluator, err := services.NewEvaluator(db)
	if err != nil {
		return nil, err
	}
	svc, err := services.NewTransferService(db, evaluator, audit)
	if err != nil {
		return nil, err
	}
	return &TransferHandler{svc: svc}, nil
}

type createTransferRequest struct {
	ToUserID string `json:"to_user_id" validate:"required"`
}

type resolveTransferRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=512"`
}

// POST /api/orgs/:id/transfers
func (h *TransferHandler) Create(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var body createTransferRequest
	if !bindAndValidate(c, &body) {
		return
	}

	transfer, err := h.svc.Create(orgContext(c, c.Param("id")), identity, c.Param("id"), body.ToUserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, transfer)
}

// POST /api/transfers/:id/accept
func (h *TransferHandler) Accept(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	transfer, err := h.svc.Accept(requestContext(c), identity.ID, c.Param("id"), c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, transfer)
}

// POST /api/transfers/:id/reject
func (h *TransferHandler) Reject(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var body resolveTransferRequest
	if !bindAndValidate(c, &body) {
		return
	}

	transfer, err := h.svc.Reject(requestContext(c), identity.ID, c.Param("id"), body.Reason, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, transfer)
}

// POST /api/transfers/:id/cancel
func (h *TransferHandler) Cancel(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var body resolveTransferRequest
	if !bindAndValidate(c, &body) {
		return
	}

	transfer, err := h.svc.Cancel(requestContext(c), identity.ID, c.Param("id"), body.Reason, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, transfer)
}

// GET /api/transfers/:id
func (h *TransferHandler) Get(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	transfer, err := h.svc.GetByID(requestContext(c), identity, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, transfer)
}

// GET /api/transfers/pending
func (h *TransferHandler) Pending(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	transfers, err := h.svc.PendingForUser(requestContext(c), identity.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, transfers)
}

// GET /api/transfers/:id/audit
func (h *TransferHandler) AuditLog(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	logs, err := h.svc.AuditLogFor(requestContext(c), identity, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, logs)
}
