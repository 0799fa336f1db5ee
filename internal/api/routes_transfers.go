package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/orgtreehq/orgtree/internal/handlers"
)

func registerTransferRoutes(api *gin.RouterGroup, db *gorm.DB) error {
	transferHandler, err := handlers.NewTransferHandler(db)
	if err != nil {
		return err
	}

	api.POST("/orgs/:id/transfers", transferHandler.Create)

	transfers := api.Group("/transfers")
	{
		transfers.GET("/pending", transferHandler.Pending)
		transfers.GET("/:id", transferHandler.Get)
		transfers.GET("/:id/audit", transferHandler.AuditLog)
		transfers.POST("/:id/accept", transferHandler.Accept)
		transfers.POST("/:id/reject", transferHandler.Reject)
		transfers.POST("/:id/cancel", transferHandler.Cancel)
	}

	return nil
}
