package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/orgtreehq/orgtree/internal/app"
	iauth "github.com/orgtreehq/orgtree/internal/auth"
	"github.com/orgtreehq/orgtree/internal/handlers"
	"github.com/orgtreehq/orgtree/internal/middleware"
	"github.com/orgtreehq/orgtree/internal/security"
)

func registerAdminRoutes(api *gin.RouterGroup, db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config) error {
	auditHandler, err := handlers.NewAuditHandler(db)
	if err != nil {
		return err
	}
	userHandler, err := handlers.NewUserHandler(db)
	if err != nil {
		return err
	}
	securityAudit := handlers.NewSecurityAuditHandler(security.NewAuditService(db, jwt, cfg))

	admin := api.Group("/admin")
	admin.Use(middleware.RequireSuperuser())
	{
		admin.GET("/audit", auditHandler.List)
		admin.GET("/security-audit", securityAudit.Run)
		admin.PATCH("/users/:id/role", userHandler.SetSystemRole)
	}

	return nil
}
