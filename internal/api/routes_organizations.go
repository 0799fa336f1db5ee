package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/orgtreehq/orgtree/internal/handlers"
)

func registerOrganizationRoutes(api *gin.RouterGroup, db *gorm.DB) error {
	orgHandler, err := handlers.NewOrganizationHandler(db)
	if err != nil {
		return err
	}
	memberHandler, err := handlers.NewMembershipHandler(db)
	if err != nil {
		return err
	}
	deptHandler, err := handlers.NewDepartmentHandler(db)
	if err != nil {
		return err
	}
	personHandler, err := handlers.NewPersonHandler(db)
	if err != nil {
		return err
	}

	orgs := api.Group("/orgs")
	{
		orgs.GET("", orgHandler.List)
		orgs.POST("", orgHandler.Create)
		orgs.GET("/:id", orgHandler.Get)
		orgs.PATCH("/:id", orgHandler.Update)
		orgs.DELETE("/:id", orgHandler.Delete)
		orgs.POST("/:id/share-token", orgHandler.RotateShareToken)

		orgs.GET("/:id/members", memberHandler.List)
		orgs.POST("/:id/members", memberHandler.Add)
		orgs.PATCH("/:id/members/:userID", memberHandler.UpdateRole)
		orgs.DELETE("/:id/members/:userID", memberHandler.Remove)

		orgs.GET("/:id/departments", deptHandler.List)
		orgs.POST("/:id/departments", deptHandler.Create)
		orgs.PATCH("/:id/departments/:deptID", deptHandler.Update)
		orgs.DELETE("/:id/departments/:deptID", deptHandler.Delete)

		orgs.GET("/:id/people", personHandler.List)
		orgs.POST("/:id/people", personHandler.Create)
		orgs.PATCH("/:id/people/:personID", personHandler.Update)
		orgs.DELETE("/:id/people/:personID", personHandler.Delete)
	}

	return nil
}
