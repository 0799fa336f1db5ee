package api

import (
	"github.com/gin-gonic/gin"

	"github.com/orgtreehq/orgtree/internal/handlers"
)

func registerAuthRoutes(engine *gin.Engine, api *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	auth := engine.Group("/api/auth")
	{
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/login", authHandler.Login)
	}

	api.GET("/auth/me", authHandler.Me)
}
