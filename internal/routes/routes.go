package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"taskdesk/internal/handlers"
	"taskdesk/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	jwtSecret []byte,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	taskHandler *handlers.TaskHandler,
	integrationsHandler *handlers.IntegrationsHandler, // может быть nil
	boardHandler *handlers.BoardHandler, // может быть nil
) *gin.Engine {

	// ---- public
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.POST("/login", authHandler.Login)
	r.POST("/register", authHandler.Register)

	// Telegram webhook публикуем только если есть интеграция
	if integrationsHandler != nil {
		r.POST("/integrations/telegram/webhook", integrationsHandler.Webhook)
	}

	// ---- protected
	api := r.Group("/", middleware.AuthMiddleware(jwtSecret))

	if integrationsHandler != nil {
		api.POST("/integrations/telegram/request-link", integrationsHandler.RequestTelegramLink)
	}

	if boardHandler != nil {
		api.GET("/ws/board", middleware.RequireAdmin(), boardHandler.Stream)
	}

	// USERS
	users := api.Group("/users")
	{
		users.POST("", middleware.RequireAdmin(), userHandler.CreateUser)
		users.GET("", middleware.RequireAdmin(), userHandler.ListUsers)
		users.GET("/:id", userHandler.GetUserByID)
		users.PUT("/:id", userHandler.UpdateUser)
		users.DELETE("/:id", middleware.RequireAdmin(), userHandler.DeleteUser)
		users.POST("/:id/reset-balance", middleware.RequireAdmin(), userHandler.ResetBalance)
		users.GET("/:id/statement", userHandler.Statement)
	}

	// TASKS
	tasks := api.Group("/tasks")
	{
		tasks.POST("", middleware.RequireAdmin(), taskHandler.Create)
		tasks.GET("", taskHandler.GetAll)
		tasks.GET("/:id", taskHandler.GetByID)
		tasks.PUT("/:id", middleware.RequireAdmin(), taskHandler.Update)
		tasks.DELETE("/:id", middleware.RequireAdmin(), taskHandler.Delete)
		tasks.POST("/:id/complete", taskHandler.Complete)
		tasks.POST("/:id/uncomplete", taskHandler.Uncomplete)
		tasks.POST("/:id/photos", taskHandler.AddPhoto)
		tasks.DELETE("/:id/photos/:index", taskHandler.RemovePhoto)
	}

	return r
}
