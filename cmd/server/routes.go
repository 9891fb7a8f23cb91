package main

import (
	"github.com/devcollab/platform/backend/internal/handlers"
	"github.com/devcollab/platform/backend/internal/middleware"
	"github.com/devcollab/platform/backend/internal/models"
	"github.com/devcollab/platform/backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Rate limiter for public auth routes
	authLimiter := middleware.NewRateLimiter(5, 10)

	// Health check
	healthHandler := handlers.NewHealthHandler(svc.hub)
	r.GET("/health", healthHandler.CheckHealth)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public, rate limited)
		auth := api.Group("/auth", authLimiter.Middleware())
		{
			auth.POST("/login", svc.authHandler.Login)
			auth.POST("/register", svc.authHandler.Register)
			auth.GET("/info", svc.authHandler.AuthInfo)
		}

		// Event stream (token accepted via query parameter for EventSource)
		streamHandler := handlers.NewStreamHandler(svc.hub, models.GetDB())
		api.GET("/stream", middleware.AuthRequired(), streamHandler.Subscribe)

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired(), middleware.AuditLog())
		{
			// Auth
			protected.GET("/auth/me", svc.authHandler.Me)
			protected.POST("/auth/change-password", svc.authHandler.ChangePassword)

			// Users
			userHandler := handlers.NewUserHandler(models.GetDB())
			protected.GET("/users", userHandler.List)
			protected.GET("/users/projects", userHandler.Projects)
			protected.GET("/users/:id", userHandler.GetByID)
			protected.PUT("/users/profile", userHandler.UpdateProfile)

			// Projects
			projectHandler := handlers.NewProjectHandler(models.GetDB())
			protected.GET("/projects", projectHandler.List)
			protected.GET("/projects/:id", projectHandler.GetByID)
			protected.POST("/projects", projectHandler.Create)
			protected.PUT("/projects/:id", projectHandler.Update)
			protected.DELETE("/projects/:id", projectHandler.Delete)
			protected.GET("/projects/:id/members", projectHandler.Members)

			// Join requests
			requestHandler := handlers.NewJoinRequestHandler(models.GetDB())
			protected.GET("/requests", requestHandler.ListOwn)
			protected.GET("/requests/incoming", requestHandler.ListIncoming)
			protected.POST("/requests", requestHandler.Send)
			protected.PUT("/requests/:id", requestHandler.Decide)
			protected.DELETE("/requests/:id", requestHandler.Delete)

			// Tasks
			taskHandler := handlers.NewTaskHandler(models.GetDB())
			protected.GET("/tasks/assigned", taskHandler.ListAssigned)
			protected.GET("/projects/:id/tasks", taskHandler.ListForProject)
			protected.POST("/tasks", taskHandler.Assign)
			protected.PUT("/tasks/:id/status", taskHandler.UpdateStatus)
			protected.DELETE("/tasks/:id", taskHandler.Delete)

			// Messages
			messageHandler := handlers.NewMessageHandler(models.GetDB())
			protected.GET("/projects/:id/messages", messageHandler.ListForProject)
			protected.POST("/messages", messageHandler.Send)
			protected.DELETE("/messages/:id", messageHandler.Delete)
		}

		// Admin only routes
		admin := api.Group("")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			systemLogHandler := handlers.NewSystemLogHandler(models.GetDB())
			admin.GET("/system-logs", systemLogHandler.List)
			admin.POST("/system-logs/cleanup", systemLogHandler.Cleanup)
		}
	}
}
