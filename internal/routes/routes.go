package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/triagedesk/backend/internal/config"
	"github.com/triagedesk/backend/internal/controllers"
	"github.com/triagedesk/backend/internal/middleware"
	"github.com/triagedesk/backend/internal/permission"
	"github.com/triagedesk/backend/internal/services"
	"github.com/triagedesk/backend/internal/storage"
	"gorm.io/gorm"
)

// Dependencies are the wired services the HTTP layer serves
type Dependencies struct {
	DB              *gorm.DB
	Auth            config.AuthConfig
	Authorizer      middleware.Authorizer
	Events          controllers.EventSource
	Directory       *services.ProfileDirectory
	Tickets         *services.TicketService
	Chat            *services.ChatService
	Recommendations *services.RecommendationService
	Logs            *services.LogService
	Notifications   *services.NotificationService
	LLM             *services.LLMService
	Cursors         services.CursorStore
	Agents          *services.AgentClient
	// Avatars may be nil when object storage is not configured
	Avatars storage.ObjectStore
}

// SetupRoutes configures all application routes
func SetupRoutes(r *gin.Engine, deps Dependencies) {
	authController := controllers.NewAuthController(deps.Directory, deps.Auth)
	userController := controllers.NewUserController(deps.Directory, deps.Avatars)
	settingsController := controllers.NewSettingsController(deps.Notifications, deps.LLM)
	ticketController := controllers.NewTicketController(deps.Tickets)
	chatController := controllers.NewChatController(deps.Chat, deps.Tickets, deps.Events)
	recommendationController := controllers.NewRecommendationController(deps.Recommendations)
	logController := controllers.NewLogController(deps.Logs, deps.Events)
	adminController := controllers.NewAdminController(deps.Cursors, deps.Agents, deps.LLM)
	healthController := controllers.NewHealthController(deps.DB)

	r.GET("/health", healthController.Health)

	can := func(resource, action string) gin.HandlerFunc {
		return middleware.RequirePermission(deps.Authorizer, resource, action)
	}

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authController.Login)
			auth.POST("/register", authController.Register)
		}

		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(deps.Auth.JWTSecret))
		{
			session := protected.Group("/auth")
			{
				session.GET("/session", authController.Session)
				session.POST("/refresh", authController.RefreshToken)
				session.POST("/change-password", authController.ChangePassword)
			}

			users := protected.Group("/users")
			{
				users.GET("/me", userController.GetCurrentUser)
				users.PUT("/me", userController.UpdateCurrentUser)
				users.POST("/me/avatar", userController.UploadAvatar)
				users.GET("", can(permission.ResourceUsers, permission.ActionRead), userController.GetUsers)
				users.PUT("/:id/role", can(permission.ResourceUsers, permission.ActionManage), userController.UpdateUserRole)
			}

			settings := protected.Group("/settings")
			{
				settings.GET("/notifications", settingsController.GetNotificationSettings)
				settings.PUT("/notifications", settingsController.UpdateNotificationSettings)
				settings.GET("/llm", can(permission.ResourceLLM, permission.ActionRead), settingsController.GetLLMStatus)
			}

			tickets := protected.Group("/tickets")
			{
				tickets.GET("", can(permission.ResourceTickets, permission.ActionRead), ticketController.GetTickets)
				tickets.POST("", can(permission.ResourceTickets, permission.ActionWrite), ticketController.CreateTicket)
				tickets.POST("/intake", can(permission.ResourceTickets, permission.ActionWrite), ticketController.Intake)
				tickets.GET("/:id", can(permission.ResourceTickets, permission.ActionRead), ticketController.GetTicket)
				tickets.PATCH("/:id", can(permission.ResourceTickets, permission.ActionWrite), ticketController.UpdateTicket)

				tickets.GET("/:id/messages", can(permission.ResourceChat, permission.ActionRead), chatController.GetMessages)
				tickets.POST("/:id/messages", can(permission.ResourceChat, permission.ActionWrite), chatController.PostMessage)
				tickets.POST("/:id/assistant", can(permission.ResourceChat, permission.ActionWrite), chatController.AskAssistant)
				tickets.GET("/:id/messages/stream", can(permission.ResourceChat, permission.ActionRead), chatController.StreamMessages)

				tickets.GET("/:id/recommendations", can(permission.ResourceRecommendations, permission.ActionRead), recommendationController.GetRecommendations)
				tickets.POST("/:id/recommendations/generate", can(permission.ResourceRecommendations, permission.ActionGenerate), recommendationController.GenerateRecommendations)
			}

			logs := protected.Group("/logs")
			{
				logs.POST("/ingest", can(permission.ResourceLogs, permission.ActionIngest), logController.IngestLog)
				logs.GET("", can(permission.ResourceLogs, permission.ActionRead), logController.GetLogs)
				logs.GET("/stream", can(permission.ResourceLogs, permission.ActionRead), logController.StreamLogs)
				logs.GET("/:id", can(permission.ResourceLogs, permission.ActionRead), logController.GetLog)
			}

			admin := protected.Group("/admin")
			{
				admin.GET("/assignment-trackers", can(permission.ResourceTrackers, permission.ActionRead), adminController.GetAssignmentTrackers)
				admin.POST("/agents/start", can(permission.ResourceAgents, permission.ActionManage), adminController.StartAgent)
				admin.GET("/llm-api-calls", can(permission.ResourceLLM, permission.ActionManage), adminController.GetLLMAPICalls)
				admin.DELETE("/llm-api-calls", can(permission.ResourceLLM, permission.ActionManage), adminController.ClearLLMAPICalls)
			}
		}
	}
}
