package routes

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"authservice/internal/handlers"
	"authservice/internal/middleware"
	"authservice/internal/models"
)

// Handlers groups everything SetupRoutes mounts. Limiter may be nil
// (rate limiting off).
type Handlers struct {
	Auth    *handlers.AuthHandler
	User    *handlers.UserHandler
	Admin   *handlers.AdminHandler
	Health  *handlers.HealthHandler
	Session gin.HandlerFunc
	Limiter gin.HandlerFunc
}

func SetupRoutes(r *gin.Engine, h Handlers) *gin.Engine {
	// ---- system
	r.GET("/healthz", h.Health.Health)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// ---- public
	auth := r.Group("/auth")
	if h.Limiter != nil {
		auth.Use(h.Limiter)
	}
	{
		auth.POST("/sign-up", h.Auth.SignUp)
		auth.POST("/sign-in", h.Auth.SignIn)
		auth.GET("/verify", h.Auth.Verify)
		auth.GET("/resend-verification", h.Auth.ResendVerification)
		auth.POST("/initiate-reset", h.Auth.InitiateReset)
		auth.GET("/verify-reset", h.Auth.VerifyReset)
		auth.PUT("/reset-password", h.Auth.ResetPassword)
	}

	// ---- protected
	user := r.Group("/user", h.Session)
	if h.Limiter != nil {
		user.Use(h.Limiter)
	}
	{
		user.GET("", h.User.GetProfile)
		user.PUT("/edit-profile", h.User.EditProfile)
		user.PUT("/change-password", h.User.ChangePassword)
		user.POST("/sign-out", h.User.SignOut)
		user.POST("/log-other-devices-out", h.User.LogOtherDevicesOut)
		user.POST("/verify-phone", h.User.VerifyPhone)
		user.GET("/totp", h.User.TOTP)
		user.POST("/totp/validate", h.User.ValidateTOTP)
		user.POST("/totp/regenerate", h.User.RegenerateTOTP)
	}

	// ADMIN
	admin := r.Group("/admin", h.Session, middleware.RequireRoles(models.RoleAdmin))
	{
		admin.GET("/users", h.Admin.ListUsers)
	}

	return r
}
