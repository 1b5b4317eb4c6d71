package rest

import (
	"github.com/dmitrijs2005/koulio-auth/internal/logging"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// NewRouter wires Gin routes and middleware. Everything lives under /api;
// the account routes behind RequireAccessToken.
func NewRouter(serviceName string, h *Handler, tokens AccessTokenValidator, logger logging.Logger) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(Recovery(logger))
	r.Use(RequestLogger(logger))
	r.Use(otelgin.Middleware(serviceName))

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.POST("/register", h.Register)
		api.POST("/login", h.Login)
		api.POST("/refresh", h.Refresh)

		protected := api.Group("", RequireAccessToken(tokens))
		{
			protected.GET("/profile", h.GetProfile)
			protected.PUT("/profile", h.UpdateProfile)
			protected.POST("/change-password", h.ChangePassword)
			protected.DELETE("/delete-account", h.DeleteAccount)
			protected.POST("/logout", h.Logout)
		}
	}

	r.NoRoute(h.NotFound)
	r.NoMethod(h.MethodNotAllowed)

	return r
}
