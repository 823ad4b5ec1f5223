package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/prepdeck/interview-api/internal/config"
	"github.com/prepdeck/interview-api/internal/http/handler"
	httpmiddleware "github.com/prepdeck/interview-api/internal/http/middleware"
	"github.com/prepdeck/interview-api/internal/middleware"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(
	cfg config.Config,
	logger *zap.Logger,
	authHandler *handler.AuthHandler,
	interviewHandler *handler.InterviewHandler,
	authMiddleware *httpmiddleware.Auth,
	rateLimiter *middleware.RateLimiter,
) *gin.Engine {
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(logger))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(middleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/sign-up", authHandler.SignUp)
		authGroup.POST("/sign-in", authHandler.SignIn)
		authGroup.POST("/sign-out", authHandler.SignOut)
		authGroup.GET("/me", authMiddleware.RequireSession, authHandler.Me)
	}

	interviews := r.Group("/interviews", authMiddleware.RequireSession)
	{
		interviews.POST("", interviewHandler.Create)
		interviews.GET("", interviewHandler.List)
		interviews.GET("/latest", interviewHandler.Latest)
		interviews.GET("/:id", interviewHandler.Get)
		interviews.POST("/:id/feedback", interviewHandler.CreateFeedback)
		interviews.GET("/:id/feedback", interviewHandler.GetFeedback)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
