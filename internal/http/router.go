package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/secretsanta-backend/internal/http/handlers"
	httpMW "github.com/yungbote/secretsanta-backend/internal/http/middleware"
	"github.com/yungbote/secretsanta-backend/internal/observability"
	"github.com/yungbote/secretsanta-backend/internal/platform/logger"
)

type RouterConfig struct {
	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler    *httpH.HealthHandler
	RaffleHandler    *httpH.RaffleHandler
	ExclusionHandler *httpH.ExclusionHandler
	DrawHandler      *httpH.DrawHandler
	ChatHandler      *httpH.ChatHandler
	RelayHandler     *httpH.RelayHandler

	Log         *logger.Logger
	Metrics     *observability.Metrics
	CORSOrigins []string
	// ServiceName names the otelgin spans; empty disables HTTP tracing.
	ServiceName string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")

	// The relay authenticates before upgrading and answers 401 itself, so
	// it sits outside the protected group.
	if cfg.RelayHandler != nil {
		api.GET("/raffles/:id/chat/ws", cfg.RelayHandler.Connect)
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Raffles
		if cfg.RaffleHandler != nil {
			protected.POST("/raffles", cfg.RaffleHandler.CreateRaffle)
			protected.GET("/raffles/:id", cfg.RaffleHandler.GetRaffle)
			protected.DELETE("/raffles/:id", cfg.RaffleHandler.DeleteRaffle)
			protected.POST("/raffles/:id/join", cfg.RaffleHandler.JoinRaffle)
			protected.PUT("/raffles/:id/my-profile", cfg.RaffleHandler.UpdateMyProfile)
			protected.DELETE("/raffles/:id/members/me", cfg.RaffleHandler.LeaveRaffle)
		}

		// Exclusions
		if cfg.ExclusionHandler != nil {
			protected.GET("/raffles/:id/exclusions", cfg.ExclusionHandler.ListExclusions)
			protected.POST("/raffles/:id/exclusions", cfg.ExclusionHandler.AddExclusion)
			protected.DELETE("/raffles/:id/exclusions/:exclusionId", cfg.ExclusionHandler.RemoveExclusion)
		}

		// Draw
		if cfg.DrawHandler != nil {
			protected.POST("/raffles/:id/draw", cfg.DrawHandler.Draw)
			protected.GET("/raffles/:id/my-assignment", cfg.DrawHandler.GetMyAssignment)
		}

		// Chat history
		if cfg.ChatHandler != nil {
			protected.GET("/raffles/:id/chat/giftee", cfg.ChatHandler.GifteeHistory)
			protected.GET("/raffles/:id/chat/santa", cfg.ChatHandler.SantaHistory)
			protected.GET("/raffles/:id/chat/unread", cfg.ChatHandler.Unread)
		}
	}

	return r
}
