package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/secretsanta-backend/internal/http"
	httpH "github.com/yungbote/secretsanta-backend/internal/http/handlers"
	httpMW "github.com/yungbote/secretsanta-backend/internal/http/middleware"
	"github.com/yungbote/secretsanta-backend/internal/observability"
	"github.com/yungbote/secretsanta-backend/internal/platform/logger"
	"github.com/yungbote/secretsanta-backend/internal/realtime"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health    *httpH.HealthHandler
	Raffle    *httpH.RaffleHandler
	Exclusion *httpH.ExclusionHandler
	Draw      *httpH.DrawHandler
	Chat      *httpH.ChatHandler
	Relay     *httpH.RelayHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, cfg Config, services Services, hub *realtime.Hub, metrics *observability.Metrics) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:    httpH.NewHealthHandler(db),
		Raffle:    httpH.NewRaffleHandler(log, services.Raffle),
		Exclusion: httpH.NewExclusionHandler(log, services.Exclusion),
		Draw:      httpH.NewDrawHandler(log, services.Draw),
		Chat:      httpH.NewChatHandler(log, services.Chat),
		Relay:     httpH.NewRelayHandler(log, services.Relay, hub, cfg.CORSOrigins, metrics),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) *http.Server {
	serviceName := ""
	if cfg.OTel.Enabled {
		serviceName = cfg.OTel.ServiceName
	}
	return http.NewServer(http.RouterConfig{
		AuthMiddleware:   middleware.Auth,
		HealthHandler:    handlers.Health,
		RaffleHandler:    handlers.Raffle,
		ExclusionHandler: handlers.Exclusion,
		DrawHandler:      handlers.Draw,
		ChatHandler:      handlers.Chat,
		RelayHandler:     handlers.Relay,
		Log:              log,
		Metrics:          metrics,
		CORSOrigins:      cfg.CORSOrigins,
		ServiceName:      serviceName,
	})
}
