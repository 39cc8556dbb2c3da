package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/secretsanta-backend/internal/modules/draw"
	"github.com/yungbote/secretsanta-backend/internal/observability"
	"github.com/yungbote/secretsanta-backend/internal/platform/logger"
	"github.com/yungbote/secretsanta-backend/internal/platform/sealbox"
	"github.com/yungbote/secretsanta-backend/internal/services"
)

type Services struct {
	Auth       services.AuthService
	Raffle     services.RaffleService
	Exclusion  services.ExclusionService
	Draw       services.DrawService
	Assignment services.AssignmentStore
	Routing    services.RoutingTable
	Chat       services.ChatService
	Relay      *services.Relay
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, c Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")
	box, err := sealbox.New(cfg.SealKey())
	if err != nil {
		return Services{}, fmt.Errorf("init sealbox: %w", err)
	}
	pseudonyms, err := services.NewPseudonyms(cfg.SealKey())
	if err != nil {
		return Services{}, fmt.Errorf("init pseudonyms: %w", err)
	}

	auth := services.NewAuthService(log, cfg.JWTSecretKey, cfg.AccessTokenTTL)
	routing := services.NewRoutingTable(log, r.Assignment)
	store := services.NewAssignmentStore(db, log, r.Raffle, r.Assignment)
	engine := draw.NewEngine(draw.WithAttemptBudget(cfg.Draw.AttemptBudget))

	return Services{
		Auth:       auth,
		Raffle:     services.NewRaffleService(db, log, c.Locks, r.Raffle, r.Member, r.Exclusion, r.Assignment, r.Message, routing),
		Exclusion:  services.NewExclusionService(db, log, c.Locks, r.Raffle, r.Member, r.Exclusion),
		Draw:       services.NewDrawService(db, log, c.Locks, engine, r.Raffle, r.Member, r.Exclusion, store, metrics),
		Assignment: store,
		Routing:    routing,
		Chat:       services.NewChatService(log, r.Raffle, r.Member, r.Message, routing, box, pseudonyms),
		Relay: services.NewRelay(log, services.RelayConfig{MaxMessageRunes: cfg.Chat.MaxMessageRunes},
			auth, r.Raffle, r.Member, r.Message, routing, box, pseudonyms, c.Emitter, metrics),
	}, nil
}
