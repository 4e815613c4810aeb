package main

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/glampingbrillodeluna/reserva-bot/internal/config"
	"github.com/glampingbrillodeluna/reserva-bot/internal/database"
	"github.com/glampingbrillodeluna/reserva-bot/internal/flow"
	"github.com/glampingbrillodeluna/reserva-bot/internal/handler"
	"github.com/glampingbrillodeluna/reserva-bot/internal/logger"
	"github.com/glampingbrillodeluna/reserva-bot/internal/queue"
	"github.com/glampingbrillodeluna/reserva-bot/internal/repository"
	"github.com/glampingbrillodeluna/reserva-bot/internal/router"
	"github.com/glampingbrillodeluna/reserva-bot/internal/service"
	"github.com/glampingbrillodeluna/reserva-bot/internal/state"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger.Init(cfg.Env)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	rdb := config.NewRedisClient()

	store := state.NewStore(cfg.StateTTL)

	var events service.EventPublisher
	if cfg.AMQPURL != "" {
		events = queue.NewPublisher(cfg.AMQPURL)
		go func() {
			if err := queue.StartReservaConsumer(cfg.AMQPURL); err != nil {
				log.Error().Err(err).Msg("reserva consumer stopped")
			}
		}()
	} else {
		log.Warn().Msg("RABBITMQ_URL not set, reservation events disabled")
	}

	reservas := repository.NewReservaRepo(db)
	usuarios := repository.NewUsuarioRepo(db)
	svc := service.NewDatabaseService(db, reservas, usuarios, store, events, cfg.BcryptCost)

	engine := flow.NewEngine(svc)
	engine.Avail = svc
	conv := service.NewConversationService(store, engine)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	router.RegisterRoutes(e, router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, svc),
		Chat:     handler.NewChatHandler(conv),
		Reservas: handler.NewReservaHandler(svc),
		Usuarios: handler.NewUsuarioHandler(svc),
		Health:   handler.NewHealthHandler(svc),
	}, cfg, rdb)

	// Periodically sweep idle conversations so abandoned drafts do not
	// pile up between requests.
	go func() {
		for range time.Tick(cfg.StateTTL) {
			store.Sweep()
		}
	}()

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
	if err := e.Start(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
