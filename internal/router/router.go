// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/glampingbrillodeluna/reserva-bot/internal/config"
	"github.com/glampingbrillodeluna/reserva-bot/internal/handler"
	"github.com/glampingbrillodeluna/reserva-bot/internal/middleware"
	"github.com/glampingbrillodeluna/reserva-bot/internal/model"
)

// Handlers groups everything RegisterRoutes needs so main stays short.
type Handlers struct {
	Auth     *handler.AuthHandler
	Chat     *handler.ChatHandler
	Reservas *handler.ReservaHandler
	Usuarios *handler.UsuarioHandler
	Health   *handler.HealthHandler
}

// RegisterRoutes registers the full route table.
//
// Public surface: the health check, the WhatsApp webhook, the JSON chat
// endpoint and login. The guest-facing endpoints are rate limited per
// client IP since they take unauthenticated traffic from the internet.
//
// Admin surface: everything under /api requires a valid access token.
// Destructive operations and user management additionally require the
// "completo" role. List endpoints sit behind the Redis response cache;
// the database service invalidates conversation state, while the short
// cache TTL bounds dashboard staleness.
func RegisterRoutes(e *echo.Echo, h Handlers, cfg config.Config, rdb *redis.Client) {
	rateLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	e.GET("/healthz", h.Health.Health)

	e.POST("/webhook/whatsapp", h.Chat.Webhook, rateLimit)
	e.POST("/api/chat", h.Chat.Chat, rateLimit)
	e.POST("/api/auth/login", h.Auth.Login, rateLimit)

	api := e.Group("/api", middleware.JWTAuth(cfg.JWTSecret))
	api.GET("/me", h.Auth.Me)
	api.POST("/auth/password", h.Auth.ChangePassword)

	api.GET("/reservas", h.Reservas.List, cache)
	api.GET("/reservas/stats", h.Reservas.Stats, cache)
	api.GET("/reservas/:id", h.Reservas.Get)
	api.POST("/reservas", h.Reservas.Create)
	api.PATCH("/reservas/:id", h.Reservas.Update)
	api.DELETE("/reservas/:id", h.Reservas.Delete, middleware.RequireRole(model.RolCompleto))

	admin := api.Group("/usuarios", middleware.RequireRole(model.RolCompleto))
	admin.GET("", h.Usuarios.List, cache)
	admin.GET("/:id", h.Usuarios.Get)
	admin.POST("", h.Usuarios.Create)
	admin.PUT("/:id", h.Usuarios.Update)
	admin.DELETE("/:id", h.Usuarios.Delete)
	admin.POST("/:id/regenerate-password", h.Usuarios.RegeneratePassword)
}
