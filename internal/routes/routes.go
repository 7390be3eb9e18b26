package routes

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/listenline/ListenLineBack/internal/config"
	"github.com/listenline/ListenLineBack/internal/handlers"
	"github.com/listenline/ListenLineBack/internal/middleware"
	"github.com/listenline/ListenLineBack/internal/realtime"
	"github.com/listenline/ListenLineBack/internal/repository"
	"github.com/listenline/ListenLineBack/internal/services"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) {
	userRepo := repository.NewUserRepository(db)
	listenerRepo := repository.NewListenerRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	callRepo := repository.NewCallRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	supportMessageRepo := repository.NewSupportMessageRepository(db)

	sessionService := services.NewSessionService(sessionRepo, userRepo, listenerRepo)
	callService := services.NewCallService(callRepo, sessionService)
	chatService := services.NewChatService(messageRepo, sessionService)
	supportService := services.NewSupportService(ticketRepo, supportMessageRepo)

	presence := buildPresence(cfg)
	hub := realtime.NewHub(presence)
	notificationService := services.NewNotificationService(notificationRepo, userRepo, hub, presence)

	wsRouter := realtime.NewRouter(
		hub,
		sessionService,
		callService,
		chatService,
		supportService,
		notificationService,
		presence,
	)
	gateway := realtime.NewGateway(wsRouter, cfg.JWTSecret)

	authHandler := handlers.NewAuthHandler(db, userRepo, cfg.JWTSecret)
	sessionHandler := handlers.NewSessionHandler(sessionService, chatService, sessionRepo, listenerRepo)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	sessions := authProtected.Group("/sessions")
	sessions.Get("", sessionHandler.ListSessions)
	sessions.Get("/:id", sessionHandler.GetSession)
	sessions.Get("/:id/messages", sessionHandler.GetMessages)

	notifications := authProtected.Group("/notifications")
	notifications.Get("", notificationHandler.List)
	notifications.Get("/unread-count", notificationHandler.UnreadCount)
	notifications.Put("/:id/read", notificationHandler.MarkRead)
	notifications.Put("/read-all", notificationHandler.MarkAllRead)

	api.Use("/v1/ws", gateway.UpgradeAuth)
	api.Get("/v1/ws", websocket.New(gateway.HandleWebSocket))
}

// buildPresence backs presence with Redis when configured, so online checks
// survive across instances; otherwise a single-process in-memory registry.
func buildPresence(cfg *config.Config) realtime.PresenceRegistry {
	if cfg.RedisURL == "" {
		return realtime.NewMemoryPresence()
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("invalid REDIS_URL, falling back to in-memory presence")
		return realtime.NewMemoryPresence()
	}
	return realtime.NewRedisPresence(redis.NewClient(opts))
}
