// Package server assembles the Fiber app: middleware, HTTP routes and the websocket
// gateway, all wired to one room registry and one session coordinator.
package server

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/trentd187/escape-room/internal/config"
	"github.com/trentd187/escape-room/internal/handlers"
	"github.com/trentd187/escape-room/internal/middleware"
	"github.com/trentd187/escape-room/internal/models"
	"github.com/trentd187/escape-room/internal/registry"
	"github.com/trentd187/escape-room/internal/session"
	"github.com/trentd187/escape-room/internal/store"
	"github.com/trentd187/escape-room/internal/websocket"
)

// Server bundles the app with the live state behind it.
type Server struct {
	App         *fiber.App
	Registry    *registry.Registry
	Hub         *websocket.Hub
	Coordinator *session.Coordinator
}

// New builds the server. profiles may be nil, in which case the profile routes are not
// mounted.
func New(cfg *config.Config, profiles store.ProfileStore) *Server {
	reg := registry.New(cfg.DefaultTheme)
	hub := websocket.NewHub()
	coord := session.NewCoordinator(reg, hub, 1024)

	app := fiber.New(fiber.Config{
		AppName:               "Escape Room Realtime",
		DisableStartupMessage: cfg.Env != "development",
	})

	// A "*" anywhere in ALLOWED_ORIGINS opens both CORS and the websocket handshake to
	// every origin. Both middlewares only understand "*" when it stands alone.
	origins := cfg.AllowedOrigins
	if cfg.AllowsAnyOrigin() {
		origins = []string{"*"}
	}

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(origins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	app.Get("/health", handlers.HealthCheck(reg, handlers.CounterFunc(hub.ClientCount)))

	// The realtime protocol. Identity is optional; display names come from join-room.
	app.Get("/ws",
		websocket.RequireUpgrade,
		middleware.Identify(cfg.JWTSecret),
		websocket.Handler(hub, coord, websocket.Options{
			Origins:        origins,
			PongWait:       cfg.PongWait,
			PingPeriod:     cfg.PingPeriod,
			WriteWait:      cfg.WriteWait,
			MaxMessageSize: cfg.MaxMessageSize,
			SendBuffer:     cfg.SendBuffer,
			EventRate:      cfg.EventRate,
			EventBurst:     cfg.EventBurst,
		}),
	)

	if cfg.JWTSecret != "" {
		api := app.Group("/api/v1", middleware.Auth(cfg.JWTSecret))

		api.Get("/rooms", middleware.RequireRole(string(models.UserRoleAdmin)), handlers.ListRooms(reg))
		api.Get("/rooms/:id", handlers.GetRoom(reg))

		if profiles != nil {
			api.Get("/profiles/me", handlers.GetMyProfile(profiles))
			api.Put("/profiles/me", handlers.PutMyProfile(profiles))
			api.Delete("/profiles/me", handlers.DeleteMyProfile(profiles))
			api.Get("/profiles/:uid", handlers.GetProfile(profiles))
		}
	}

	return &Server{App: app, Registry: reg, Hub: hub, Coordinator: coord}
}

// Run starts the coordinator loop and serves on addr until ctx is cancelled, then shuts
// the app down.
func (s *Server) Run(ctx context.Context, addr string) error {
	go s.Coordinator.Run(ctx)

	errc := make(chan error, 1)
	go func() { errc <- s.App.Listen(addr) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return s.App.Shutdown()
	}
}
