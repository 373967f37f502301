package server

import (
	"github.com/vsundaran/cycle-tracker/internal/auth"
	"github.com/vsundaran/cycle-tracker/internal/config"
	"github.com/vsundaran/cycle-tracker/internal/live"
	"github.com/vsundaran/cycle-tracker/internal/ride"
	"github.com/vsundaran/cycle-tracker/internal/user"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App  *fiber.App
	Cfg  config.Config
	DB   *pgxpool.Pool
	Live *live.Hub
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:  app,
		Cfg:  cfg,
		DB:   db,
		Live: live.NewHub(redisClient),
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)
	api := s.App.Group("/api")

	auth.RegisterRoutes(api.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB))
	ride.RegisterRoutes(api.Group("/rides"), ride.NewService(s.DB, s.Live), jwtMiddleware)
	user.RegisterRoutes(api.Group("/users"), user.NewService(s.DB), jwtMiddleware)
	live.RegisterRoutes(api.Group("/live"), s.Live)
}
