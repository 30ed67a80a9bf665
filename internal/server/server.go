package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"price-catalog/internal/chart"
	"price-catalog/internal/clock"
	"price-catalog/internal/config"
	"price-catalog/internal/database"
	custommiddleware "price-catalog/internal/middleware"
	"price-catalog/internal/repository"
	"price-catalog/internal/service"
	"price-catalog/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	chartWidth  = 1024
	chartHeight = 512
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     database.Service
	redis  *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, dbService database.Service) *Server {
	router := chi.NewRouter()

	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.Server.IsDevelopment()))

	var redisClient *redis.Client
	if cfg.RateLimit.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	s := &Server{
		config: cfg,
		logger: logger,
		db:     dbService,
		redis:  redisClient,
	}

	router.Get("/health", s.health)

	db := dbService.DB()
	clk := clock.NewRealClock()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	storeRepo := repository.NewStoreRepository(db)

	// Services
	userService := service.NewUserService(userRepo, refreshTokenRepo, service.UserServiceConfig{
		JWTSecret:       cfg.JWT.Secret,
		AccessTokenTTL:  cfg.JWT.AccessTTL(),
		RefreshTokenTTL: cfg.JWT.RefreshTTL(),
		AdminEmails:     cfg.JWT.AdminEmails,
	}, clk, logger)
	catalogService := service.NewCatalogService(categoryRepo, productRepo, storeRepo, clk, logger)
	priceService := service.NewPriceService(service.PriceServiceDeps{
		Prices:     repository.NewPriceRepository(db),
		History:    repository.NewPriceHistoryRepository(db),
		Audit:      repository.NewAuditLogRepository(db),
		Transactor: repository.NewTransactor(db, logger),
		Renderer:   chart.NewPNGRenderer(chartWidth, chartHeight),
		Clock:      clk,
		Location:   cfg.Catalog.Location(),
		Logger:     logger,
	})

	// Handlers
	userHandler := transport.NewUserHandler(userService, logger)
	catalogHandler := transport.NewCatalogHandler(catalogService, logger)
	priceHandler := transport.NewPriceHandler(priceService, cfg.Catalog.Location(), clk, logger)

	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	adminMiddleware := custommiddleware.RequireAdmin(logger)

	router.Group(func(r chi.Router) {
		if redisClient != nil {
			r.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
				RequestsPerWindow: cfg.RateLimit.Requests,
				Window:            cfg.RateLimit.Window,
				KeyPrefix:         "rate_limit",
			}, logger))
		}

		userHandler.RegisterRoutes(r, authMiddleware)
		catalogHandler.RegisterRoutes(r, authMiddleware, adminMiddleware)
		priceHandler.RegisterRoutes(r, authMiddleware, adminMiddleware)
	})

	s.Server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	dbStatus := s.db.Health(r.Context())
	status := map[string]interface{}{
		"database": dbStatus,
	}

	code := http.StatusOK
	if dbStatus["status"] != "up" {
		code = http.StatusServiceUnavailable
	}
	if s.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		if err := s.redis.Ping(ctx).Err(); err != nil {
			status["redis"] = map[string]string{"status": "down", "error": err.Error()}
		} else {
			status["redis"] = map[string]string{"status": "up"}
		}
	}

	custommiddleware.RespondWithJSON(w, code, status)
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	_ = s.logger.Sync()
	return nil
}
