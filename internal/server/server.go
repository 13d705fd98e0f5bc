// Package server is the reference NuageVault REST API: accounts, albums,
// photos with presigned direct uploads, profiles and usage stats.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nuagevault/nuagevault/internal/auth"
	"github.com/nuagevault/nuagevault/internal/config"
	"github.com/nuagevault/nuagevault/internal/mailer"
	"github.com/nuagevault/nuagevault/internal/models"
	"github.com/nuagevault/nuagevault/internal/storage"
)

// Enqueuer schedules background tasks (implemented by *asynq.Client)
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Server represents the HTTP server
type Server struct {
	router    *gin.Engine
	db        *gorm.DB
	config    *config.Config
	logger    zerolog.Logger
	validator *validator.Validate
	tokens    *auth.TokenManager
	store     storage.Store
	disk      *storage.DiskStore // nil unless the disk backend is used
	mailer    mailer.Mailer
	enqueuer  Enqueuer
	registry  *prometheus.Registry
	version   string
}

// Option configures a Server
type Option func(*Server)

// WithStore replaces the storage backend selected by the config
func WithStore(store storage.Store) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithMailer replaces the console mailer
func WithMailer(m mailer.Mailer) Option {
	return func(s *Server) {
		s.mailer = m
	}
}

// WithEnqueuer sets the task client used for upload reconciliation
func WithEnqueuer(e Enqueuer) Option {
	return func(s *Server) {
		s.enqueuer = e
	}
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string, opts ...Option) (*Server, error) {
	// Initialize database with production settings
	db, err := InitDatabase(cfg, zlog)
	if err != nil {
		return nil, err
	}

	// Run database migrations
	if err := models.AutoMigrate(db); err != nil {
		return nil, err
	}

	secret, err := loadJWTSecret(db, cfg, zlog)
	if err != nil {
		return nil, err
	}

	server := &Server{
		db:        db,
		config:    cfg,
		logger:    zlog,
		validator: newValidator(),
		tokens:    auth.NewTokenManager(secret, cfg.Auth.TokenTTL),
		mailer:    mailer.NewConsoleMailer(zlog),
		registry:  prometheus.NewRegistry(),
		version:   version,
	}
	for _, opt := range opts {
		opt(server)
	}

	if server.store == nil {
		store, err := storage.New(context.Background(), cfg.Storage, cfg.Server.PublicAPIURL, server.tokens)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		server.store = store
	}
	if disk, ok := server.store.(*storage.DiskStore); ok {
		server.disk = disk
	}

	// Initialize Asynq client for enqueueing tasks
	if server.enqueuer == nil && cfg.Redis.Address != "" {
		server.enqueuer = asynq.NewClient(asynq.RedisClientOpt{
			Addr: cfg.Redis.Address,
		})
	}

	// Setup router
	server.setupRouter()

	return server, nil
}

// loadJWTSecret returns JWT_SECRET, or the secret persisted in the Config
// singleton, creating it on first start
func loadJWTSecret(db *gorm.DB, cfg *config.Config, zlog zerolog.Logger) (string, error) {
	if cfg.Auth.JWTSecret != "" {
		return cfg.Auth.JWTSecret, nil
	}

	var conf models.Config
	err := db.First(&conf).Error
	if err == nil {
		zlog.Debug().Msg("Loaded JWT secret from database")
		return conf.JWTSecret, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("failed to load config: %w", err)
	}

	secret, err := auth.NewSecret()
	if err != nil {
		return "", err
	}
	if err := db.Create(&models.Config{JWTSecret: secret}).Error; err != nil {
		return "", fmt.Errorf("failed to create config: %w", err)
	}
	zlog.Info().Msg("Generated JWT secret")
	return secret, nil
}

// InitDatabase opens the sqlite database with production settings
func InitDatabase(cfg *config.Config, zlog zerolog.Logger) (*gorm.DB, error) {
	const (
		maxOpenConns    = 8   // Reduced for SQLite efficiency
		maxIdleConns    = 4   // Reduced proportionally
		connMaxLifetime = 300 // 5 minutes
		busyTimeout     = 5000
		cacheSize       = 10000
	)

	// Open database connection
	db, err := gorm.Open(sqlite.Open(cfg.Database.URL), &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel:                  logger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// WAL mode must be set first
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		fmt.Sprintf("PRAGMA cache_size=-%d", cacheSize),
		"PRAGMA foreign_keys=1",
		"PRAGMA temp_store=2",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}

	return db, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	// Add middleware
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(metricsMiddleware(newMetrics(s.registry)))

	// CORS middleware
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Unauthenticated endpoints
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(metricsHandler(s.registry)))

	s.router.POST("/register", s.register)
	s.router.POST("/login", s.login)
	authRoutes := s.router.Group("/auth")
	{
		authRoutes.POST("/verify", s.verifyEmail)
		authRoutes.POST("/resend-verification", s.resendVerification)
		authRoutes.POST("/forgot-password", s.forgotPassword)
		authRoutes.POST("/reset-password", s.resetPassword)
	}

	// Signed disk objects, authorized by the sig query parameter
	if s.disk != nil {
		s.router.PUT(storage.ObjectsPath+"*key", s.putObject)
		s.router.GET(storage.ObjectsPath+"*key", s.getObject)
	}

	// Authenticated routes (JWT required)
	api := s.router.Group("/")
	api.Use(JWTAuthMiddleware(s.db, s.tokens, s.logger))
	{
		api.GET("/albums/", s.listAlbums)
		api.POST("/albums/", s.createAlbum)
		api.PUT("/albums/:id", s.renameAlbum)
		api.DELETE("/albums/:id", s.deleteAlbum)
		api.GET("/albums/:id/cover", s.albumCover)

		api.GET("/photos/", s.listPhotos)
		api.POST("/photos/upload-url", s.createUploadURL)
		api.POST("/photos/:id/finalize", s.finalizePhoto)
		api.DELETE("/photos/:id", s.deletePhoto)

		api.GET("/users/me", s.getCurrentUser)
		api.PUT("/users/me", s.updateCurrentUser)
		api.DELETE("/users/me", s.deleteCurrentUser)
		api.PUT("/users/me/avatar", s.updateAvatar)
		api.PUT("/users/me/password", s.changePassword)

		api.GET("/stats/", s.getStats)
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// @Router /health [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"version":   s.version,
	})
}

// GetDB returns the database connection for use by workers
func (s *Server) GetDB() *gorm.DB {
	return s.db
}

// Handler returns the HTTP handler serving the API
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetPublicURL changes the address used in signed disk-object URLs
func (s *Server) SetPublicURL(url string) {
	if s.disk != nil {
		s.disk.SetBaseURL(url)
	}
}

// Close releases the task client and the database
func (s *Server) Close() error {
	if closer, ok := s.enqueuer.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Error closing Asynq client")
		}
	}

	// Close database connection to flush WAL writes
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Start starts the HTTP server and blocks until SIGINT or SIGTERM
func (s *Server) Start() error {
	port := ":" + s.config.Server.Port

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:    port,
		Handler: s.router,
		// Disk-backed uploads stream whole photos through PUT /objects
		ReadTimeout:       10 * time.Minute,
		WriteTimeout:      10 * time.Minute,
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       300 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Str("port", port).Str("storage", s.config.Storage.Backend).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")
	case err := <-errChan:
		s.logger.Error().Err(err).Msg("HTTP server error")
		s.Close()
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	if err := s.Close(); err != nil {
		s.logger.Error().Err(err).Msg("Error closing database")
	}
	s.logger.Info().Msg("Server shutdown complete")
	return nil
}

// Store returns the object store for use by workers
func (s *Server) Store() storage.Store {
	return s.store
}
