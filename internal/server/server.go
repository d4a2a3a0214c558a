// Package server is the composition root: it wires the database, object
// store, services, and handlers together and owns the HTTP lifecycle.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mcastellanos/recuerdos/internal/auth"
	"github.com/mcastellanos/recuerdos/internal/config"
	"github.com/mcastellanos/recuerdos/internal/handler"
	"github.com/mcastellanos/recuerdos/internal/images"
	"github.com/mcastellanos/recuerdos/internal/middleware"
	sqliteRepo "github.com/mcastellanos/recuerdos/internal/repository/sqlite"
	"github.com/mcastellanos/recuerdos/internal/service"
	"github.com/mcastellanos/recuerdos/internal/storage"
	"github.com/mcastellanos/recuerdos/internal/storage/local"
)

// Server owns the router, the database connection, and the object store.
// The database is closed during graceful shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the dependency chain: DB and store first, then services on
// the repository interfaces, then handlers on the services, then routes.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	store, err := local.New(cfg.StoragePath, cfg.StorageBucket, cfg.StorageBaseURL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening object store: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiration)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	s.setupRoutes(store, tokens)

	return s, nil
}

func (s *Server) setupRoutes(store *local.Store, tokens *auth.TokenService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	passwords := auth.NewPasswordService()

	authService := service.NewAuthService(s.db, passwords, tokens, service.AdminFallback{
		Email:        s.config.AdminEmail,
		Username:     s.config.AdminUsername,
		Password:     s.config.AdminPassword,
		PasswordHash: s.config.AdminPasswordHash,
	}, s.logger)
	uploadService := service.NewUploadService(
		images.NewNormalizer(s.logger),
		storage.NewUploader(store, s.logger),
		s.db,
		s.logger,
	)
	photoService := service.NewPhotoService(s.db, store, s.logger)
	letterService := service.NewLetterService(s.db, s.db, s.logger)
	albumService := service.NewAlbumService(s.db, s.db, s.logger)
	userService := service.NewUserService(s.db, passwords, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	uploadHandler := handler.NewUploadHandler(uploadService, s.logger)
	photoHandler := handler.NewPhotoHandler(photoService, s.logger)
	letterHandler := handler.NewLetterHandler(letterService, s.logger)
	albumHandler := handler.NewAlbumHandler(albumService, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)

	// The local object store doubles as the public CDN in development:
	// stored keys are served back with the same long-lived cache header a
	// real bucket would attach.
	fileServer := http.FileServer(http.Dir(store.BasePath()))
	s.router.With(cacheForever).Handle(
		"/storage/"+s.config.StorageBucket+"/*",
		http.StripPrefix("/storage/"+s.config.StorageBucket+"/", fileServer),
	)

	requireAuth := auth.RequireAuth(tokens)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", handleHealth)
		r.Post("/auth/login", authHandler.HandleLogin)

		r.Get("/photos", photoHandler.HandleList)
		r.Get("/photos/{id}/download", photoHandler.HandleDownload)
		r.Patch("/photos/{id}", photoHandler.HandleUpdate)
		r.Delete("/photos/{id}", photoHandler.HandleDelete)
		r.Post("/photos/batch-delete", photoHandler.HandleBatchDelete)

		r.Get("/letters", letterHandler.HandleList)

		r.Get("/albums", albumHandler.HandleList)
		r.Get("/albums/{id}", albumHandler.HandleGet)
		r.Post("/albums", albumHandler.HandleCreate)
		r.Patch("/albums/{id}", albumHandler.HandleUpdate)
		r.Delete("/albums/{id}", albumHandler.HandleDelete)
		r.Post("/albums/add-photo", albumHandler.HandleAddPhoto)
		r.Post("/albums/remove-photo", albumHandler.HandleRemovePhoto)

		// Authenticated routes.
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Post("/upload/images", uploadHandler.HandleUpload)

			r.Post("/letters", letterHandler.HandleCreate)
			r.Patch("/letters/{id}", letterHandler.HandleUpdate)
			r.Delete("/letters/{id}", letterHandler.HandleDelete)
			r.Post("/letters/{id}/react", letterHandler.HandleReact)

			r.Get("/users", userHandler.HandleList)
			r.Get("/users/{id}", userHandler.HandleGet)
			r.With(auth.RequireSuperAdmin()).Post("/users", userHandler.HandleCreate)
		})
	})
}

// Start runs the HTTP server until a shutdown signal arrives, then drains
// in-flight requests and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
			slog.String("storage", s.config.StoragePath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// Handler exposes the router for httptest-based tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the server's resources without running the serve loop.
func (s *Server) Close() error {
	return s.db.Close()
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// cacheForever mirrors the cache policy the uploader attaches to stored
// objects. Keys are random, so nothing served here ever changes.
func cacheForever(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=31536000")
		next.ServeHTTP(w, r)
	})
}
