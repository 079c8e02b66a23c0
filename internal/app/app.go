package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"dayplanner/internal/auth"
	"dayplanner/internal/config"
	"dayplanner/internal/handlers"
	"dayplanner/internal/logger"
	"dayplanner/internal/mailer"
	"dayplanner/internal/middleware"
	"dayplanner/internal/planner"
	accountpg "dayplanner/internal/repository/account/postgres"
	taskfile "dayplanner/internal/repository/task/file"
	taskpg "dayplanner/internal/repository/task/postgres"
	"dayplanner/internal/session"
	"dayplanner/internal/worker"
	"dayplanner/migrations"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

type App struct {
	config    *config.Config
	server    *http.Server
	router    *chi.Mux
	backend   planner.Backend
	health    healthChecker
	planners  *planner.Set
	sessions  *session.Manager
	sweeper   *worker.TokenSweeper
	shutdowns []func()
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

func (a *App) Init(ctx context.Context) error {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("App: flushing logs...")
		logger.Sync()
	})

	if err := runMigrations(a.config.Database.URL); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// Accounts always live in postgres; only the task backend is selectable.
	pgStorage, err := taskpg.New(ctx, a.config.Database.URL,
		a.config.Database.MaxConnections, a.config.Database.MinConnections)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	a.shutdowns = append(a.shutdowns, pgStorage.Close)

	accounts := accountpg.New(pgStorage.Pool())

	switch a.config.Storage.Backend {
	case "file":
		fileStorage, err := taskfile.New(a.config.Storage.File, a.config.Storage.DiscardCorrupt)
		if err != nil {
			return fmt.Errorf("opening task file %s: %w", a.config.Storage.File, err)
		}
		a.backend = fileStorage
		a.health = fileStorage
	default:
		a.backend = pgStorage
		a.health = pgStorage
	}

	tokens := auth.NewJWTManager(auth.JWTConfig{
		SecretKey:        a.config.Auth.JWTSecret,
		AccessDuration:   a.config.Auth.AccessDuration,
		RecoveryDuration: a.config.Auth.RecoveryDuration,
		Issuer:           "dayplanner",
	})
	hasher := auth.NewPasswordHasher(a.config.Auth.BcryptCost)

	var mail mailer.Mailer
	if a.config.Mail.Mode == "smtp" {
		mail = mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     a.config.Mail.Host,
			Port:     a.config.Mail.Port,
			Username: a.config.Mail.Username,
			Password: a.config.Mail.Password,
			From:     a.config.Mail.From,
		})
	} else {
		mail = mailer.NewLogMailer()
	}

	a.sessions = session.NewManager(accounts, hasher, tokens, mail, session.Config{
		LinkBaseURL: a.config.Auth.LinkBaseURL,
		LinkTTL:     a.config.Auth.LinkTTL,
	})
	a.shutdowns = append(a.shutdowns, a.sessions.Close)

	a.planners = planner.NewSet(a.backend)

	a.sweeper = worker.NewTokenSweeper(accounts,
		&a.config.Worker.SweepInterval, &a.config.Worker.SweepBatch)

	a.router = a.buildRouter(tokens)
	a.server = &http.Server{
		Addr:    a.config.GetServerAddr(),
		Handler: a.router,
	}

	return nil
}

func (a *App) buildRouter(tokens *auth.JWTManager) *chi.Mux {
	taskHandler := handlers.NewTaskHandler(a.planners)
	sessionHandler := handlers.NewSessionHandler(a.sessions, a.planners)

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.Timeout(a.config.Server.RequestTimeout))
	r.Use(middleware.RateLimit(a.config.Server.RateLimitPerMin))

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", sessionHandler.SignUp)
		r.Post("/signin", sessionHandler.SignIn)
		r.Post("/signin-link", sessionHandler.SendSignInLink)
		r.Post("/signin-link/redeem", sessionHandler.RedeemSignInLink)
		r.Post("/verify", sessionHandler.Verify)
		r.Post("/password-reset", sessionHandler.RequestPasswordReset)
		r.Post("/password-reset/redeem", sessionHandler.RedeemPasswordReset)
		r.Post("/password-reset/complete", sessionHandler.CompletePasswordReset)
		r.Get("/me", sessionHandler.Me)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokens))
			r.Post("/signout", sessionHandler.SignOut)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(tokens))

		r.Route("/api/tasks", func(r chi.Router) {
			r.Get("/", taskHandler.GetTasks)
			r.Post("/", taskHandler.PostTask)
			r.Get("/grouped", taskHandler.GetGrouped)
			r.Get("/remaining", taskHandler.GetRemaining)
			r.Delete("/completed", taskHandler.ClearCompleted)

			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", taskHandler.PutTask)
				r.Delete("/", taskHandler.DeleteTask)
				r.Post("/toggle", taskHandler.ToggleTask)
				r.Post("/move", taskHandler.MoveTask)
			})
		})

		r.Get("/api/week", taskHandler.GetWeek)
		r.Get("/api/view", taskHandler.GetView)
		r.Put("/api/view", taskHandler.PutView)
	})

	r.Get("/health", a.healthHandler)

	return r
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.health.HealthCheck(r.Context()); err != nil {
		logger.Error("App: health check failed", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unhealthy","service":"dayplanner"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok","service":"dayplanner"}`))
}

// Run blocks until ctx is cancelled, then shuts the server down and runs the
// registered shutdown hooks in reverse order.
func (a *App) Run(ctx context.Context) error {
	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	go a.sweeper.Start(workerCtx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("App: server started", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.runShutdowns()
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("App: shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("App: shutdown error", err)
	}

	a.runShutdowns()
	return nil
}

func (a *App) runShutdowns() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
}

// runMigrations brings the schema up to date from the embedded files. The
// migrate pgx driver wants its own URL scheme.
func runMigrations(databaseURL string) error {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("loading migration source: %w", err)
	}

	url := databaseURL
	if strings.HasPrefix(url, "postgres://") {
		url = "pgx5://" + strings.TrimPrefix(url, "postgres://")
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, url)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}
