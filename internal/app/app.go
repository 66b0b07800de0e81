package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"

	_ "taskdesk/docs"
	"taskdesk/internal/config"
	"taskdesk/internal/handlers"
	"taskdesk/internal/pdf"
	"taskdesk/internal/realtime"
	"taskdesk/internal/repositories"
	"taskdesk/internal/routes"
	"taskdesk/internal/services"
	"taskdesk/internal/storage"
)

func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		log.Printf("Ошибка закрытия БД: %v", err)
	}
}

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, cfg *config.Config) error {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB(db)

	if err := repositories.Migrate(ctx, db); err != nil {
		return err
	}
	log.Printf("[migrate][ok] %d statements applied", len(repositories.Migrations()))
	return nil
}

// RunResetSweep reopens completed recurring tasks and purges dead Telegram link codes.
// Meant to be run once a day by cron.
func RunResetSweep(ctx context.Context, cfg *config.Config) (services.ResetReport, error) {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return services.ResetReport{}, err
	}
	defer closeDB(db)

	sweep := services.NewResetService(
		repositories.NewTaskRepository(db),
		storage.NewLocalFiles(cfg.Files.RootDir),
	)
	report, err := sweep.RunDaily(ctx)

	// заодно чистим протухшие коды привязки Telegram
	if purged, perr := repositories.NewTelegramLinkRepository(db).PurgeExpired(ctx); perr != nil {
		log.Printf("[reset][links][err] %v", perr)
	} else {
		log.Printf("[reset][links][ok] purged=%d", purged)
	}
	return report, err
}

// Run starts the HTTP API and blocks until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config) error {
	// === DB ===
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB(db)

	// === Repos ===
	userRepo := repositories.NewUserRepository(db)
	companyRepo := repositories.NewCompanyRepository(db)
	taskRepo := repositories.NewTaskRepository(db)
	bonusRepo := repositories.NewBonusRepository(db)
	linkRepo := repositories.NewTelegramLinkRepository(db)

	// === Services ===
	authService := services.NewAuthService([]byte(cfg.Auth.JWTSecret), cfg.Auth.AccessTTL)
	emailService := services.NewEmailService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromEmail,
	)
	files := storage.NewLocalFiles(cfg.Files.RootDir)

	hub := realtime.NewHub()

	// Телеграм опционален: без токена уведомления идут только на почту
	tg := services.NewTelegramService(cfg.Telegram.BotToken)
	var notifier *services.AdminNotifier
	if tg != nil {
		notifier = services.NewAdminNotifier(userRepo, emailService, tg)
		if err := tg.SetWebhook(cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret); err != nil {
			log.Printf("[tg][setWebhook][err] %v", err)
		}
	} else {
		notifier = services.NewAdminNotifier(userRepo, emailService, nil)
	}
	notifier.WithLiveFeed(hub)

	userService := services.NewUserService(userRepo, companyRepo, emailService, authService)
	taskService := services.NewTaskService(taskRepo, userRepo, files, notifier)
	statementService := services.NewStatementService(userService, bonusRepo, taskRepo, pdf.NewStatementGenerator(cfg.Files.FontPath))

	// === Handlers ===
	clock := handlers.NewClock(cfg.Location())
	authHandler := handlers.NewAuthHandler(userService, authService)
	userHandler := handlers.NewUserHandler(userService, statementService)
	taskHandler := handlers.NewTaskHandler(taskService, clock)
	boardHandler := handlers.NewBoardHandler(hub)
	var integrationsHandler *handlers.IntegrationsHandler
	if tg != nil {
		integrationsHandler = handlers.NewIntegrationsHandler(tg, linkRepo, userRepo, taskService, clock).
			WithWebhookSecret(cfg.Telegram.WebhookSecret)
	}

	// === Gin ===
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	routes.SetupRoutes(router, []byte(cfg.Auth.JWTSecret),
		authHandler, userHandler, taskHandler, integrationsHandler, boardHandler)

	// === Run ===
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Сервер запущен на %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Printf("Остановка сервера...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
