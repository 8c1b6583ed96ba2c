package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/qinyuan/traffix/internal/auth"
	"github.com/qinyuan/traffix/internal/config"
	httpserver "github.com/qinyuan/traffix/internal/interfaces/http"
	"github.com/qinyuan/traffix/internal/provider"
	"github.com/qinyuan/traffix/internal/recognition"
	"github.com/qinyuan/traffix/internal/report"
	"github.com/qinyuan/traffix/internal/repository"
	"github.com/qinyuan/traffix/internal/review"
	"github.com/qinyuan/traffix/internal/storage"
	"github.com/qinyuan/traffix/internal/ticket"
	"github.com/qinyuan/traffix/pkg/database"
	"github.com/qinyuan/traffix/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	// Local development credentials; missing .env is fine.
	_ = gotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		return err
	}

	store, err := storage.NewImageStore(cfg.Upload.Dir, cfg.Upload.MaxImageSize, logger)
	if err != nil {
		return err
	}

	users := repository.NewUserRepository(db.DB, logger)
	reports := repository.NewReportRepository(db.DB, logger)
	recognitionRepo := repository.NewRecognitionRepository(db.DB, logger)
	reviews := repository.NewReviewRepository(db.DB, logger)
	tickets := repository.NewTicketRepository(db.DB, logger)

	visionProvider := provider.NewOpenAIProvider(provider.Config{
		BaseURL:     cfg.Model.BaseURL,
		APIKey:      cfg.Model.APIKey,
		Model:       cfg.Model.Name,
		MaxTokens:   cfg.Model.MaxTokens,
		Temperature: cfg.Model.Temperature,
		Timeout:     cfg.Model.Timeout,
	}, logger)
	recognizer := recognition.NewRecognizer(visionProvider, logger)
	engine := review.NewEngine(cfg.Review.ConfidenceThreshold)

	authManager := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authService := auth.NewService(users, authManager, logger)
	reportService := report.NewService(db, reports, recognitionRepo, reviews, tickets, recognizer, engine, store, logger)
	ticketService := ticket.NewService(db, tickets, reports, recognitionRepo, reviews, logger)

	handlers := httpserver.NewHandlers(authService, reportService, ticketService, recognizer, store.BaseDir(), logger)
	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, handlers, authManager, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.Start(ctx)
}
