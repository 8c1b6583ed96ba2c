// Command seed-admin creates or reports an admin account. Run once
// after first deployment; registration over HTTP only creates public
// accounts.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/qinyuan/traffix/internal/auth"
	"github.com/qinyuan/traffix/internal/config"
	"github.com/qinyuan/traffix/internal/models"
	"github.com/qinyuan/traffix/internal/repository"
	"github.com/qinyuan/traffix/pkg/database"
	"github.com/qinyuan/traffix/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	username := flag.String("username", "admin", "admin username")
	phone := flag.String("phone", "", "admin phone number")
	password := flag.String("password", "", "admin password")
	flag.Parse()

	_ = gotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{Level: "info", OutputPath: "stdout", Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger, *username, *phone, *password); err != nil {
		logger.Fatal("Seeding failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger, username, phone, password string) error {
	if err := utils.ValidateUsername(username); err != nil {
		return err
	}
	if err := utils.ValidatePhone(phone); err != nil {
		return err
	}
	if err := utils.ValidatePassword(password); err != nil {
		return err
	}

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

	users := repository.NewUserRepository(db.DB, logger)

	existing, err := users.GetByUsername(username)
	if err != nil {
		return err
	}
	if existing != nil {
		logger.Info("Admin account already exists",
			zap.String("username", username),
			zap.String("role", existing.Role))
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	admin := &models.User{
		Username:     username,
		Phone:        phone,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	}
	if err := users.Create(nil, admin); err != nil {
		return err
	}

	logger.Info("Admin account created",
		zap.Int64("user_id", admin.ID),
		zap.String("username", username))
	return nil
}
