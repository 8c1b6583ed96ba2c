package auth

import (
	"fmt"

	"github.com/qinyuan/traffix/internal/models"
	"github.com/qinyuan/traffix/internal/repository"
	"github.com/qinyuan/traffix/pkg/utils"
	"go.uber.org/zap"
)

// RegisterInput carries a new account request.
type RegisterInput struct {
	Username string
	Phone    string
	Password string
	RealName string
}

// Service handles account registration and login
type Service struct {
	users   *repository.UserRepository
	manager *Manager
	logger  *zap.Logger
}

// NewService creates an auth service
func NewService(users *repository.UserRepository, manager *Manager, logger *zap.Logger) *Service {
	return &Service{
		users:   users,
		manager: manager,
		logger:  logger,
	}
}

// Register creates a public user account
func (s *Service) Register(in RegisterInput) (*models.User, error) {
	if err := utils.ValidateUsername(in.Username); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	if err := utils.ValidatePhone(in.Phone); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	if err := utils.ValidatePassword(in.Password); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	if existing, err := s.users.GetByUsername(in.Username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, fmt.Errorf("%w: username %q is taken", models.ErrConflict, in.Username)
	}
	if existing, err := s.users.GetByPhone(in.Phone); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, fmt.Errorf("%w: phone number is already registered", models.ErrConflict)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     in.Username,
		Phone:        in.Phone,
		PasswordHash: hash,
		Role:         models.RolePublic,
		RealName:     utils.SanitizeString(in.RealName),
	}
	if err := s.users.Create(nil, user); err != nil {
		return nil, err
	}

	s.logger.Info("User registered",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.Username))
	return user, nil
}

// Login verifies credentials and issues a token
func (s *Service) Login(username, password string) (*models.User, string, error) {
	user, err := s.users.GetByUsername(username)
	if err != nil {
		return nil, "", err
	}
	if user == nil || !CheckPassword(password, user.PasswordHash) {
		// One error for both cases, so login probing can not tell
		// accounts apart from wrong passwords.
		return nil, "", fmt.Errorf("%w: invalid username or password", models.ErrValidation)
	}

	token, err := s.manager.IssueToken(user.ID, user.Role)
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("User logged in", zap.Int64("user_id", user.ID))
	return user, token, nil
}

// GetUser retrieves a user by ID
func (s *Service) GetUser(userID int64) (*models.User, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %d", models.ErrNotFound, userID)
	}
	return user, nil
}
