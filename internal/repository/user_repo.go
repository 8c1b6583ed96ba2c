package repository

import (
	"database/sql"
	"fmt"

	"github.com/qinyuan/traffix/internal/models"
	"go.uber.org/zap"
)

// UserRepository handles user account database operations
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new user
func (r *UserRepository) Create(tx *sql.Tx, user *models.User) error {
	query := `
		INSERT INTO users (username, phone, password_hash, role, real_name)
		VALUES (?, ?, ?, ?, ?)
	`

	var result sql.Result
	var err error

	if tx != nil {
		result, err = tx.Exec(query, user.Username, user.Phone, user.PasswordHash, user.Role, user.RealName)
	} else {
		result, err = r.db.Exec(query, user.Username, user.Phone, user.PasswordHash, user.Role, user.RealName)
	}

	if err != nil {
		r.logger.Error("Failed to create user", zap.String("username", user.Username), zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	user.ID = id
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(id int64) (*models.User, error) {
	return r.getOne("id = ?", id)
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(username string) (*models.User, error) {
	return r.getOne("username = ?", username)
}

// GetByPhone retrieves a user by phone number
func (r *UserRepository) GetByPhone(phone string) (*models.User, error) {
	return r.getOne("phone = ?", phone)
}

func (r *UserRepository) getOne(where string, arg interface{}) (*models.User, error) {
	query := `
		SELECT id, username, phone, password_hash, role, real_name, created_at, updated_at
		FROM users
		WHERE ` + where

	var user models.User
	var realName sql.NullString

	err := r.db.QueryRow(query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Phone,
		&user.PasswordHash,
		&user.Role,
		&realName,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.RealName = realName.String
	return &user, nil
}
