package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"venue_pos_backend/internal/models"
)

// UserRepository defines the interface for staff account persistence.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User, hashedPassword string) (int64, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, string, error) // Returns User, HashedPassword, Error
	FindUserByID(ctx context.Context, userID int64) (*models.User, error)
	CountUsers(ctx context.Context) (int64, error)
}

type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

// CreateUser inserts a new active user. Username uniqueness is enforced by the table.
func (r *userRepository) CreateUser(ctx context.Context, user *models.User, hashedPassword string) (int64, error) {
	now := time.Now()
	user.IsActive = true
	err := executor(ctx, r.db).QueryRowContext(ctx,
		`INSERT INTO users (username, password_hash, full_name, role, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6) RETURNING id`,
		user.Username, hashedPassword, user.FullName, user.Role, user.IsActive, now,
	).Scan(&user.ID)
	if err != nil {
		return 0, mapPQError(err, fmt.Sprintf("creating user '%s'", user.Username))
	}
	user.CreatedAt, user.UpdatedAt = now, now
	return user.ID, nil
}

const userColumns = `id, username, password_hash, full_name, role, is_active, created_at, updated_at`

func (r *userRepository) findOne(ctx context.Context, where string, arg interface{}) (*models.User, string, error) {
	user := &models.User{}
	var hashedPassword string
	err := executor(ctx, r.db).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg).Scan(
		&user.ID, &user.Username, &hashedPassword, &user.FullName, &user.Role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("%w: finding user: %v", ErrDatabaseError, err)
	}
	return user, hashedPassword, nil
}

// FindUserByUsername retrieves a user and their hashed password.
func (r *userRepository) FindUserByUsername(ctx context.Context, username string) (*models.User, string, error) {
	return r.findOne(ctx, "username = $1", username)
}

// FindUserByID retrieves a user profile. The password hash is never populated here.
func (r *userRepository) FindUserByID(ctx context.Context, userID int64) (*models.User, error) {
	user, _, err := r.findOne(ctx, "id = $1", userID)
	return user, err
}

func (r *userRepository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := executor(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: counting users: %v", ErrDatabaseError, err)
	}
	return count, nil
}
