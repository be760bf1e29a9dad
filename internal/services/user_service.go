package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/ender-auth/internal/database"
	"github.com/isdelr/ender-auth/internal/models"
	"golang.org/x/crypto/bcrypt"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrUserNotFound is returned when no user matches a lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when creating a user with an email already on record.
	ErrEmailTaken = errors.New("email already registered")
)

// UserServiceProvider defines the interface for the user directory.
type UserServiceProvider interface {
	FindByEmail(ctx context.Context, email string, withPassword bool) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	Create(ctx context.Context, name, email, password string) (models.User, error)
	MatchPassword(user models.User, password string) bool
}

// UserService stores user records and owns password hashing.
type UserService struct {
	conn *database.Conn
	cost int
}

// NewUserService creates a new UserService.
func NewUserService(conn *database.Conn) *UserService {
	return &UserService{conn: conn, cost: bcrypt.DefaultCost}
}

// FindByID retrieves a single user by their ID. The password hash is never loaded.
func (s *UserService) FindByID(ctx context.Context, id string) (models.User, error) {
	db, err := s.conn.DB(ctx)
	if err != nil {
		return models.User{}, err
	}

	var user models.User
	row := db.QueryRowContext(ctx, "SELECT id, name, email, created_at FROM users WHERE id = ?", id)
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("find user %s: %w", id, s.conn.Observe(err))
	}
	return user, nil
}

// FindByEmail retrieves a single user by exact email. The password hash is
// only selected when withPassword is set.
func (s *UserService) FindByEmail(ctx context.Context, email string, withPassword bool) (models.User, error) {
	db, err := s.conn.DB(ctx)
	if err != nil {
		return models.User{}, err
	}

	var user models.User
	if withPassword {
		row := db.QueryRowContext(ctx, "SELECT id, name, email, password_hash, created_at FROM users WHERE email = ?", email)
		err = row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt)
	} else {
		row := db.QueryRowContext(ctx, "SELECT id, name, email, created_at FROM users WHERE email = ?", email)
		err = row.Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("find user by email: %w", s.conn.Observe(err))
	}
	return user, nil
}

// Create creates a new user, hashing their password.
func (s *UserService) Create(ctx context.Context, name, email, password string) (models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	db, err := s.conn.DB(ctx)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now().UTC(),
	}

	_, err = db.ExecContext(ctx,
		"INSERT INTO users(id, name, email, password_hash, created_at) VALUES(?, ?, ?, ?, ?)",
		user.ID, user.Name, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, fmt.Errorf("insert user: %w", s.conn.Observe(err))
	}

	// Return user without password hash
	user.PasswordHash = ""
	return user, nil
}

// MatchPassword reports whether password matches the stored hash of user.
// user must come from FindByEmail with withPassword set.
func (s *UserService) MatchPassword(user models.User, password string) bool {
	if user.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
