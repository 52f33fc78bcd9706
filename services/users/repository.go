// Package users registers and looks up accounts.
package users

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"

	"job-tracker-backend/models/users"
	"job-tracker-backend/services/credentials"
)

var (
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrValidation         = errors.New("invalid registration")
)

// Durable runs a local mutation followed by a remote push.
type Durable interface {
	Write(ctx context.Context, fn func() error) error
}

type Repository struct {
	db      *gorm.DB
	durable Durable
}

func NewRepository(db *gorm.DB, durable Durable) *Repository {
	return &Repository{db: db, durable: durable}
}

// Register validates the credentials, hashes the password and creates the
// user. An existing username yields ErrDuplicateUsername and leaves the
// existing row untouched.
func (r *Repository) Register(ctx context.Context, username, password string) (*users.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.Mark(errors.New("username is required"), ErrValidation)
	}
	if password == "" {
		return nil, errors.Mark(errors.New("password is required"), ErrValidation)
	}

	hash, err := credentials.Hash(password)
	if err != nil {
		return nil, err
	}
	user := &users.User{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	err = r.durable.Write(ctx, func() error {
		var existing users.User
		err := r.db.WithContext(ctx).Where("username = ?", username).First(&existing).Error
		if err == nil {
			return errors.Wrapf(ErrDuplicateUsername, "%q", username)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.Wrap(err, "look up username")
		}
		if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
			if isUniqueViolation(err) {
				return errors.Wrapf(ErrDuplicateUsername, "%q", username)
			}
			return errors.Wrap(err, "create user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate returns the user when password matches. Unknown users and
// wrong passwords both yield ErrInvalidCredentials.
func (r *Repository) Authenticate(ctx context.Context, username, password string) (*users.User, error) {
	user, err := r.ByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil || !credentials.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// ChangePassword replaces the password of user id once current verifies.
// A wrong current password yields ErrInvalidCredentials.
func (r *Repository) ChangePassword(ctx context.Context, id uint, current, next string) error {
	if next == "" {
		return errors.Mark(errors.New("new password is required"), ErrValidation)
	}
	user, err := r.ByID(ctx, id)
	if err != nil {
		return err
	}
	if user == nil || !credentials.Verify(current, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	hash, err := credentials.Hash(next)
	if err != nil {
		return err
	}
	return r.durable.Write(ctx, func() error {
		err := r.db.WithContext(ctx).Model(&users.User{}).
			Where("id = ?", id).
			Update("password_hash", hash).Error
		return errors.Wrap(err, "update password")
	})
}

// ByUsername returns nil when no user matches.
func (r *Repository) ByUsername(ctx context.Context, username string) (*users.User, error) {
	var user users.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find user by username")
	}
	return &user, nil
}

// ByID returns nil when no user matches.
func (r *Repository) ByID(ctx context.Context, id uint) (*users.User, error) {
	var user users.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find user by id")
	}
	return &user, nil
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}
