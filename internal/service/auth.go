package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/roadblock/internal/models"
	"github.com/Skotchmaster/roadblock/internal/mykafka"
	"github.com/Skotchmaster/roadblock/internal/repo"
	pkg_hash "github.com/Skotchmaster/roadblock/pkg/hash"
	"github.com/Skotchmaster/roadblock/pkg/logging"
)

type AuthService struct {
	Repo   *repo.GormRepo
	Events EventPublisher
}

func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func (s *AuthService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := s.Repo.GetUserByUsername(ctx, NormalizeUsername(username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *AuthService) FindByID(ctx context.Context, id uint) (*models.User, error) {
	u, err := s.Repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

// Create stores a new user. The existence check gives the common case a clean
// error; the unique index catches concurrent signups that pass it.
func (s *AuthService) Create(ctx context.Context, username, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.create")
	username = NormalizeUsername(username)

	if _, err := s.FindByUsername(ctx, username); err == nil {
		l.Warn("create_user_failed", "status", 409, "reason", "username taken")
		return nil, ErrDuplicateUsername
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	pwHash, err := pkg_hash.HashPassword(password)
	if err != nil {
		l.Error("create_user_failed", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{Username: username, PasswordHash: pwHash}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUniqueViolation) {
			l.Warn("create_user_failed", "status", 409, "reason", "username taken concurrently")
			return nil, ErrDuplicateUsername
		}
		return nil, err
	}

	publish(ctx, s.Events, mykafka.TopicUsers, Event{Type: EventUserCreated, UserID: user.ID})
	return user, nil
}

// Verify returns (nil, nil) for an unknown user and for a wrong password, and
// spends one bcrypt comparison in both cases.
func (s *AuthService) Verify(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			pkg_hash.BurnCompare(password)
			return nil, nil
		}
		return nil, err
	}
	if !pkg_hash.CheckPassword(user.PasswordHash, password) {
		return nil, nil
	}
	return user, nil
}

func (s *AuthService) UpdatePassword(ctx context.Context, userID uint, currentPassword, newPassword string) error {
	l := logging.FromContext(ctx).With("svc", "auth.update_password", "user_id", userID)

	user, err := s.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !pkg_hash.CheckPassword(user.PasswordHash, currentPassword) {
		l.Warn("update_password_failed", "status", 400, "reason", "current password mismatch")
		return ErrIncorrectPassword
	}

	pwHash, err := pkg_hash.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.Repo.UpdatePasswordHash(ctx, userID, pwHash); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	publish(ctx, s.Events, mykafka.TopicUsers, Event{Type: EventPasswordChanged, UserID: userID})
	return nil
}

func (s *AuthService) UpdateUsername(ctx context.Context, userID uint, newUsername string) (*models.User, error) {
	newUsername = NormalizeUsername(newUsername)

	existing, err := s.FindByUsername(ctx, newUsername)
	switch {
	case err == nil && existing.ID != userID:
		return nil, ErrDuplicateUsername
	case err != nil && !errors.Is(err, ErrNotFound):
		return nil, err
	}

	if err := s.Repo.UpdateUsername(ctx, userID, newUsername); err != nil {
		switch {
		case errors.Is(err, repo.ErrUniqueViolation):
			return nil, ErrDuplicateUsername
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrNotFound
		}
		return nil, err
	}

	publish(ctx, s.Events, mykafka.TopicUsers, Event{Type: EventUsernameChanged, UserID: userID})
	return s.FindByID(ctx, userID)
}

func (s *AuthService) DeleteByUsername(ctx context.Context, username string) error {
	if err := s.Repo.DeleteUserByUsername(ctx, NormalizeUsername(username)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
