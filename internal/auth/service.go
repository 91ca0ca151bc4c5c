// Package auth owns credential storage and the token handshake. The rest
// of the system consumes it as a "verify token, get identity" call.
package auth

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"parley/internal/domain"
	"parley/internal/storage"
)

const minPasswordLen = 6

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
)

type Service struct {
	users  *storage.UserRepository
	tokens *TokenManager
}

func NewService(users *storage.UserRepository, tokens *TokenManager) *Service {
	return &Service{users: users, tokens: tokens}
}

// Register creates a user and returns it with a fresh access token.
func (s *Service) Register(ctx context.Context, username, password string) (*domain.User, string, error) {
	if len(password) < minPasswordLen {
		return nil, "", ErrPasswordTooShort
	}
	user, err := domain.NewUser(username)
	if err != nil {
		return nil, "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}
	user.PasswordHash = string(hash)
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}
	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, "", err
	}
	log.Info().Str("module", "auth").Str("user", string(user.ID)).Msg("registered")
	return user, token, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (*domain.User, string, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Identify resolves a handshake token to an identity. The user must still
// exist; a valid token for a deleted account is rejected.
func (s *Service) Identify(ctx context.Context, token string) (domain.Identity, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return domain.Identity{}, err
	}
	user, err := s.users.FindByID(ctx, domain.UserID(claims.UserID))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.Identity{}, ErrInvalidToken
		}
		return domain.Identity{}, err
	}
	return domain.Identity{UserID: user.ID, Username: user.Username}, nil
}
