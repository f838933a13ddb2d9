package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/dropDatabas3/collabsql/internal/domain"
	"github.com/dropDatabas3/collabsql/internal/observability/logger"
	"github.com/dropDatabas3/collabsql/internal/store"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Errores de registro/login.
var (
	ErrMissingFields      = errors.New("missing required fields")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email or username already in use")
)

// Service cubre el alta y login por password. El resultado que el resto
// del core consume es siempre la Identity más su token firmado.
type Service struct {
	users  store.UserStore
	tokens *TokenService
}

func NewService(users store.UserStore, tokens *TokenService) *Service {
	return &Service{users: users, tokens: tokens}
}

// Result es la respuesta de Register/Login.
type Result struct {
	Identity domain.Identity
	Token    string
}

func (s *Service) Register(ctx context.Context, email, username, password string) (*Result, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth"),
		logger.Op("Register"),
	)

	email = strings.TrimSpace(strings.ToLower(email))
	username = strings.TrimSpace(username)
	if email == "" || username == "" || password == "" {
		return nil, ErrMissingFields
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		Status:       "active",
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	id := domain.Identity{ID: u.ID, Email: u.Email, Username: u.Username}
	token, err := s.tokens.Sign(id)
	if err != nil {
		return nil, err
	}

	log.Info("user registered", logger.UserID(u.ID))
	return &Result{Identity: id, Token: token}, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth"),
		logger.Op("Login"),
	)

	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		// Mismo error que password incorrecto: no filtrar existencia.
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if u.Status != "active" {
		return nil, ErrUserDisabled
	}

	id := domain.Identity{ID: u.ID, Email: u.Email, Username: u.Username}
	token, err := s.tokens.Sign(id)
	if err != nil {
		return nil, err
	}

	log.Debug("login ok", logger.UserID(u.ID))
	return &Result{Identity: id, Token: token}, nil
}
