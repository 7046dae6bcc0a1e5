package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/blockbattle/internal/dependencies/clock"
	"github.com/mcoot/blockbattle/internal/dependencies/random"
	"github.com/mcoot/blockbattle/internal/model"
	"github.com/mcoot/blockbattle/internal/storage"
)

// MaxNicknameLength is the longest nickname accepted, in runes
const MaxNicknameLength = 20

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidNickname    = fmt.Errorf("nickname must be 1-%d characters", MaxNicknameLength)
)

// Session represents an authenticated session
type Session struct {
	Token     string
	PlayerID  model.PlayerID
	Player    model.Player
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Service handles identity and session management
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	sessionDuration time.Duration
	passwordCost    int
}

// Config holds configuration for the auth service
type Config struct {
	SessionDuration time.Duration
	PasswordCost    int
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		SessionDuration: 24 * time.Hour,
		PasswordCost:    bcrypt.DefaultCost,
	}
}

// New creates a new auth Service
func New(storage storage.Storage, clock clock.Clock, random random.Random, logger *slog.Logger, cfg Config) *Service {
	defaults := DefaultConfig()
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = defaults.SessionDuration
	}
	if cfg.PasswordCost == 0 {
		cfg.PasswordCost = defaults.PasswordCost
	}
	return &Service{
		storage:         storage,
		clock:           clock,
		random:          random,
		logger:          logger.With(slog.String("component", "auth")),
		sessions:        make(map[string]*Session),
		sessionDuration: cfg.SessionDuration,
		passwordCost:    cfg.PasswordCost,
	}
}

// NormalizeNickname trims a nickname and checks its length
func NormalizeNickname(nickname string) (string, error) {
	nickname = strings.TrimSpace(nickname)
	n := utf8.RuneCountInString(nickname)
	if n == 0 || n > MaxNicknameLength {
		return "", ErrInvalidNickname
	}
	return nickname, nil
}

// CreateGuestPlayer creates an anonymous player and session
func (s *Service) CreateGuestPlayer(ctx context.Context, nickname string) (*Session, error) {
	nickname, err := NormalizeNickname(nickname)
	if err != nil {
		return nil, err
	}

	player := &model.Player{
		ID:        model.PlayerID(s.random.UUID()),
		Nickname:  nickname,
		IsGuest:   true,
		CreatedAt: s.clock.Now(),
	}

	if err := s.storage.SavePlayer(ctx, player); err != nil {
		return nil, fmt.Errorf("save guest player: %w", err)
	}

	s.logger.Info("guest player created",
		slog.String("player_id", string(player.ID)),
		slog.String("nickname", player.Nickname),
	)
	return s.createSession(player), nil
}

// RegisterPlayer creates a registered player account and session
func (s *Service) RegisterPlayer(ctx context.Context, username, password, nickname string) (*Session, error) {
	nickname, err := NormalizeNickname(nickname)
	if err != nil {
		return nil, err
	}

	_, err = s.storage.GetRegisteredPlayerByUsername(ctx, username)
	if err == nil {
		return nil, ErrUsernameExists
	}
	if !errors.Is(err, model.ErrPlayerNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.passwordCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock.Now()
	player := &model.Player{
		ID:        model.PlayerID(s.random.UUID()),
		Nickname:  nickname,
		IsGuest:   false,
		CreatedAt: now,
	}

	registeredPlayer := &model.RegisteredPlayer{
		PlayerID:     player.ID,
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.SavePlayer(ctx, player); err != nil {
		return nil, fmt.Errorf("save player: %w", err)
	}

	if err := s.storage.SaveRegisteredPlayer(ctx, registeredPlayer); err != nil {
		return nil, fmt.Errorf("save registration: %w", err)
	}

	s.logger.Info("player registered",
		slog.String("player_id", string(player.ID)),
		slog.String("username", username),
	)
	return s.createSession(player), nil
}

// Login authenticates a registered player and creates a session
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	rp, err := s.storage.GetRegisteredPlayerByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrPlayerNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(rp.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn("login failed", slog.String("username", username))
		return nil, ErrInvalidCredentials
	}

	player, err := s.storage.GetPlayer(ctx, rp.PlayerID)
	if err != nil {
		return nil, err
	}

	return s.createSession(player), nil
}

// ValidateSession checks if a session token is valid and returns the session
func (s *Service) ValidateSession(token string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidSession
	}

	if s.clock.Now().After(session.ExpiresAt) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return nil, ErrInvalidSession
	}

	return session, nil
}

// InvalidateSession removes a session
func (s *Service) InvalidateSession(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// GetPlayer returns the player for a session token
func (s *Service) GetPlayer(token string) (*model.Player, error) {
	session, err := s.ValidateSession(token)
	if err != nil {
		return nil, err
	}
	return &session.Player, nil
}

func (s *Service) createSession(player *model.Player) *Session {
	now := s.clock.Now()

	session := &Session{
		Token:     "sess_" + s.random.UUID(),
		PlayerID:  player.ID,
		Player:    *player,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionDuration),
	}

	s.mu.Lock()
	s.sessions[session.Token] = session
	s.mu.Unlock()

	return session
}

// CleanExpiredSessions removes expired sessions and returns how many were dropped
func (s *Service) CleanExpiredSessions() int {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}

// RunCleanup drops expired sessions every interval until ctx is done
func (s *Service) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.CleanExpiredSessions(); n > 0 {
				s.logger.Debug("expired sessions removed", slog.Int("count", n))
			}
		}
	}
}
