// Package identity signs users in against the local user table and keeps the
// session token that gates tracking.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sadopc/goaltrack/internal/clock"
	"github.com/sadopc/goaltrack/internal/domain"
	"github.com/sadopc/goaltrack/internal/store"
)

var validate = validator.New()

var (
	ErrInvalidCredentials = domain.NewError(domain.ErrCodeIdentity, "invalid email or password")
	ErrEmailTaken         = domain.NewError(domain.ErrCodeIdentity, "email already registered")
	ErrSessionExpired     = domain.NewError(domain.ErrCodeIdentity, "session expired")
)

// Backend is the slice of the store the service uses.
type Backend interface {
	CreateUser(ctx context.Context, email, username, passwordHash string) (*store.User, error)
	GetUser(ctx context.Context, id string) (*store.User, error)
	GetUserByEmail(ctx context.Context, email string) (*store.User, error)
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error
}

type Config struct {
	Secret string
	TTL    time.Duration
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost int
}

type Service struct {
	mu      sync.Mutex
	backend Backend
	cfg     Config
	clock   clock.Clock
	log     *zap.Logger

	user    *domain.User
	token   string
	expires time.Time

	subs    map[int]chan Event
	nextSub int
}

func New(b Backend, cfg Config, c clock.Clock, log *zap.Logger) (*Service, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("identity: secret not configured")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * 24 * time.Hour
	}
	if cfg.Cost == 0 {
		cfg.Cost = bcrypt.DefaultCost
	}
	if c == nil {
		c = clock.Real{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{backend: b, cfg: cfg, clock: c, log: log, subs: make(map[int]chan Event)}, nil
}

// EnsureSecret returns configured when set, otherwise the secret stored in
// settings, generating and storing one on first run.
func EnsureSecret(ctx context.Context, b Backend, configured string) (string, error) {
	if s := strings.TrimSpace(configured); s != "" {
		return s, nil
	}
	s, err := b.GetSetting(ctx, store.SettingAuthSecret)
	if err == nil && s != "" {
		return s, nil
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", err
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	s = hex.EncodeToString(buf)
	if err := b.SetSetting(ctx, store.SettingAuthSecret, s); err != nil {
		return "", err
	}
	return s, nil
}

func (s *Service) SignUp(ctx context.Context, c domain.Credentials) (*domain.User, error) {
	if err := validate.Struct(c); err != nil {
		return nil, domain.Validation(err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), s.cfg.Cost)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeIdentity, "hash password", err)
	}
	u, err := s.backend.CreateUser(ctx, c.Email, strings.TrimSpace(c.Username), string(hash))
	if errors.Is(err, store.ErrConflict) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		s.log.Error("create user", zap.Error(err))
		return nil, domain.WrapError(domain.ErrCodePersistence, "create user", err)
	}
	s.log.Info("user signed up", zap.String("user_id", u.ID))
	return s.startSession(ctx, toDomain(u))
}

func (s *Service) SignIn(ctx context.Context, c domain.Credentials) (*domain.User, error) {
	if err := validate.Struct(c); err != nil {
		return nil, domain.Validation(err)
	}
	u, err := s.backend.GetUserByEmail(ctx, c.Email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodePersistence, "load user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(c.Password)); err != nil {
		s.log.Warn("sign-in rejected", zap.String("email", u.Email))
		return nil, ErrInvalidCredentials
	}
	return s.startSession(ctx, toDomain(u))
}

// SignOut ends the session and forgets the stored token.
func (s *Service) SignOut(ctx context.Context) error {
	s.mu.Lock()
	had := s.user != nil
	s.user, s.token, s.expires = nil, "", time.Time{}
	s.mu.Unlock()

	err := s.backend.DeleteSetting(ctx, store.SettingSessionToken)
	if had {
		s.publish(Event{Kind: SignedOut})
	}
	return err
}

// CurrentUser returns the signed-in user or nil. An expired session is
// dropped and reported to subscribers.
func (s *Service) CurrentUser() *domain.User {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return nil
	}
	if !s.clock.Now().Before(s.expires) {
		s.user, s.token, s.expires = nil, "", time.Time{}
		s.mu.Unlock()
		s.publish(Event{Kind: Expired})
		return nil
	}
	u := *s.user
	s.mu.Unlock()
	return &u
}

// Token returns the current session token, empty when signed out.
func (s *Service) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Restore resumes the session saved by a previous run.
func (s *Service) Restore(ctx context.Context) (*domain.User, error) {
	token, err := s.backend.GetSetting(ctx, store.SettingSessionToken)
	if errors.Is(err, store.ErrNotFound) || token == "" {
		return nil, domain.ErrNotSignedIn
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodePersistence, "load session", err)
	}

	claims, err := s.parse(token)
	if err != nil {
		_ = s.backend.DeleteSetting(ctx, store.SettingSessionToken)
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, domain.WrapError(domain.ErrCodeIdentity, "invalid session", err)
	}
	u, err := s.backend.GetUser(ctx, claims.Subject)
	if err != nil {
		_ = s.backend.DeleteSetting(ctx, store.SettingSessionToken)
		return nil, domain.WrapError(domain.ErrCodeIdentity, "session user", err)
	}

	du := toDomain(u)
	s.mu.Lock()
	s.user, s.token, s.expires = du, token, claims.ExpiresAt.Time
	s.mu.Unlock()
	s.publish(Event{Kind: SignedIn, User: du})
	out := *du
	return &out, nil
}

// Refresh issues a new token for the current user.
func (s *Service) Refresh(ctx context.Context) error {
	u := s.CurrentUser()
	if u == nil {
		return domain.ErrNotSignedIn
	}
	token, expires, err := s.issue(u.ID)
	if err != nil {
		return err
	}
	if err := s.backend.SetSetting(ctx, store.SettingSessionToken, token); err != nil {
		return domain.WrapError(domain.ErrCodePersistence, "save session", err)
	}
	s.mu.Lock()
	s.token, s.expires = token, expires
	s.mu.Unlock()
	s.publish(Event{Kind: Refreshed, User: u})
	return nil
}

func (s *Service) startSession(ctx context.Context, u *domain.User) (*domain.User, error) {
	token, expires, err := s.issue(u.ID)
	if err != nil {
		return nil, err
	}
	if err := s.backend.SetSetting(ctx, store.SettingSessionToken, token); err != nil {
		s.log.Warn("save session token", zap.Error(err))
	}

	s.mu.Lock()
	s.user, s.token, s.expires = u, token, expires
	s.mu.Unlock()
	s.publish(Event{Kind: SignedIn, User: u})
	out := *u
	return &out, nil
}

func (s *Service) issue(userID string) (string, time.Time, error) {
	now := s.clock.Now()
	expires := now.Add(s.cfg.TTL)
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", time.Time{}, domain.WrapError(domain.ErrCodeIdentity, "sign token", err)
	}
	return token, expires, nil
}

func (s *Service) parse(token string) (*jwt.RegisteredClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	claims := &jwt.RegisteredClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(s.cfg.Secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("subject claim required")
	}
	return claims, nil
}

func toDomain(u *store.User) *domain.User {
	return &domain.User{ID: u.ID, Email: u.Email, Username: u.Username, CreatedAt: u.CreatedAt}
}
