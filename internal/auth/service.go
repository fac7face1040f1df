package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ErrEmailTaken indicates a registration collided with an existing account.
var ErrEmailTaken = eris.New("email already registered")

// ErrInvalidCredentials covers unknown emails and wrong passwords alike, so
// login failures don't reveal which half was wrong.
var ErrInvalidCredentials = eris.New("invalid email or password")

// Service manages accounts and sessions. The session lifecycle is explicit:
// a session exists from Login until SignOut or expiry, never longer.
type Service struct {
	db         *gorm.DB
	logger     *logrus.Logger
	sessionTTL time.Duration
	now        func() time.Time
}

// NewService constructs the auth service.
func NewService(db *gorm.DB, sessionTTL time.Duration, logger *logrus.Logger) (*Service, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}
	if sessionTTL <= 0 {
		return nil, eris.New("session TTL must be positive")
	}

	return &Service{db: db, logger: logger, sessionTTL: sessionTTL, now: time.Now}, nil
}

// Register creates an account. The admin flag is only settable through this
// call path (the create-admin command); the public form always passes false.
func (s *Service) Register(ctx context.Context, email, password string, isAdmin bool) (*User, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" || !strings.Contains(normalized, "@") {
		return nil, eris.New("a valid email address is required")
	}
	if len(password) < 8 {
		return nil, eris.New("password must be at least 8 characters")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&User{}).Where("email = ?", normalized).Count(&count).Error; err != nil {
		s.logError(logrus.Fields{"email": normalized}, err, "checking existing account")
		return nil, eris.Wrap(err, "checking existing account")
	}
	if count > 0 {
		return nil, eris.Wrapf(ErrEmailTaken, "registering %s", normalized)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, eris.Wrap(err, "hashing password")
	}

	user := &User{
		ID:           uuid.NewString(),
		Email:        normalized,
		PasswordHash: string(hash),
		IsAdmin:      isAdmin,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		s.logError(logrus.Fields{"email": normalized}, err, "creating account")
		return nil, eris.Wrapf(err, "creating account: %s", normalized)
	}

	return user, nil
}

// Login verifies credentials and opens a session, returning its token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))

	var user User
	err := s.db.WithContext(ctx).First(&user, "email = ?", normalized).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return "", eris.Wrapf(ErrInvalidCredentials, "logging in %s", normalized)
		}
		s.logError(logrus.Fields{"email": normalized}, err, "fetching account for login")
		return "", eris.Wrap(err, "fetching account for login")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", eris.Wrapf(ErrInvalidCredentials, "logging in %s", normalized)
	}

	session := &Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.sessionTTL),
	}

	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		s.logError(logrus.Fields{"user_id": user.ID}, err, "creating session")
		return "", eris.Wrap(err, "creating session")
	}

	return session.Token, nil
}

// SignOut tears down the session. Unknown tokens are a no-op.
func (s *Service) SignOut(ctx context.Context, token string) error {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil
	}

	if err := s.db.WithContext(ctx).Delete(&Session{}, "token = ?", trimmed).Error; err != nil {
		s.logError(nil, err, "deleting session")
		return eris.Wrap(err, "deleting session")
	}

	return nil
}

// IdentityFromToken resolves the session token to an identity, or nil when
// the token is unknown or expired. Expired sessions are reaped on sight.
func (s *Service) IdentityFromToken(ctx context.Context, token string) (*Identity, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, nil
	}

	var session Session
	err := s.db.WithContext(ctx).First(&session, "token = ?", trimmed).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		s.logError(nil, err, "fetching session")
		return nil, eris.Wrap(err, "fetching session")
	}

	if s.now().After(session.ExpiresAt) {
		if err := s.db.WithContext(ctx).Delete(&Session{}, "token = ?", trimmed).Error; err != nil {
			s.logError(nil, err, "reaping expired session")
		}
		return nil, nil
	}

	var user User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", session.UserID).Error; err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		s.logError(logrus.Fields{"user_id": session.UserID}, err, "fetching session account")
		return nil, eris.Wrap(err, "fetching session account")
	}

	return &Identity{UserID: user.ID, Email: user.Email, IsAdmin: user.IsAdmin}, nil
}

func (s *Service) logError(fields logrus.Fields, err error, message string) {
	if s.logger == nil {
		return
	}

	entry := s.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
