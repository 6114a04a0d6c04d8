package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/meeting-scheduler/internal/calendar"
	"github.com/example/meeting-scheduler/internal/persistence"
)

// OAuthExchanger covers the identity half of the calendar provider: trading
// an authorization code for tokens and resolving who granted them.
type OAuthExchanger interface {
	ExchangeCode(ctx context.Context, code string) (calendar.Tokens, error)
	FetchUserInfo(ctx context.Context, accessToken string) (calendar.UserInfo, error)
}

// SessionStore captures the persistence interactions for issued sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, session persistence.Session) error
	GetSession(ctx context.Context, token string) (persistence.Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error)
}

// MemberCredentialStore resolves members by email and stores their calendar
// credentials.
type MemberCredentialStore interface {
	GetTeamMemberByEmail(ctx context.Context, email string) (persistence.TeamMember, error)
	UpdateCalendarCredential(ctx context.Context, id string, accessToken, refreshToken, calendarID string) error
}

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// AuthService completes the OAuth callback for team members, issues signed
// session tokens, and validates them on later requests.
type AuthService struct {
	oauth         OAuthExchanger
	members       MemberCredentialStore
	sessions      SessionStore
	jwtSecret     []byte
	sessionTTL    time.Duration
	allowedDomain string
	idGenerator   func() string
	now           func() time.Time
	logger        *slog.Logger
}

// NewAuthService wires dependencies for team authentication.
func NewAuthService(oauth OAuthExchanger, members MemberCredentialStore, sessions SessionStore, jwtSecret []byte, sessionTTL time.Duration, allowedDomain string, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = 7 * 24 * time.Hour
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		oauth:         oauth,
		members:       members,
		sessions:      sessions,
		jwtSecret:     jwtSecret,
		sessionTTL:    sessionTTL,
		allowedDomain: strings.TrimPrefix(strings.TrimSpace(allowedDomain), "@"),
		idGenerator:   idGenerator,
		now:           now,
		logger:        defaultLogger(logger),
	}
}

// HandleCallback finishes the OAuth flow: exchanges the code, verifies the
// account belongs to a known active team member (and the allowed domain, if
// configured), stores the calendar credential, and issues a session token.
func (s *AuthService) HandleCallback(ctx context.Context, code string) (AuthResult, error) {
	if s == nil || s.oauth == nil || s.members == nil || s.sessions == nil {
		return AuthResult{}, fmt.Errorf("auth dependencies not configured")
	}

	logger := serviceLogger(ctx, s.logger, "AuthService", "HandleCallback")

	if strings.TrimSpace(code) == "" {
		vErr := &ValidationError{}
		vErr.add("code", "authorization code is required")
		return AuthResult{}, vErr
	}

	tokens, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		logger.ErrorContext(ctx, "code exchange failed", "error", err)
		return AuthResult{}, err
	}

	info, err := s.oauth.FetchUserInfo(ctx, tokens.AccessToken)
	if err != nil {
		logger.ErrorContext(ctx, "user info lookup failed", "error", err)
		return AuthResult{}, err
	}

	email := strings.TrimSpace(strings.ToLower(info.Email))
	if email == "" {
		return AuthResult{}, ErrUnauthorized
	}
	if s.allowedDomain != "" && !strings.HasSuffix(email, "@"+s.allowedDomain) {
		logger.WarnContext(ctx, "login from outside allowed domain rejected", "email", email)
		return AuthResult{}, ErrUnauthorized
	}

	member, err := s.members.GetTeamMemberByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			logger.WarnContext(ctx, "login by unknown team member rejected", "email", email)
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, err
	}
	if !member.Active {
		return AuthResult{}, ErrUnauthorized
	}

	if err := s.members.UpdateCalendarCredential(ctx, member.ID, tokens.AccessToken, tokens.RefreshToken, "primary"); err != nil {
		return AuthResult{}, mapRepoError(err)
	}

	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.sessionTTL)

	token, err := s.signToken(member, issuedAt, expiresAt)
	if err != nil {
		return AuthResult{}, err
	}

	session := persistence.Session{
		ID:        s.idGenerator(),
		MemberID:  member.ID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: issuedAt,
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return AuthResult{}, err
	}

	logger.InfoContext(ctx, "team member authenticated", "member_id", member.ID)
	return AuthResult{Token: token, ExpiresAt: expiresAt, Member: member}, nil
}

// VerifySession validates a presented token: signature, expiry, and the
// backing session record. The session row is the revocation source of truth.
func (s *AuthService) VerifySession(ctx context.Context, token string) (Principal, error) {
	if s == nil || s.sessions == nil {
		return Principal{}, fmt.Errorf("auth dependencies not configured")
	}
	if strings.TrimSpace(token) == "" {
		return Principal{}, ErrUnauthorized
	}

	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, ErrSessionExpired
		}
		return Principal{}, ErrUnauthorized
	}
	if !parsed.Valid || claims.Subject == "" {
		return Principal{}, ErrUnauthorized
	}

	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Principal{}, ErrUnauthorized
		}
		return Principal{}, err
	}
	if !session.ExpiresAt.After(s.now()) {
		return Principal{}, ErrSessionExpired
	}

	return Principal{MemberID: claims.Subject, Email: claims.Email}, nil
}

// SweepExpiredSessions removes sessions past their expiry. Intended to run
// periodically.
func (s *AuthService) SweepExpiredSessions(ctx context.Context) error {
	if s == nil || s.sessions == nil {
		return fmt.Errorf("auth dependencies not configured")
	}

	logger := serviceLogger(ctx, s.logger, "AuthService", "SweepExpiredSessions")

	removed, err := s.sessions.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		logger.ErrorContext(ctx, "session sweep failed", "error", err)
		return err
	}
	if removed > 0 {
		logger.InfoContext(ctx, "expired sessions removed", "count", removed)
	}
	return nil
}

func (s *AuthService) signToken(member persistence.TeamMember, issuedAt, expiresAt time.Time) (string, error) {
	claims := sessionClaims{
		Email: member.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   member.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}
