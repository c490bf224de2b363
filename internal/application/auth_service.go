package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/example/volunteer-scheduler/internal/access"
)

// FallbackUserID identifies sessions issued from the fallback credential set.
const FallbackUserID int64 = 0

// FallbackCredentials is the identity accepted when the store cannot be reached.
// An empty PasswordHash disables it.
type FallbackCredentials struct {
	Username     string
	PasswordHash string
}

func (f FallbackCredentials) enabled() bool {
	return strings.TrimSpace(f.Username) != "" && f.PasswordHash != ""
}

func (f FallbackCredentials) matches(username string) bool {
	return f.enabled() && strings.EqualFold(strings.TrimSpace(username), strings.TrimSpace(f.Username))
}

func (f FallbackCredentials) credentials() UserCredentials {
	return UserCredentials{
		User: User{
			ID:            FallbackUserID,
			Username:      strings.TrimSpace(f.Username),
			Level:         access.RoleAdministrator,
			DepartmentIDs: []int64{},
		},
		PasswordHash: f.PasswordHash,
	}
}

// AuthConfig tunes the session gateway.
type AuthConfig struct {
	Secret           []byte
	SessionTTL       time.Duration
	IdentityCacheTTL time.Duration
	Fallback         FallbackCredentials
	MaxFailures      int
	FailureWindow    time.Duration
}

// AuthService signs users in and resolves session tokens into principals.
// Identities are resolved through an in-memory cache, then the store, then
// the fallback credential set when the store is unreachable.
type AuthService struct {
	users       UserRepository
	links       DepartmentLinks
	sessions    SessionRepository
	hasher      PasswordHasher
	idGenerator func() string
	now         func() time.Time
	config      AuthConfig
	logger      *slog.Logger

	userCache    *ttlCache[string, UserCredentials]
	sessionCache *ttlCache[string, SessionInfo]
	revoked      *ttlCache[string, struct{}]
	limiter      *attemptLimiter
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(users UserRepository, links DepartmentLinks, sessions SessionRepository, hasher PasswordHasher, idGenerator func() string, now func() time.Time, config AuthConfig) *AuthService {
	return NewAuthServiceWithLogger(users, links, sessions, hasher, idGenerator, now, config, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(users UserRepository, links DepartmentLinks, sessions SessionRepository, hasher PasswordHasher, idGenerator func() string, now func() time.Time, config AuthConfig, logger *slog.Logger) *AuthService {
	if hasher == nil {
		hasher = NewPasswordHasher()
	}
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	if config.SessionTTL <= 0 {
		config.SessionTTL = 24 * time.Hour
	}
	if config.IdentityCacheTTL <= 0 {
		config.IdentityCacheTTL = 5 * time.Minute
	}
	return &AuthService{
		users:        users,
		links:        links,
		sessions:     sessions,
		hasher:       hasher,
		idGenerator:  idGenerator,
		now:          now,
		config:       config,
		logger:       defaultLogger(logger),
		userCache:    newTTLCache[string, UserCredentials](config.IdentityCacheTTL, 512, now),
		sessionCache: newTTLCache[string, SessionInfo](config.IdentityCacheTTL, 1024, now),
		revoked:      newTTLCache[string, struct{}](config.SessionTTL, 4096, now),
		limiter:      newAttemptLimiter(config.MaxFailures, config.FailureWindow, now),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Authenticate validates credentials and issues a signed session token.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if len(s.config.Secret) == 0 {
		err = fmt.Errorf("session secret not configured")
		return
	}

	username := strings.TrimSpace(params.Username)
	logger := s.loggerWith(ctx, "Authenticate", "username", username)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "authentication failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"user_id", result.Session.UserID,
			"session_id", result.Session.ID,
		).InfoContext(ctx, "authentication succeeded")
	}()

	if username == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return
	}
	if !s.limiter.Allow(username) {
		err = ErrTooManyAttempts
		return
	}

	var (
		creds    UserCredentials
		fallback bool
	)
	creds, fallback, err = s.resolveCredentials(ctx, username)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.limiter.Fail(username)
		}
		return
	}

	if verr := s.hasher.Verify(creds.PasswordHash, params.Password); verr != nil {
		s.limiter.Fail(username)
		if !errors.Is(verr, ErrInvalidCredentials) {
			logger.WarnContext(ctx, "stored password hash rejected", "error", verr)
		}
		err = ErrInvalidCredentials
		return
	}
	s.limiter.Reset(username)

	if access.AwaitingApproval(creds.User.Level) {
		err = ErrAccountPending
		return
	}
	if !creds.User.Level.Valid() {
		err = ErrUnauthorized
		return
	}

	departments := []int64{}
	if access.DepartmentScoped(creds.User.Level) {
		departments, err = s.departmentsFor(ctx, creds.User)
		if err != nil {
			return
		}
	}

	now := s.now()
	session := Session{
		ID:        s.idGenerator(),
		UserID:    creds.User.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.SessionTTL),
	}

	if !fallback && s.sessions != nil {
		if _, perr := s.sessions.DeleteExpiredSessions(ctx, now); perr != nil {
			logger.WarnContext(ctx, "failed to prune expired sessions", "error", perr)
		}
		if _, serr := s.sessions.CreateSession(ctx, session); serr != nil {
			serr = mapRepoError(serr)
			if !isStoreUnavailable(serr) {
				err = serr
				return
			}
			logger.WarnContext(ctx, "session not persisted, store unavailable", "error", serr)
		}
	}

	info := newSessionInfo(session, creds.User, departments)
	s.sessionCache.Store(info.ID, info)

	var token string
	token, err = s.sign(info)
	if err != nil {
		return
	}

	result = AuthenticateResult{Session: info, Token: token}
	return
}

// resolveCredentials walks the identity chain. fallback reports whether the
// credentials came from the fallback set.
func (s *AuthService) resolveCredentials(ctx context.Context, username string) (UserCredentials, bool, error) {
	key := limiterKey(username)
	if creds, ok := s.userCache.Get(key); ok {
		return cloneCredentials(creds), false, nil
	}

	if s.users == nil {
		if s.config.Fallback.matches(username) {
			return s.config.Fallback.credentials(), true, nil
		}
		return UserCredentials{}, false, fmt.Errorf("user repository not configured")
	}

	creds, err := s.users.GetUserCredentialsByUsername(ctx, username)
	if err == nil {
		s.userCache.Store(key, cloneCredentials(creds))
		return creds, false, nil
	}

	err = mapRepoError(err)
	if errors.Is(err, ErrNotFound) {
		return UserCredentials{}, false, ErrInvalidCredentials
	}
	if s.config.Fallback.matches(username) {
		s.loggerWith(ctx, "Authenticate", "username", username).
			WarnContext(ctx, "store unreachable, using fallback credentials", "error", err)
		return s.config.Fallback.credentials(), true, nil
	}
	return UserCredentials{}, false, err
}

func (s *AuthService) departmentsFor(ctx context.Context, user User) ([]int64, error) {
	if s.links == nil || user.ID == FallbackUserID {
		return slices.Clone(user.DepartmentIDs), nil
	}
	ids, err := s.links.ListUserDepartmentIDs(ctx, user.ID)
	if err != nil {
		err = mapRepoError(err)
		if isStoreUnavailable(err) && user.DepartmentIDs != nil {
			return slices.Clone(user.DepartmentIDs), nil
		}
		return nil, err
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}

// ValidateSession verifies the token and resolves the principal behind it.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (principal Principal, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}

	trimmed := strings.TrimSpace(token)
	logger := s.loggerWith(ctx, "ValidateSession", "token_provided", trimmed != "")
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "session validation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("principal_id", principal.UserID).DebugContext(ctx, "session validated")
	}()

	if trimmed == "" {
		err = ErrUnauthorized
		return
	}

	var claims *sessionClaims
	claims, err = s.parse(trimmed)
	if err != nil {
		return
	}
	now := s.now()
	if claims.ExpiresAt == nil || !now.Before(claims.ExpiresAt.Time) {
		err = ErrSessionExpired
		return
	}
	if _, revoked := s.revoked.Get(claims.ID); revoked {
		err = ErrSessionRevoked
		return
	}

	if info, ok := s.sessionCache.Get(claims.ID); ok {
		principal = info.Principal()
		return
	}

	var info SessionInfo
	info, err = s.loadSession(ctx, claims)
	if err != nil {
		if isStoreUnavailable(err) && s.claimsMatchFallback(claims) {
			logger.WarnContext(ctx, "store unreachable, accepting fallback session", "error", err)
			info = claims.sessionInfo()
			err = nil
		} else {
			return
		}
	}

	s.sessionCache.Store(info.ID, info)
	principal = info.Principal()
	return
}

func (s *AuthService) loadSession(ctx context.Context, claims *sessionClaims) (SessionInfo, error) {
	if s.sessions == nil || s.users == nil {
		return SessionInfo{}, fmt.Errorf("%w: session store not configured", ErrStoreUnavailable)
	}

	session, err := s.sessions.GetSession(ctx, claims.ID)
	if err != nil {
		err = mapRepoError(err)
		if errors.Is(err, ErrNotFound) {
			return SessionInfo{}, ErrUnauthorized
		}
		return SessionInfo{}, err
	}
	if session.RevokedAt != nil {
		return SessionInfo{}, ErrSessionRevoked
	}
	if !s.now().Before(session.ExpiresAt) {
		return SessionInfo{}, ErrSessionExpired
	}
	if strconv.FormatInt(session.UserID, 10) != claims.Subject {
		return SessionInfo{}, ErrUnauthorized
	}

	creds, err := s.users.GetUserCredentials(ctx, session.UserID)
	if err != nil {
		err = mapRepoError(err)
		if errors.Is(err, ErrNotFound) {
			return SessionInfo{}, ErrUnauthorized
		}
		return SessionInfo{}, err
	}
	if access.AwaitingApproval(creds.User.Level) {
		return SessionInfo{}, ErrAccountPending
	}
	if !creds.User.Level.Valid() {
		return SessionInfo{}, ErrUnauthorized
	}

	departments := []int64{}
	if access.DepartmentScoped(creds.User.Level) {
		if departments, err = s.departmentsFor(ctx, creds.User); err != nil {
			return SessionInfo{}, err
		}
	}
	return newSessionInfo(session, creds.User, departments), nil
}

func (s *AuthService) claimsMatchFallback(claims *sessionClaims) bool {
	return claims.Subject == strconv.FormatInt(FallbackUserID, 10) && s.config.Fallback.matches(claims.Username)
}

// RevokeSession signs a session out.
func (s *AuthService) RevokeSession(ctx context.Context, token string) error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}

	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return ErrUnauthorized
	}
	claims, err := s.parse(trimmed)
	if err != nil {
		return err
	}

	logger := s.loggerWith(ctx, "RevokeSession", "session_id", claims.ID)
	now := s.now()

	s.sessionCache.Delete(claims.ID)
	if claims.ExpiresAt != nil {
		s.revoked.StoreUntil(claims.ID, struct{}{}, claims.ExpiresAt.Time)
	}

	if s.sessions != nil && !s.claimsMatchFallback(claims) {
		if _, err := s.sessions.RevokeSession(ctx, claims.ID, now); err != nil {
			err = mapRepoError(err)
			if !errors.Is(err, ErrNotFound) {
				logger.ErrorContext(ctx, "failed to revoke session", "error", err, "error_kind", ErrorKind(err))
				return err
			}
		}
		if _, err := s.sessions.DeleteExpiredSessions(ctx, now); err != nil {
			logger.WarnContext(ctx, "failed to prune expired sessions", "error", err)
		}
	}

	logger.InfoContext(ctx, "session revoked")
	return nil
}

// CurrentSession returns the session object of principal together with the
// navigation sections its role may open.
func (s *AuthService) CurrentSession(ctx context.Context, principal Principal) (SessionInfo, []access.Section, error) {
	if s == nil {
		return SessionInfo{}, nil, fmt.Errorf("AuthService is nil")
	}
	if !access.CanSignIn(principal.Role) {
		return SessionInfo{}, nil, ErrUnauthorized
	}

	info, ok := s.sessionCache.Get(principal.SessionID)
	if !ok {
		info = SessionInfo{
			ID:          principal.SessionID,
			UserID:      principal.UserID,
			Username:    principal.Username,
			Level:       principal.Role,
			Departments: slices.Clone(principal.DepartmentIDs),
		}
		if len(info.Departments) == 1 {
			id := info.Departments[0]
			info.Department = &id
		}
	}
	return info, access.Sections(principal.Role), nil
}

// InvalidateUser drops every cached identity and session of a user. The next
// request resolves them from the store again.
func (s *AuthService) InvalidateUser(userID int64) {
	if s == nil {
		return
	}
	s.userCache.DeleteFunc(func(_ string, creds UserCredentials) bool { return creds.User.ID == userID })
	s.sessionCache.DeleteFunc(func(_ string, info SessionInfo) bool { return info.UserID == userID })
}

type sessionClaims struct {
	Username    string      `json:"username"`
	Level       access.Role `json:"level"`
	Departments []int64     `json:"departments"`
	Department  *int64      `json:"department,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	jwt.RegisteredClaims
}

func (c *sessionClaims) sessionInfo() SessionInfo {
	userID, _ := strconv.ParseInt(c.Subject, 10, 64)
	info := SessionInfo{
		ID:          c.ID,
		UserID:      userID,
		Username:    c.Username,
		Level:       c.Level,
		Departments: slices.Clone(c.Departments),
		Department:  c.Department,
		CreatedAt:   c.CreatedAt,
	}
	if c.ExpiresAt != nil {
		info.ExpiresAt = c.ExpiresAt.Time
	}
	return info
}

func (s *AuthService) sign(info SessionInfo) (string, error) {
	claims := sessionClaims{
		Username:    info.Username,
		Level:       info.Level,
		Departments: info.Departments,
		Department:  info.Department,
		CreatedAt:   info.CreatedAt,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        info.ID,
			Subject:   strconv.FormatInt(info.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(info.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(info.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.Secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

// parse checks the signature only; expiry is compared against the service clock.
func (s *AuthService) parse(token string) (*sessionClaims, error) {
	if len(s.config.Secret) == 0 {
		return nil, fmt.Errorf("session secret not configured")
	}
	claims := &sessionClaims{}
	parser := jwt.Parser{SkipClaimsValidation: true}
	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.config.Secret, nil
	})
	if err != nil || claims.ID == "" {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

func newSessionInfo(session Session, user User, departments []int64) SessionInfo {
	info := SessionInfo{
		ID:          session.ID,
		UserID:      user.ID,
		Username:    user.Username,
		Level:       user.Level,
		Departments: departments,
		CreatedAt:   session.CreatedAt,
		ExpiresAt:   session.ExpiresAt,
	}
	if info.Departments == nil {
		info.Departments = []int64{}
	}
	if len(info.Departments) == 1 {
		id := info.Departments[0]
		info.Department = &id
	}
	return info
}

func cloneCredentials(creds UserCredentials) UserCredentials {
	creds.User.DepartmentIDs = slices.Clone(creds.User.DepartmentIDs)
	creds.User.DepartmentNames = slices.Clone(creds.User.DepartmentNames)
	return creds
}
