package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/volunteer-scheduler/internal/access"
	"github.com/example/volunteer-scheduler/internal/application"
)

const sessionCookieName = "session_token"

// AuthService is the subset of the auth gateway used by the handler.
type AuthService interface {
	Authenticate(ctx context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error)
	RevokeSession(ctx context.Context, token string) error
	CurrentSession(ctx context.Context, principal application.Principal) (application.SessionInfo, []access.Section, error)
}

// AuthHandler exposes sign in, sign out and the current session.
type AuthHandler struct {
	service   AuthService
	responder responder
	logger    *slog.Logger
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(service AuthService, logger *slog.Logger) *AuthHandler {
	logger = defaultLogger(logger)
	return &AuthHandler{service: service, responder: newResponder(logger), logger: logger}
}

func (h *AuthHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "AuthHandler", operation, attrs...)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionDTO struct {
	ID          string    `json:"id"`
	UserID      int64     `json:"user_id"`
	Username    string    `json:"username"`
	Level       string    `json:"level"`
	Departments []int64   `json:"departments"`
	Department  *int64    `json:"department,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at,omitzero"`
}

type loginResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	Session   sessionDTO `json:"session"`
}

type sectionDTO struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Path  string `json:"path"`
}

type meResponse struct {
	Session  sessionDTO   `json:"session"`
	Sections []sectionDTO `json:"sections"`
}

// CreateSession handles POST /sessions.
func (h *AuthHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeDecodeError(ctx, w, err)
		return
	}

	logger := h.log(ctx, "CreateSession", "username", strings.TrimSpace(req.Username))
	result, err := h.service.Authenticate(ctx, application.AuthenticateParams{Username: req.Username, Password: req.Password})
	if err != nil {
		logger.WarnContext(ctx, "sign in rejected", "error", err)
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	setSessionCookie(w, result.Token, result.Session.ExpiresAt)
	w.Header().Set("X-Session-Token", result.Token)
	logger.InfoContext(ctx, "session created", "session_id", result.Session.ID)
	h.responder.writeJSON(ctx, w, http.StatusCreated, loginResponse{
		Token:     result.Token,
		ExpiresAt: result.Session.ExpiresAt,
		Session:   toSessionDTO(result.Session),
	})
}

// DeleteCurrentSession handles DELETE /sessions/current.
func (h *AuthHandler) DeleteCurrentSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := extractTokenFromRequest(r)
	if token == "" {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	if err := h.service.RevokeSession(ctx, token); err != nil {
		h.log(ctx, "DeleteCurrentSession").ErrorContext(ctx, "failed to revoke session", "error", err)
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	clearSessionCookie(w)
	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}

// Me handles GET /me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	info, sections, err := h.service.CurrentSession(ctx, principal)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	resp := meResponse{Session: toSessionDTO(info), Sections: make([]sectionDTO, 0, len(sections))}
	for _, section := range sections {
		resp.Sections = append(resp.Sections, sectionDTO{
			Key:   section.Key(),
			Label: section.Label(info.Level),
			Path:  section.Path(),
		})
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, resp)
}

func toSessionDTO(info application.SessionInfo) sessionDTO {
	departments := info.Departments
	if departments == nil {
		departments = []int64{}
	}
	return sessionDTO{
		ID:          info.ID,
		UserID:      info.UserID,
		Username:    info.Username,
		Level:       string(info.Level),
		Departments: departments,
		Department:  info.Department,
		CreatedAt:   info.CreatedAt,
		ExpiresAt:   info.ExpiresAt,
	}
}

func setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func extractTokenFromRequest(r *http.Request) string {
	if token := bearerToken(r); token != "" {
		return token
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
