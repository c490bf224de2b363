package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/volunteer-scheduler/internal/application"
)

func (r responder) principal(ctx context.Context, w http.ResponseWriter) (application.Principal, bool) {
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{ErrorCode: "AUTH_REQUIRED", Message: errMissingSessionToken.Error()})
		return application.Principal{}, false
	}
	return principal, true
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

func (r responder) pathID(w http.ResponseWriter, req *http.Request) (int64, bool) {
	id, err := pathID(req, "id")
	if err != nil {
		r.writeJSON(req.Context(), w, http.StatusBadRequest, errorResponse{Message: err.Error()})
		return 0, false
	}
	return id, true
}

// optionalIDQuery reads a positive id query parameter; absent or blank means nil.
func optionalIDQuery(r *http.Request, name string) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, &application.ValidationError{FieldErrors: map[string]string{name: "Identificador inválido"}}
	}
	return &id, nil
}

func nonNilIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
