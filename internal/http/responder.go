package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/example/volunteer-scheduler/internal/application"
	"github.com/example/volunteer-scheduler/internal/logging"
)

const maxBodyBytes = 1 << 20

var (
	errBadRequestBody      = errors.New("Formato de requisição inválido.")
	errInvalidID           = errors.New("Identificador inválido.")
	errMissingSessionToken = errors.New("Informe o token de sessão.")
)

// Localized messages shared by handlers and middleware.
const (
	msgForbidden            = "Você não tem permissão para realizar esta ação."
	msgDepartmentForbidden  = "Acesso não permitido a este departamento"
	msgNoDepartments        = "Você não está associado a nenhum departamento"
	msgNotFound             = "Registro não encontrado."
	msgValidation           = "Verifique os campos informados."
	msgScheduleConflict     = "Este membro já está escalado para este culto na data selecionada"
	msgUsernameTaken        = "Este nome de usuário já está em uso."
	msgAlreadyExists        = "Registro já existe."
	msgInUse                = "Este registro está em uso por escalas e não pode ser excluído."
	msgConflictCheckFailed  = "Erro ao verificar escala existente"
	msgStoreUnavailable     = "Banco de dados indisponível. Tente novamente em instantes."
	msgInternal             = "Erro interno do servidor."
	msgInvalidCredentials   = "Usuário ou senha incorretos"
	msgAccountPending       = "Cadastro pendente de aprovação. Aguarde a liberação de um administrador."
	msgTooManyAttempts      = "Muitas tentativas. Tente novamente em alguns minutos."
	msgSessionInvalid       = "Sessão inválida. Faça login novamente."
	msgSessionExpired       = "Sessão expirada. Faça login novamente."
	msgSessionRevoked       = "Sessão encerrada. Faça login novamente."
	msgNothingToExport      = "Nenhuma escala encontrada para exportar no período selecionado."
	msgEmptyPeriod          = "Nenhuma escala encontrada para este período"
	msgUnsupportedExportFmt = "Formato de exportação inválido. Use html, markdown ou csv."
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError is the single place that turns application errors into
// status codes and user facing text.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	status, body := describeServiceError(err)
	if status >= http.StatusInternalServerError {
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}
	r.writeJSON(ctx, w, status, body)
}

func describeServiceError(err error) (int, errorResponse) {
	switch {
	case errors.Is(err, application.ErrUnauthorized):
		return http.StatusForbidden, errorResponse{ErrorCode: "AUTH_FORBIDDEN", Message: msgForbidden}
	case errors.Is(err, application.ErrDepartmentAccessDenied):
		return http.StatusForbidden, errorResponse{ErrorCode: "DEPARTMENT_FORBIDDEN", Message: msgDepartmentForbidden}
	case errors.Is(err, application.ErrNoDepartmentsAssigned):
		return http.StatusForbidden, errorResponse{ErrorCode: "NO_DEPARTMENTS_ASSIGNED", Message: msgNoDepartments}
	case errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound, errorResponse{Message: msgNotFound}
	case errors.Is(err, application.ErrScheduleConflict):
		return http.StatusConflict, errorResponse{ErrorCode: "SCHEDULE_CONFLICT", Message: msgScheduleConflict}
	case errors.Is(err, application.ErrUsernameTaken):
		return http.StatusConflict, errorResponse{ErrorCode: "USERNAME_TAKEN", Message: msgUsernameTaken}
	case errors.Is(err, application.ErrAlreadyExists):
		return http.StatusConflict, errorResponse{ErrorCode: "ALREADY_EXISTS", Message: msgAlreadyExists}
	case errors.Is(err, application.ErrInUse):
		return http.StatusConflict, errorResponse{ErrorCode: "IN_USE", Message: msgInUse}
	case errors.Is(err, application.ErrConflictCheckUnavailable):
		return http.StatusServiceUnavailable, errorResponse{ErrorCode: "CONFLICT_CHECK_UNAVAILABLE", Message: msgConflictCheckFailed, Detail: err.Error()}
	case errors.Is(err, application.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, errorResponse{ErrorCode: "STORE_UNAVAILABLE", Message: msgStoreUnavailable, Detail: err.Error()}
	case errors.Is(err, application.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{ErrorCode: "AUTH_INVALID_CREDENTIALS", Message: msgInvalidCredentials}
	case errors.Is(err, application.ErrAccountPending):
		return http.StatusForbidden, errorResponse{ErrorCode: "AUTH_PENDING", Message: msgAccountPending}
	case errors.Is(err, application.ErrTooManyAttempts):
		return http.StatusTooManyRequests, errorResponse{ErrorCode: "AUTH_TOO_MANY_ATTEMPTS", Message: msgTooManyAttempts}
	case errors.Is(err, application.ErrSessionExpired):
		return http.StatusUnauthorized, errorResponse{ErrorCode: "AUTH_SESSION_EXPIRED", Message: msgSessionExpired}
	case errors.Is(err, application.ErrSessionRevoked):
		return http.StatusUnauthorized, errorResponse{ErrorCode: "AUTH_SESSION_REVOKED", Message: msgSessionRevoked}
	case errors.Is(err, application.ErrNothingToExport):
		return http.StatusNotFound, errorResponse{ErrorCode: "NOTHING_TO_EXPORT", Message: msgNothingToExport}
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		return http.StatusUnprocessableEntity, errorResponse{Message: msgValidation, Errors: vErr.FieldErrors}
	}

	return http.StatusInternalServerError, errorResponse{Message: msgInternal}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Requisição inválida."
	case http.StatusUnauthorized:
		return "Autenticação necessária."
	case http.StatusForbidden:
		return msgForbidden
	case http.StatusNotFound:
		return msgNotFound
	case http.StatusConflict:
		return "A requisição conflita com o estado atual do registro."
	case http.StatusUnprocessableEntity:
		return msgValidation
	case http.StatusTooManyRequests:
		return msgTooManyAttempts
	case http.StatusServiceUnavailable:
		return msgStoreUnavailable
	default:
		return msgInternal
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
	Detail    string            `json:"detail,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a JSON body into dst, rejecting unknown fields, and runs
// the struct validation tags. Validation failures come back as an
// *application.ValidationError so they share the 422 response shape.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequestBody, err)
	}
	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			vErr := &application.ValidationError{FieldErrors: make(map[string]string, len(fieldErrs))}
			for _, fe := range fieldErrs {
				field := strings.SplitN(fe.Field(), "[", 2)[0]
				if _, exists := vErr.FieldErrors[field]; !exists {
					vErr.FieldErrors[field] = validationMessage(fe)
				}
			}
			return vErr
		}
		return fmt.Errorf("%w: %v", errBadRequestBody, err)
	}
	return nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Campo obrigatório"
	case "max":
		return "Valor excede o tamanho máximo de " + fe.Param()
	case "oneof":
		return "Valor inválido. Use: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gt":
		return "Valor deve ser maior que " + fe.Param()
	case "datetime":
		return "Data inválida. Use o formato AAAA-MM-DD"
	default:
		return "Valor inválido"
	}
}

// writeDecodeError reports a decodeJSON failure: field errors as 422, anything
// else as a malformed body.
func (r responder) writeDecodeError(ctx context.Context, w http.ResponseWriter, err error) {
	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		r.handleServiceError(ctx, w, vErr)
		return
	}
	r.loggerFor(ctx).WarnContext(ctx, "malformed request body", "error", err)
	r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{Message: errBadRequestBody.Error()})
}
