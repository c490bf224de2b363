package application

import (
	"errors"
	"fmt"

	"github.com/example/volunteer-scheduler/internal/calendar"
	"github.com/example/volunteer-scheduler/internal/persistence"
	"github.com/example/volunteer-scheduler/internal/scheduler"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a write collides with a unique attribute.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrUsernameTaken is returned when another user already holds the username.
	ErrUsernameTaken = fmt.Errorf("%w: username taken", ErrAlreadyExists)
	// ErrInUse is returned when a record cannot be deleted because schedules reference it.
	ErrInUse = errors.New("application: record in use")
	// ErrScheduleConflict is returned when a member is already scheduled for the same service and date.
	ErrScheduleConflict = errors.New("application: schedule conflict")
	// ErrConflictCheckUnavailable is returned when duplicates could not be ruled out.
	ErrConflictCheckUnavailable = errors.New("application: conflict check unavailable")
	// ErrDepartmentAccessDenied is returned when a leader targets a department outside their links.
	ErrDepartmentAccessDenied = errors.New("application: department access denied")
	// ErrNoDepartmentsAssigned is returned when a leader has no linked department.
	ErrNoDepartmentsAssigned = errors.New("application: no departments assigned")
	// ErrStoreUnavailable is returned when the backing store cannot be reached.
	ErrStoreUnavailable = errors.New("application: store unavailable")
	// ErrInvalidCredentials is returned when the username or password does not match.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrAccountPending is returned when a user awaits approval.
	ErrAccountPending = errors.New("application: account pending approval")
	// ErrTooManyAttempts is returned when sign in is throttled for a username.
	ErrTooManyAttempts = errors.New("application: too many attempts")
	// ErrSessionExpired is returned when the session token is past its expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned when the session was signed out.
	ErrSessionRevoked = errors.New("application: session revoked")
	// ErrNothingToExport is returned when the export period has no schedules.
	ErrNothingToExport = errors.New("application: nothing to export")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first message for a field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

func fieldError(field, message string) *ValidationError {
	vErr := &ValidationError{}
	vErr.add(field, message)
	return vErr
}

// mapRepoError translates store sentinels into application errors.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return ErrInUse
	case errors.Is(err, persistence.ErrUnavailable):
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return err
}

// mapQueryError translates query engine errors into application errors.
func mapQueryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, scheduler.ErrNoDepartmentsAssigned):
		return ErrNoDepartmentsAssigned
	case errors.Is(err, scheduler.ErrAccessDenied):
		return ErrDepartmentAccessDenied
	case errors.Is(err, calendar.ErrInvalidMonth):
		return fieldError("month", "Mês inválido")
	case errors.Is(err, scheduler.ErrInvalidDepartmentFilter):
		return fieldError("department", "Departamento inválido")
	case errors.Is(err, scheduler.ErrConflictCheckUnavailable):
		return fmt.Errorf("%w: %w", ErrConflictCheckUnavailable, err)
	}
	return mapRepoError(err)
}

func isStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, persistence.ErrUnavailable)
}
