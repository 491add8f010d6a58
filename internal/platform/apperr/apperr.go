// Package apperr define los códigos de error de negocio compartidos por los
// módulos de dominio y su traducción a HTTP.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation                 Code = "VALIDATION_ERROR"
	CodeConflict                   Code = "CONFLICT"
	CodeAlreadyActive              Code = "ALREADY_ACTIVE"
	CodeDuplicatePending           Code = "DUPLICATE_PENDING"
	CodeAlreadyApproved            Code = "ALREADY_APPROVED"
	CodePetNotAdoptable            Code = "PET_NOT_ADOPTABLE"
	CodeNotFoundOrAlreadyProcessed Code = "NOT_FOUND_OR_ALREADY_PROCESSED"
	CodeNotWithdrawable            Code = "NOT_WITHDRAWABLE"
	CodeBlocked                    Code = "BLOCKED"
	CodeAlreadyClosed              Code = "ALREADY_CLOSED"
	CodeApplicationActive          Code = "APPLICATION_ACTIVE"
	CodeNotCurrentOwner            Code = "NOT_CURRENT_OWNER"
	CodeNotFound                   Code = "NOT_FOUND"
	CodeNotArchivable              Code = "NOT_ARCHIVABLE"
	CodeTransactionFailed          Code = "TRANSACTION_FAILED"
	CodeForbidden                  Code = "FORBIDDEN"
	CodeInternal                   Code = "INTERNAL_ERROR"
)

// Error es un error de negocio tipado. Dos *Error son equivalentes para
// errors.Is si comparten Code.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap conserva la causa original (p.ej. el error del store) bajo un código.
func Wrap(code Code, msg string, err error) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// CodeOf devuelve el código del primer *Error en la cadena, o CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MessageOf devuelve el mensaje público del error (nunca la causa interna).
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound, CodeNotFoundOrAlreadyProcessed:
		return http.StatusNotFound
	case CodeConflict, CodeAlreadyActive, CodeDuplicatePending, CodeAlreadyApproved,
		CodeNotWithdrawable, CodeBlocked, CodeAlreadyClosed, CodeNotArchivable,
		CodeApplicationActive, CodeNotCurrentOwner:
		return http.StatusConflict
	case CodePetNotAdoptable:
		return http.StatusUnprocessableEntity
	case CodeTransactionFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
