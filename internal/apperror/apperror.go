// Package apperror defines the error kinds surfaced by the sales engine.
//
// Kinds are assigned where a failure is detected. Callers inspect them with
// KindOf and never by matching on error text.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

type Kind string

const (
	KindJSONParse         Kind = "JSON_PARSE_ERROR"
	KindValidation        Kind = "DATA_VALIDATION_ERROR"
	KindProductNotFound   Kind = "PRODUCT_NOT_FOUND"
	KindInsufficientStock Kind = "INSUFFICIENT_STOCK"
	KindDatabase          Kind = "DATABASE_ERROR"
	KindRPC               Kind = "RPC_ERROR"
	KindBusinessLogic     Kind = "BUSINESS_LOGIC_ERROR"
	KindNotFound          Kind = "NOT_FOUND"
	KindUnknown           Kind = "UNKNOWN_ERROR"
)

var userMessages = map[Kind]string{
	KindJSONParse:         "The request body is not valid JSON.",
	KindValidation:        "Some of the submitted data is invalid.",
	KindProductNotFound:   "The selected product could not be found.",
	KindInsufficientStock: "There is not enough stock to complete this sale.",
	KindDatabase:          "We could not save your changes. Please try again.",
	KindRPC:               "A dependent service is unavailable. Please try again.",
	KindBusinessLogic:     "This operation is not allowed.",
	KindNotFound:          "The requested record could not be found.",
	KindUnknown:           "Something went wrong. Please try again.",
}

// Error is the boundary error type of every service in this module.
type Error struct {
	Kind    Kind
	Field   string
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Code != "" {
		b.WriteString(": ")
		b.WriteString(e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind and, when set, by code.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) || other == nil {
		return false
	}
	if other.Kind != e.Kind {
		return false
	}
	return other.Code == "" || other.Code == e.Code
}

// UserFacing returns the short message safe to show to a caller.
func (e *Error) UserFacing() string {
	switch e.Kind {
	case KindValidation, KindBusinessLogic, KindInsufficientStock, KindProductNotFound, KindNotFound:
		if e.Message != "" {
			return e.Message
		}
	}
	return UserMessage(e.Kind)
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func JSONParse(err error) *Error {
	return &Error{Kind: KindJSONParse, Field: "body", Code: "invalid_json", Message: "request body is not valid JSON", Err: err}
}

func Validation(field, code, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Code: code, Message: message}
}

// Invalid builds a validation error whose code is the domain sentinel's text.
func Invalid(field string, sentinel error, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Code: sentinel.Error(), Message: message, Err: sentinel}
}

func ProductNotFound(productID string) *Error {
	return &Error{
		Kind:    KindProductNotFound,
		Field:   "product_id",
		Code:    "product_not_found",
		Message: fmt.Sprintf("product %s not found", productID),
	}
}

func InsufficientStock(productID string, requested int64) *Error {
	return &Error{
		Kind:    KindInsufficientStock,
		Field:   "quantity",
		Code:    "insufficient_stock",
		Message: fmt.Sprintf("insufficient stock for product %s (requested %d)", productID, requested),
	}
}

func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Field: entity, Code: entity + "_not_found", Message: entity + " not found"}
}

func BusinessLogic(code, message string) *Error {
	return &Error{Kind: KindBusinessLogic, Code: code, Message: message}
}

func Database(err error) *Error {
	return &Error{Kind: KindDatabase, Code: "database_error", Err: err}
}

func RPC(err error) *Error {
	return &Error{Kind: KindRPC, Code: "rpc_error", Err: err}
}

// KindOf returns the kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Kind
	}
	return KindUnknown
}

// As returns err as *Error, wrapping foreign errors as KindUnknown.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) && appErr != nil {
		return appErr
	}
	return &Error{Kind: KindUnknown, Code: "unknown_error", Err: err}
}

func UserMessage(kind Kind) string {
	if msg, ok := userMessages[kind]; ok {
		return msg
	}
	return userMessages[KindUnknown]
}

// Retryable reports whether an idempotent read failing with kind may be retried once.
func Retryable(kind Kind) bool {
	return kind == KindDatabase || kind == KindRPC
}
