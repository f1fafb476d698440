package apperror

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// FromDB classifies a store error. Nil stays nil and *Error passes through.
func FromDB(err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Error{Kind: KindNotFound, Code: "not_found", Message: "record not found", Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Database(err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503":
			return &Error{Kind: KindBusinessLogic, Code: "foreign_key_violation", Message: "referenced record does not exist", Err: err}
		case "23514":
			return &Error{Kind: KindBusinessLogic, Code: "check_violation", Message: "value violates a constraint", Err: err}
		}
	}
	return Database(err)
}

// RetryRead runs an idempotent read, retrying once when it fails with a
// database or RPC kind. Mutations must not go through this helper.
func RetryRead[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	out, err := fn(ctx)
	if err == nil || !Retryable(KindOf(err)) {
		return out, err
	}
	if ctx.Err() != nil {
		return out, err
	}
	return fn(ctx)
}
