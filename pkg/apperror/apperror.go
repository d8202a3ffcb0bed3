// Package apperror defines the structured error taxonomy surfaced by the
// sale, return, and inventory operations. Every error carries a kind, an
// optional field path (e.g. "items[2].quantity"), and a human readable
// message, so handlers can map failures to HTTP statuses and clients can
// attribute them to inputs.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

type Kind string

const (
	KindValidation        Kind = "VALIDATION"
	KindInsufficientStock Kind = "INSUFFICIENT_STOCK"
	KindOverReturn        Kind = "OVER_RETURN"
	KindNotFound          Kind = "NOT_FOUND"
	KindConflict          Kind = "CONFLICT"
	KindInternal          Kind = "INTERNAL"
)

// Error is a single field-attributed failure.
type Error struct {
	Kind    Kind   `json:"kind"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func New(kind Kind, field, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Field: field, Message: fmt.Sprintf(format, args...)}
}

func Validation(field, format string, args ...interface{}) *Error {
	return New(KindValidation, field, format, args...)
}

func InsufficientStock(field, format string, args ...interface{}) *Error {
	return New(KindInsufficientStock, field, format, args...)
}

func OverReturn(field, format string, args ...interface{}) *Error {
	return New(KindOverReturn, field, format, args...)
}

func NotFound(field, format string, args ...interface{}) *Error {
	return New(KindNotFound, field, format, args...)
}

func Conflict(field, format string, args ...interface{}) *Error {
	return New(KindConflict, field, format, args...)
}

// List aggregates per-item failures from an all-or-nothing validation pass.
// It is itself an error so services can return the whole batch at once.
type List []*Error

func (l List) Error() string {
	msgs := make([]string, 0, len(l))
	for _, e := range l {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// Errors returns the slice form for JSON responses.
func (l List) Errors() []*Error { return l }

// KindOf classifies err for HTTP mapping. A List is classified by its first
// entry; anything unrecognized is internal.
func KindOf(err error) Kind {
	var single *Error
	if errors.As(err, &single) {
		return single.Kind
	}
	var list List
	if errors.As(err, &list) && len(list) > 0 {
		return list[0].Kind
	}
	return KindInternal
}

// Collect returns nil when no errors were gathered, otherwise the list.
func Collect(errs []*Error) error {
	if len(errs) == 0 {
		return nil
	}
	return List(errs)
}
