// Package errs defines the typed failures returned by the quoting core.
package errs

import (
	"errors"
	"fmt"
)

// Kind 错误大类
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInvalidConfiguration
	KindInvalidMarketState
	KindInvalidQuoteGeneration
	KindDomain
	KindOverflow
	KindInsufficientData
)

func (k Kind) String() string {
	switch k {
	case KindInvalidConfiguration:
		return "InvalidConfiguration"
	case KindInvalidMarketState:
		return "InvalidMarketState"
	case KindInvalidQuoteGeneration:
		return "InvalidQuoteGeneration"
	case KindDomain:
		return "DomainError"
	case KindOverflow:
		return "OverflowError"
	case KindInsufficientData:
		return "InsufficientData"
	default:
		return "Unknown"
	}
}

// Error is the single error type of the core. Field names the offending
// parameter when there is one.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind, so errors.Is(err, ErrOverflow)
// works regardless of message or field.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrInvalidConfiguration   = &Error{Kind: KindInvalidConfiguration, Message: "invalid configuration"}
	ErrInvalidMarketState     = &Error{Kind: KindInvalidMarketState, Message: "invalid market state"}
	ErrInvalidQuoteGeneration = &Error{Kind: KindInvalidQuoteGeneration, Message: "invalid quote generation"}
	ErrDomain                 = &Error{Kind: KindDomain, Message: "argument outside function domain"}
	ErrOverflow               = &Error{Kind: KindOverflow, Message: "value exceeds representable range"}
	ErrInsufficientData       = &Error{Kind: KindInsufficientData, Message: "insufficient data"}
)

// InvalidConfiguration 构造配置错误，field 为出错字段。
func InvalidConfiguration(field, msg string) *Error {
	return &Error{Kind: KindInvalidConfiguration, Field: field, Message: msg}
}

func InvalidMarketState(field, msg string) *Error {
	return &Error{Kind: KindInvalidMarketState, Field: field, Message: msg}
}

func InvalidQuoteGeneration(msg string) *Error {
	return &Error{Kind: KindInvalidQuoteGeneration, Message: msg}
}

func Domain(op, msg string) *Error {
	return &Error{Kind: KindDomain, Field: op, Message: msg}
}

func Overflow(op string) *Error {
	return &Error{Kind: KindOverflow, Field: op, Message: "value exceeds representable range"}
}

func InsufficientData(msg string) *Error {
	return &Error{Kind: KindInsufficientData, Message: msg}
}

// Wrap attaches a kind and field to an external error, keeping it as Cause.
func Wrap(kind Kind, field string, cause error) *Error {
	return &Error{Kind: kind, Field: field, Message: "rejected", Cause: cause}
}

// KindOf 返回错误链中第一个 *Error 的类别，不是本包错误时返回 KindUnknown。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// FieldOf returns the offending field carried by err, if any.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}
