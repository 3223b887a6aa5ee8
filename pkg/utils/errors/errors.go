package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an application error.
type Kind uint

const (
	// KindUnknown is an unclassified error.
	KindUnknown Kind = iota
	// KindInvalidArgument is a client-correctable bad input.
	KindInvalidArgument
	// KindNotFound is a missing entity (portfolio, user, symbol).
	KindNotFound
	// KindNoMarketData means no symbol in the request yielded usable history.
	KindNoMarketData
	// KindZeroPortfolioValue means holdings value to zero or negative.
	KindZeroPortfolioValue
	// KindInsufficientAssets means fewer than two valid symbols for optimization.
	KindInsufficientAssets
	// KindOptimizationFailed means the solver did not converge.
	KindOptimizationFailed
	// KindInternal is an unexpected server-side failure.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindNotFound:
		return "not_found"
	case KindNoMarketData:
		return "no_market_data"
	case KindZeroPortfolioValue:
		return "zero_portfolio_value"
	case KindInsufficientAssets:
		return "insufficient_assets"
	case KindOptimizationFailed:
		return "optimization_failed"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// AppError is a typed application error. Callers match on Kind to
// distinguish bad input from computation failures.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports kind equality so that errors.Is(err, &AppError{Kind: k})
// works across wrapping.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if !errors.As(target, &appErr) {
		return false
	}
	return e.Kind == appErr.Kind
}

// New creates an unclassified error.
func New(message string) error {
	return &AppError{Kind: KindUnknown, Message: message}
}

// Newf creates an unclassified error from a format string.
func Newf(format string, args ...interface{}) error {
	return &AppError{Kind: KindUnknown, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err with a message, preserving the kind of an inner AppError.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	kind := KindUnknown
	var appErr *AppError
	if errors.As(err, &appErr) {
		kind = appErr.Kind
	}
	return &AppError{Kind: kind, Message: message, Err: err}
}

// Wrapf wraps err with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// KindOf returns the kind of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// InvalidArgument creates a new invalid-argument error.
func InvalidArgument(message string) error {
	return &AppError{Kind: KindInvalidArgument, Message: message}
}

// NotFound creates a new not-found error.
func NotFound(message string) error {
	return &AppError{Kind: KindNotFound, Message: message}
}

// NoMarketData creates the terminal error for a request where no symbol
// yielded usable price history.
func NoMarketData(message string) error {
	return &AppError{Kind: KindNoMarketData, Message: message}
}

// ZeroPortfolioValue creates the terminal error for holdings that value
// to zero or negative.
func ZeroPortfolioValue(message string) error {
	return &AppError{Kind: KindZeroPortfolioValue, Message: message}
}

// InsufficientAssets creates the terminal error for an optimization with
// fewer than two valid symbols.
func InsufficientAssets(message string) error {
	return &AppError{Kind: KindInsufficientAssets, Message: message}
}

// OptimizationFailed creates the terminal error for a solver that did not
// converge. Solver diagnostics go into err.
func OptimizationFailed(message string, err error) error {
	return &AppError{Kind: KindOptimizationFailed, Message: message, Err: err}
}

// Internal creates a new internal error.
func Internal(message string) error {
	return &AppError{Kind: KindInternal, Message: message}
}
