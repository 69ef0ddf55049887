package models

import (
	"errors"
	"fmt"
)

// FailureKind discriminates forecast and ledger faults so callers can branch
// without string matching.
type FailureKind string

const (
	// DataUnavailable: the provider returned no rows for the ticker.
	DataUnavailable FailureKind = "data_unavailable"
	// InsufficientData: fewer than the minimum sample size survived cleaning.
	InsufficientData FailureKind = "insufficient_data"
	// PredictionFailed: any numeric or training fault inside the model.
	PredictionFailed FailureKind = "prediction_failed"
	// InsufficientFunds: a BUY would drive cash below zero.
	InsufficientFunds FailureKind = "insufficient_funds"
	// InsufficientShares: a SELL exceeds the held position.
	InsufficientShares FailureKind = "insufficient_shares"
	// InvalidTradeParameters: non-positive shares/price or missing ticker/action.
	InvalidTradeParameters FailureKind = "invalid_trade_parameters"
)

// Failure is the single error shape that crosses the forecast pipeline
// boundary. Internal faults never propagate past it as raw errors.
type Failure struct {
	Kind   FailureKind
	Detail string
	Err    error
}

func (f *Failure) Error() string {
	if f.Detail != "" {
		return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
	}
	return string(f.Kind)
}

func (f *Failure) Unwrap() error { return f.Err }

// NewFailure builds a Failure with a formatted detail message.
func NewFailure(kind FailureKind, format string, a ...interface{}) *Failure {
	return &Failure{Kind: kind, Detail: fmt.Sprintf(format, a...)}
}

// WrapFailure attaches an underlying cause.
func WrapFailure(kind FailureKind, err error, format string, a ...interface{}) *Failure {
	return &Failure{Kind: kind, Detail: fmt.Sprintf(format, a...), Err: err}
}

// FailureOf extracts a *Failure from an error chain, or nil.
func FailureOf(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return nil
}

// IsKind reports whether err carries the given failure kind.
func IsKind(err error, kind FailureKind) bool {
	f := FailureOf(err)
	return f != nil && f.Kind == kind
}
