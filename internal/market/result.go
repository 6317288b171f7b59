package market

import (
	"errors"
	"fmt"
)

// Source tells where a Result's data came from.
type Source string

// Data sources.
const (
	SourceLive      Source = "live"
	SourceCached    Source = "cached"
	SourceSynthetic Source = "synthetic"
)

// Reason explains why synthetic data was used.
type Reason string

// Fallback reasons.
const (
	ReasonAPIError      Reason = "api_error"
	ReasonRateLimited   Reason = "rate_limited"
	ReasonEmptyPayload  Reason = "empty_payload"
	ReasonRequestFailed Reason = "request_failed"
)

var (
	errOffline      = errors.New("offline mode")
	errEmptyPayload = errors.New("empty payload")
)

// Result carries normalized data together with its provenance.
// Data is always usable. Reason and Err are set only for synthetic data.
type Result[T any] struct {
	Data   T
	Source Source
	Reason Reason
	Err    error
}

// Synthetic reports whether Data was generated locally.
func (r Result[T]) Synthetic() bool {
	return r.Source == SourceSynthetic
}

// Describe returns a short provenance label such as "live" or "synthetic (rate_limited)".
func (r Result[T]) Describe() string {
	if r.Synthetic() && r.Reason != "" {
		return fmt.Sprintf("%s (%s)", r.Source, r.Reason)
	}
	return string(r.Source)
}

func live[T any](data T) Result[T] {
	return Result[T]{Data: data, Source: SourceLive}
}

func cachedResult[T any](data T) Result[T] {
	return Result[T]{Data: data, Source: SourceCached}
}

func synthetic[T any](data T, reason Reason, err error) Result[T] {
	return Result[T]{Data: data, Source: SourceSynthetic, Reason: reason, Err: err}
}
