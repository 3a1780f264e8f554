package lokiship

import (
	"errors"
	"fmt"
)

// ConfigError reports an invalid configuration detected at Build time.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %v", e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// EncodingError reports that a batch could not be serialized. The batch is
// discarded, never retried.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode batch: %v", e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// DeliveryError reports a transport-level push failure. StatusCode is zero
// for connection errors and timeouts.
type DeliveryError struct {
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("push failed with status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("push failed: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Retryable reports whether a new attempt could plausibly succeed. Client
// errors (4xx) are rejections of the payload itself and are never retried.
func (e *DeliveryError) Retryable() bool {
	return e.StatusCode < 400 || e.StatusCode >= 500
}

func isRetryable(err error) bool {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Retryable()
	}
	return true
}
