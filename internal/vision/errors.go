package vision

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
)

// ErrCredentials marks configuration problems found while building the
// client. These are startup errors, never per-request ones.
var ErrCredentials = errors.New("vision credentials misconfigured")

// ProviderError is a failed call to the vision provider.
type ProviderError struct {
	Feature string
	Code    codes.Code
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("vision %s: %s (%s)", e.Feature, e.Message, e.Code)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Class groups provider failures by how a caller should react.
type Class string

const (
	ClassInvalidImage Class = "invalid_image"
	ClassQuota        Class = "quota"
	ClassTimeout      Class = "timeout"
	ClassUnavailable  Class = "unavailable"
	ClassInternal     Class = "internal"
)

// Classify maps err to a Class. Unknown errors are ClassInternal.
func Classify(err error) Class {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return ClassInternal
	}
	switch pe.Code {
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return ClassInvalidImage
	case codes.ResourceExhausted:
		return ClassQuota
	case codes.DeadlineExceeded:
		return ClassTimeout
	case codes.Unavailable:
		return ClassUnavailable
	default:
		return ClassInternal
	}
}
