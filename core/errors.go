package core

import (
	"context"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"github.com/cockroachdb/errors"
)

// Codespace is the codespace of the relay errors
const Codespace = "relay"

var (
	// ErrTransient is a failure that is expected to disappear when retried, e.g. a network timeout
	ErrTransient = errorsmod.Register(Codespace, 2, "transient failure")
	// ErrStale is returned when the effect of a submission has already been achieved by someone else
	ErrStale = errorsmod.Register(Codespace, 3, "stale submission")
	// ErrRejected is returned when a chain refuses a transaction as invalid
	ErrRejected = errorsmod.Register(Codespace, 4, "submission rejected")
	// ErrExhausted is reported when the retry policy abandons a submission
	ErrExhausted = errorsmod.Register(Codespace, 5, "retries exhausted")
	// ErrInvalidConfig is a fatal configuration error
	ErrInvalidConfig = errorsmod.Register(Codespace, 6, "invalid configuration")
	// ErrInvariant is returned when chain reads violate a lane invariant
	ErrInvariant = errorsmod.Register(Codespace, 7, "lane state invariant violated")
	// ErrUnknownLane is returned when a lane is not known to a chain
	ErrUnknownLane = errorsmod.Register(Codespace, 8, "unknown lane")
	// ErrSigner is returned when the signer of a chain is malformed
	ErrSigner = errorsmod.Register(Codespace, 9, "malformed signer")
)

// ErrorClass is the way the relay loop reacts to an error
type ErrorClass int

const (
	ClassTransient ErrorClass = iota
	ClassStale
	ClassRejected
	ClassFatal
	ClassCanceled
)

func (c ErrorClass) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassStale:
		return "stale"
	case ClassRejected:
		return "rejected"
	case ClassFatal:
		return "fatal"
	case ClassCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// Classify maps an error to its ErrorClass. Unknown errors are transient.
func Classify(err error) ErrorClass {
	switch {
	case errors.Is(err, context.Canceled):
		return ClassCanceled
	case errorsmod.IsOf(err, ErrStale):
		return ClassStale
	case errorsmod.IsOf(err, ErrRejected, ErrInvariant):
		return ClassRejected
	case errorsmod.IsOf(err, ErrInvalidConfig, ErrUnknownLane, ErrSigner):
		return ClassFatal
	default:
		return ClassTransient
	}
}
