package backend

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Kind classifies why a Backend API call failed.
type Kind int

const (
	// KindTransport means no usable response was received.
	KindTransport Kind = iota + 1
	// KindDomain means the API answered with a non-success status.
	KindDomain
	// KindValidation means the call was rejected locally before any request.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindDomain:
		return "domain"
	case KindValidation:
		return "validation"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Generic user-facing messages used when nothing more specific is known.
const (
	MsgTransport = "Unable to reach the store, please try again"
	MsgDomain    = "Something went wrong, please try again"
)

// Failure is the single error shape returned by Client. Transport errors,
// non-success statuses and local validation all normalise into it.
type Failure struct {
	Kind Kind
	// StatusCode is the envelope status for domain failures, 0 otherwise.
	StatusCode int
	// Message is safe to show to the user.
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.StatusCode != 0 {
		return fmt.Sprintf("%s failure (status %d): %s", f.Kind, f.StatusCode, f.Message)
	}
	return fmt.Sprintf("%s failure: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error { return f.Err }

// Validation returns a client-side validation failure.
func Validation(msg string) *Failure {
	return &Failure{Kind: KindValidation, Message: msg}
}

// AsFailure returns err as a *Failure. Errors that are not already a Failure
// are treated as transport failures.
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: KindTransport, Message: MsgTransport, Err: err}
}

// IsKind reports whether err is a Failure of kind k.
func IsKind(err error, k Kind) bool {
	var f *Failure
	return errors.As(err, &f) && f.Kind == k
}
