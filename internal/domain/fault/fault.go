// Package fault defines the closed set of failure categories used across the
// query path. Classification happens once at the transport edge; every other
// layer only switches on the kind and never re-derives it from message text.
package fault

import "errors"

// Kind is a machine-checkable failure category.
type Kind string

const (
	// Validation signals a rejected request that never reached the network.
	Validation Kind = "validation_error"
	// InvalidRequest signals a downstream 400/422.
	InvalidRequest Kind = "invalid_request"
	// Timeout signals an attempt that exceeded its time budget.
	Timeout Kind = "timeout"
	// Unavailable signals that no response was received at all.
	Unavailable Kind = "unavailable"
	// DownstreamError signals a downstream 5xx.
	DownstreamError Kind = "downstream_error"
	// RateLimited signals a downstream 429.
	RateLimited Kind = "rate_limited"
	// Unauthorized signals a downstream 401/403.
	Unauthorized Kind = "unauthorized"
	// NotFound signals a downstream 404.
	NotFound Kind = "not_found"
	// EmptyResponse signals a 2xx whose body carried no usable answer.
	EmptyResponse Kind = "empty_response"
	// Unknown covers every outcome the table does not name.
	Unknown Kind = "unknown"
)

// Retriable reports whether a kind is plausibly caused by a transient
// server/network condition. Client-caused kinds are never retried: retrying
// cannot change the outcome and only burns latency budget.
func (k Kind) Retriable() bool {
	switch k {
	case Timeout, Unavailable, DownstreamError, RateLimited:
		return true
	default:
		return false
	}
}

// Fault is a classified failure. It implements error and is the only error
// shape the gateway surfaces to callers.
type Fault struct {
	kind    Kind
	message string
}

// New creates a fault of the given kind.
func New(kind Kind, message string) *Fault {
	return &Fault{kind: kind, message: message}
}

// Kind returns the failure category.
func (f *Fault) Kind() Kind { return f.kind }

// Message returns the human-readable description.
func (f *Fault) Message() string { return f.message }

// Retriable reports whether the caller may meaningfully try again.
func (f *Fault) Retriable() bool { return f.kind.Retriable() }

func (f *Fault) Error() string {
	return string(f.kind) + ": " + f.message
}

// Is matches faults by kind, so errors.Is(err, fault.New(fault.Timeout, ""))
// holds for any timeout fault.
func (f *Fault) Is(target error) bool {
	var other *Fault
	if !errors.As(target, &other) {
		return false
	}
	return f.kind == other.kind
}

// KindOf extracts the kind from an error chain. Non-fault errors report
// Unknown.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.kind
	}
	return Unknown
}

// IsKind reports whether err carries a fault of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsRetriable reports whether err carries a retriable fault. Non-fault
// errors are not retriable.
func IsRetriable(err error) bool {
	var f *Fault
	if errors.As(err, &f) {
		return f.Retriable()
	}
	return false
}
