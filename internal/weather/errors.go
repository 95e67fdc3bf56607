package weather

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a weather query failed.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindConfiguration: the provider API key is not configured.
	KindConfiguration
	// KindUpstreamUnavailable: the provider could not be reached.
	KindUpstreamUnavailable
	// KindUpstreamProtocol: the provider answered with something we cannot use.
	KindUpstreamProtocol
	// KindFormatting: the payload broke the formatter's input contract.
	KindFormatting
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	case KindUpstreamProtocol:
		return "upstream_protocol"
	case KindFormatting:
		return "formatting"
	default:
		return "unknown"
	}
}

var (
	// ErrMissingAPIKey is returned when no provider API key was configured.
	ErrMissingAPIKey = errors.New("no API key provided, set the OPENWEATHERMAP_API_KEY environment variable")
	// ErrLocationNotFound is wrapped when geocoding returns no result.
	ErrLocationNotFound = errors.New("location not found")
	// ErrNoConditions is returned when a payload has an empty weather list.
	ErrNoConditions = errors.New("weather payload has no condition entries")
)

// Error is a classified weather query failure.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with a kind and the operation that failed.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf is NewError with a formatted cause.
func Errorf(kind ErrorKind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
