// Package status defines the error kinds reported by discovery and
// genotyping, together with the context needed to find the bad input.
package status

import (
	"errors"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Kind classifies an Error.
type Kind int

const (
	// Invalid marks malformed or inconsistent input data.
	Invalid Kind = iota + 1
	// Failure marks an internal construction failure.
	Failure
	// IOError marks a failure to open, write or close an output.
	IOError
	// NotFound marks an unknown sample set or dataset.
	NotFound
)

func (k Kind) String() string {
	switch k {
	case Invalid:
		return "Invalid"
	case Failure:
		return "Failure"
	case IOError:
		return "IOError"
	case NotFound:
		return "NotFound"
	}
	return "Unknown"
}

// Sentinels for errors.Is matching by kind.
var (
	ErrInvalid  = &Error{Kind: Invalid}
	ErrFailure  = &Error{Kind: Failure}
	ErrIOError  = &Error{Kind: IOError}
	ErrNotFound = &Error{Kind: NotFound}
)

// Error is a classified error with a message and the location of the
// offending input.
type Error struct {
	Kind    Kind
	Message string
	Detail  string   // free-form context, e.g. a file name
	Dataset string   // dataset the bad input came from, if any
	Range   string   // offending range, rendered with contig names
	Alleles []string // offending sequences, if any
	Err     error    // underlying cause
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if b.Len() == 0 {
		b.WriteString(e.Kind.String())
	}
	var ctx []string
	if e.Dataset != "" {
		ctx = append(ctx, e.Dataset)
	}
	ctx = append(ctx, e.Alleles...)
	if e.Range != "" {
		if len(e.Alleles) == 1 && len(ctx) > 0 {
			ctx[len(ctx)-1] += "@" + e.Range
		} else {
			ctx = append(ctx, e.Range)
		}
	}
	if e.Detail != "" {
		ctx = append(ctx, e.Detail)
	}
	if len(ctx) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(ctx, " "))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so callers can write
// errors.Is(err, status.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == "" && e.Kind != 0
}

// MarshalLogObject lets zap log the structured context as fields.
func (e *Error) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("kind", e.Kind.String())
	enc.AddString("message", e.Message)
	if e.Dataset != "" {
		enc.AddString("dataset", e.Dataset)
	}
	if e.Range != "" {
		enc.AddString("range", e.Range)
	}
	if len(e.Alleles) > 0 {
		enc.AddString("alleles", strings.Join(e.Alleles, ","))
	}
	if e.Detail != "" {
		enc.AddString("detail", e.Detail)
	}
	if e.Err != nil {
		enc.AddString("cause", e.Err.Error())
	}
	return nil
}

// New returns an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf is shorthand for an Error carrying a Detail string.
func Newf(kind Kind, message, detail string) *Error {
	return &Error{Kind: kind, Message: message, Detail: detail}
}

// Wrap classifies err under kind.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
