/*
Package errors provides the error package for redash-go. It wraps all errors returned by the client,
the cursor and the database/sql adapter. No error should be generated that doesn't come from this package.
This borrows heavily from the Upspin errors paper written by Rob Pike.
See: https://commandcenter.blogspot.com/2017/12/error-handling-in-upspin.html

Usage is simply to pass an Op, a Kind, and either a standard error to be wrapped or string that will become
a string error.

	return errors.ES(errors.OpPollJob, errors.KTimeout, "job(%s) did not finish after %d attempts", id, n)

Callers distinguish failures by Kind:

	if errors.IsKind(err, errors.KTimeout) {
		// we gave up waiting
	}
*/
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Separator is the string used to separate nested errors. By
// default, to make errors easier on the eye, nested errors are
// indented on a new line.
var Separator = ":\n\t"

// Op field denotes the operation being performed.
type Op uint16

const (
	OpUnknown         Op = 0  // OpUnknown indicates that the operation that caused the problem is unknown.
	OpConnect         Op = 1  // OpConnect indicates that a client or connection is being constructed.
	OpListDataSources Op = 2  // OpListDataSources indicates a GET /data_sources call.
	OpListQueries     Op = 3  // OpListQueries indicates a GET /queries call.
	OpGetQuery        Op = 4  // OpGetQuery indicates a GET /queries/{id} call.
	OpCreateQuery     Op = 5  // OpCreateQuery indicates a POST /queries call.
	OpExecute         Op = 6  // OpExecute indicates a POST /query_results call.
	OpPollJob         Op = 7  // OpPollJob indicates that a job is being waited on.
	OpFetchResult     Op = 8  // OpFetchResult indicates a GET /query_results/{id} call.
	OpTestConnection  Op = 9  // OpTestConnection indicates a liveness check.
	OpClassify        Op = 10 // OpClassify indicates that query text is being classified.
	OpCursor          Op = 11 // OpCursor indicates a read from a result cursor.
	OpDriver          Op = 12 // OpDriver indicates a call on the database/sql driver surface.
)

var opNames = map[Op]string{
	OpUnknown:         "OpUnknown",
	OpConnect:         "OpConnect",
	OpListDataSources: "OpListDataSources",
	OpListQueries:     "OpListQueries",
	OpGetQuery:        "OpGetQuery",
	OpCreateQuery:     "OpCreateQuery",
	OpExecute:         "OpExecute",
	OpPollJob:         "OpPollJob",
	OpFetchResult:     "OpFetchResult",
	OpTestConnection:  "OpTestConnection",
	OpClassify:        "OpClassify",
	OpCursor:          "OpCursor",
	OpDriver:          "OpDriver",
}

func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Op(%d)", uint16(o))
}

// Kind field classifies the error as one of a set of standard conditions.
type Kind uint16

const (
	KOther          Kind = 0  // Other indicates the error kind was not defined.
	KConfiguration  Kind = 1  // Bad connection target or missing API key.
	KSyntax         Kind = 2  // Query text that is not supported.
	KTransport      Kind = 3  // Network or HTTP-layer failure. This wraps the http library error types.
	KAuthentication Kind = 4  // The service rejected the API key (401/403).
	KRemote         Kind = 5  // The service returned a non-2xx status or a job failed.
	KTimeout        Kind = 6  // The job polling bound was exceeded.
	KConversion     Kind = 7  // A cell value could not be coerced to the requested type.
	KIllegalState   Kind = 8  // Cursor misuse, such as reading before Next().
	KNotFound       Kind = 9  // A column, data source or query does not exist.
	KUnsupported    Kind = 10 // A mutating or advanced capability outside the client's scope.
	KInternal       Kind = 11 // Internal error or inconsistency, such as a malformed response.
	KCanceled       Kind = 12 // The caller's context was canceled.
)

var kindNames = map[Kind]string{
	KOther:          "KOther",
	KConfiguration:  "KConfiguration",
	KSyntax:         "KSyntax",
	KTransport:      "KTransport",
	KAuthentication: "KAuthentication",
	KRemote:         "KRemote",
	KTimeout:        "KTimeout",
	KConversion:     "KConversion",
	KIllegalState:   "KIllegalState",
	KNotFound:       "KNotFound",
	KUnsupported:    "KUnsupported",
	KInternal:       "KInternal",
	KCanceled:       "KCanceled",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", uint16(k))
}

// Error is a core error for the redash-go packages.
type Error struct {
	// Op is the operations that the client was trying to perform.
	Op Op
	// Kind is the error code we identify the error as.
	Kind Kind
	// Err is the wrapped internal error message. This may be of any error
	// type and may also wrap errors.
	Err error

	// StatusCode is the HTTP status returned by the service, if any.
	StatusCode int
	// Body is the raw response body returned with a non-2xx status, if any.
	Body []byte

	inner *Error
}

// Unwrap implements "interface {Unwrap() error}" as defined internally by the go stdlib errors package.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	if e.inner == nil {
		return e.Err
	}
	return e.inner
}

// Message returns the text of the wrapped error without the Op and Kind decoration.
// For a failed job this is exactly the error text reported by the service.
func (e *Error) Message() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// pad appends str to the buffer if the buffer already has some content.
func pad(b *strings.Builder, str string) {
	if b.Len() == 0 {
		return
	}
	b.WriteString(str)
}

func (e *Error) Error() string {
	b := new(strings.Builder)
	if e.Op != OpUnknown {
		pad(b, ": ")
		b.WriteString(fmt.Sprintf("Op(%s)", e.Op.String()))
	}
	if e.Kind != KOther {
		pad(b, ": ")
		b.WriteString(fmt.Sprintf("Kind(%s)", e.Kind.String()))
	}

	if e.Err != nil {
		pad(b, ": ")
		b.WriteString(e.Err.Error())
	}
	for inner := e.inner; inner != nil; inner = inner.inner {
		pad(b, Separator)
		b.WriteString(inner.Err.Error())
	}

	if b.Len() == 0 {
		return "no error"
	}
	return b.String()
}

// E constructs an Error. You may pass in an Op, Kind and error. If err is an *Error, its Op and Kind
// are replaced and only its wrapped error is kept. If you want to wrap the *Error in an *Error, use W().
// If you pass a nil error, it panics.
func E(o Op, k Kind, err error) *Error {
	if err == nil {
		panic("cannot pass a nil error")
	}
	if e, ok := err.(*Error); ok && e.inner == nil {
		cp := *e
		cp.Op = o
		cp.Kind = k
		return &cp
	}
	return &Error{Op: o, Kind: k, Err: err}
}

// ES constructs an Error. You may pass in an Op, Kind, string and args to the string (like fmt.Sprintf).
// If the result of strings.TrimSpace(s+args) == "", it panics.
func ES(o Op, k Kind, s string, args ...interface{}) *Error {
	str := fmt.Sprintf(s, args...)
	if strings.TrimSpace(str) == "" {
		panic("errors.ES() cannot have an empty string error")
	}
	return &Error{Op: o, Kind: k, Err: errors.New(str)}
}

// HTTP constructs an *Error from a non-2xx HTTP response. status is the text status line and body is
// the raw response body, which is kept verbatim.
func HTTP(o Op, status string, code int, body []byte, prefix string) *Error {
	kind := KRemote
	if code == 401 || code == 403 {
		kind = KAuthentication
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = status
	}

	e := ES(o, kind, "%s: %s", prefix, msg)
	e.StatusCode = code
	e.Body = body
	return e
}

// W wraps error outer around inner. Both must be of type *Error or this will panic.
func W(inner error, outer error) *Error {
	o, ok := outer.(*Error)
	if !ok {
		panic("W() got an outer error that was not of type *Error")
	}
	i, ok := inner.(*Error)
	if !ok {
		panic("W() got an inner error that was not of type *Error")
	}

	o.inner = i
	return o
}

// GetKind returns the Kind of the first *Error in err's chain, or KOther if there is none.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KOther
}

// IsKind reports whether the first *Error in err's chain has Kind k. The Kinds of errors wrapped
// inside it with W are not consulted.
func IsKind(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}
