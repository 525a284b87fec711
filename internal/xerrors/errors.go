package xerrors

import (
	"errors"
	"strings"
)

// Kind classifies an orchestration failure so callers can branch without
// parsing messages.
type Kind string

const (
	KindUserRejected        Kind = "user_rejected"
	KindPrecondition        Kind = "precondition"
	KindResourceUnavailable Kind = "resource_unavailable"
	KindLedgerRejection     Kind = "ledger_rejection"
	KindResultUnknown       Kind = "result_unknown"
)

// Sentinels usable with errors.Is; any *Error of the same kind matches.
var (
	ErrUserRejected        = &Error{Kind: KindUserRejected, Msg: "user rejected the request"}
	ErrPrecondition        = &Error{Kind: KindPrecondition, Msg: "precondition failed"}
	ErrResourceUnavailable = &Error{Kind: KindResourceUnavailable, Msg: "resource unavailable"}
	ErrLedgerRejection     = &Error{Kind: KindLedgerRejection, Msg: "ledger rejected transaction"}
	ErrResultUnknown       = &Error{Kind: KindResultUnknown, Msg: "transaction result unknown"}
)

// Error is the typed error surfaced by every orchestration layer.
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "transferCrypto".
	Op  string
	Msg string
	// Status carries the ledger status code for ledger rejections.
	Status string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Msg)
	if e.Status != "" {
		b.WriteString(" (status ")
		b.WriteString(e.Status)
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so errors.Is(err, ErrUserRejected) works for any
// user rejection regardless of op or message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// WithOp stamps an operation name onto err when it is an *Error without one.
func WithOp(op string, err error) error {
	var e *Error
	if errors.As(err, &e) && e.Op == "" {
		cp := *e
		cp.Op = op
		return &cp
	}
	return err
}

func UserRejected(op string) error {
	return &Error{Kind: KindUserRejected, Op: op, Msg: "user rejected the request"}
}

func Precondition(op, msg string) error {
	return &Error{Kind: KindPrecondition, Op: op, Msg: msg}
}

func Unavailable(op, msg string, err error) error {
	return &Error{Kind: KindResourceUnavailable, Op: op, Msg: msg, Err: err}
}

func Rejected(op, status string, err error) error {
	return &Error{Kind: KindLedgerRejection, Op: op, Msg: "ledger rejected transaction", Status: status, Err: err}
}

func ResultUnknown(op string, err error) error {
	return &Error{Kind: KindResultUnknown, Op: op, Msg: "transaction submitted but result could not be retrieved", Err: err}
}
