package contract

import (
	"errors"
	"fmt"
)

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrUnknownAgent    = errors.New("unknown agent")
	ErrUnknownTool     = errors.New("unknown tool")
	ErrSessionNotFound = errors.New("session not found")
	ErrNotVerified     = errors.New("caller is not verified")
)

// Conversational errors carry the text spoken back to the user instead of
// failing the tool call.
type Conversational interface {
	error
	Reply() string
}

// ReplyError pairs a sentinel with the user-facing reply.
type ReplyError struct {
	Kind error
	Msg  string
}

func Reply(kind error, format string, args ...any) *ReplyError {
	return &ReplyError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func (e *ReplyError) Error() string {
	if e.Kind == nil {
		return e.Msg
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Msg)
}

func (e *ReplyError) Reply() string {
	return e.Msg
}

func (e *ReplyError) Unwrap() error {
	return e.Kind
}

// ReplyText returns the spoken text of err when it is conversational.
func ReplyText(err error) (string, bool) {
	var c Conversational
	if errors.As(err, &c) {
		return c.Reply(), true
	}
	return "", false
}
