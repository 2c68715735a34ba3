package errs

import (
	"errors"
	"strconv"
	"strings"
)

// CodeError is the one error shape that crosses a boundary: WebSocket close
// codes, protocol error frames and REST error bodies all carry Code+Msg, with
// Detail reserved for operator-facing context.
type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) WithDetail(detail string) *CodeError {
	d := detail
	if e.Detail != "" {
		d = e.Detail + ", " + detail
	}
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: d}
}

func (e *CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

func (e *CodeError) Is(err error) bool {
	var ce *CodeError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == e.Code
}

// AsCodeError unwraps err down to a *CodeError if one is in the chain.
func AsCodeError(err error) (*CodeError, bool) {
	var ce *CodeError
	ok := errors.As(err, &ce)
	return ce, ok
}

// Application-defined WebSocket close codes (4000-4999 private-use range).
const (
	CodeBadRequest    = 4000
	CodeAuthFailed    = 4001
	CodeDecryptFailed = 4003
	CodeUnknownType   = 4004
	CodeUnhandledType = 4005
	CodeNotSuperuser  = 4030
)

var (
	ErrBadRequest    = NewCodeError(CodeBadRequest, "malformed message")
	ErrAuthFailed    = NewCodeError(CodeAuthFailed, "authentication failed")
	ErrDecryptFailed = NewCodeError(CodeDecryptFailed, "decryption failed")
	ErrUnknownType   = NewCodeError(CodeUnknownType, "unknown message type")
	ErrUnhandledType = NewCodeError(CodeUnhandledType, "unhandled message type")
	ErrNotSuperuser  = NewCodeError(CodeNotSuperuser, "broadcast requires superuser")
)
