package response

import (
	"errors"

	"github.com/fatflowers/tgpass/pkg/apperr"
)

// Generic response envelope
type APIResponseCode int

const (
	APIResponseCodeOK           APIResponseCode = 0
	APIResponseCodeBadRequest   APIResponseCode = 40000
	APIResponseCodeUnauthorized APIResponseCode = 40100
	APIResponseCodeForbidden    APIResponseCode = 40300
	APIResponseCodeNotFound     APIResponseCode = 40400
	APIResponseCodeConflict     APIResponseCode = 40900
	APIResponseCodeError        APIResponseCode = 50000
	APIResponseCodeUpstream     APIResponseCode = 50200
)

var codeToMsg = map[APIResponseCode]string{
	APIResponseCodeOK:           "ok",
	APIResponseCodeBadRequest:   "unexpected error",
	APIResponseCodeUnauthorized: "unauthorized",
	APIResponseCodeForbidden:    "forbidden",
	APIResponseCodeNotFound:     "not found",
	APIResponseCodeConflict:     "conflict",
	APIResponseCodeError:        "internal error",
	APIResponseCodeUpstream:     "upstream unavailable",
}

// APIResponse is the generic response envelope used by HTTP APIs.
// Use OKT / ErrorT helpers to construct instances.
type APIResponse[T any] struct {
	Code    APIResponseCode `json:"code"`
	Message string          `json:"message"`
	Data    T               `json:"data"`
}

// ErrorData is the payload of a failed business call.
type ErrorData struct {
	Reason string `json:"reason,omitempty"`
}

// OKT returns a successful response with data.
func OKT[T any](data T) *APIResponse[T] {
	return &APIResponse[T]{Code: APIResponseCodeOK, Message: codeToMsg[APIResponseCodeOK], Data: data}
}

// ErrorT returns an error response with message and optional data.
func ErrorT[T any](code APIResponseCode, data T) *APIResponse[T] {
	return &APIResponse[T]{Code: code, Message: codeToMsg[code], Data: data}
}

// ErrorMsgT is ErrorT with an explicit message.
func ErrorMsgT[T any](code APIResponseCode, msg string, data T) *APIResponse[T] {
	if msg == "" {
		msg = codeToMsg[code]
	}
	return &APIResponse[T]{Code: code, Message: msg, Data: data}
}

// CodeOf maps an error kind to a response code.
func CodeOf(err error) APIResponseCode {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return APIResponseCodeBadRequest
	case apperr.KindNotFound:
		return APIResponseCodeNotFound
	case apperr.KindConflict:
		return APIResponseCodeConflict
	case apperr.KindUpstream:
		return APIResponseCodeUpstream
	}
	return APIResponseCodeError
}

// FromError builds the failure envelope for err. Internal errors get a
// generic message so that driver details do not leak.
func FromError(err error) *APIResponse[*ErrorData] {
	code := CodeOf(err)
	data := &ErrorData{Reason: apperr.ReasonOf(err)}
	var msg string
	switch code {
	case APIResponseCodeError:
		data.Reason = string(apperr.KindInternal)
	case APIResponseCodeUpstream:
		msg = codeToMsg[code]
	default:
		var ae *apperr.Error
		if errors.As(err, &ae) {
			msg = ae.Message
		}
	}
	return ErrorMsgT(code, msg, data)
}
