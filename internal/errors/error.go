package errors

import (
	"encoding/json"
	stderr "errors"
	"fmt"
	"net/http"
	"strings"
)

// An internal Error details.
// JSON form matches the backend error envelope, so a response
// body can be parsed back into the same structure.
type Error struct {
	ID      string `json:"id,omitempty"`      // e.g.: "workspace.switch.denied"
	Code    int32  `json:"code,omitempty"`    // HTTP-alike status code
	Status  string `json:"status,omitempty"`  // machine-readable status ; NEVER collapsed
	Message string `json:"message,omitempty"` // human-readable details
}

var _ error = (*Error)(nil)

// Parse tries to parse a JSON string into an error. If that
// fails, it will set the given string as the error detail.
func Parse(message string) (err *Error, ok bool) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, true
	}
	src := new(Error)
	der := json.Unmarshal(
		[]byte(message), src,
	)
	if der != nil || (src.Status == "" && src.Message == "") {
		src.Message = message
		return src, false
	}
	return src, true
}

// FromError resolves the structured error carried by [src], if any.
func FromError(src error) (err *Error, ok bool) {
	if src == nil {
		return nil, true
	}
	if stderr.As(src, &err) {
		return err, true
	}
	return Parse(src.Error())
}

func (err *Error) Error() string {
	if err == nil {
		return ""
	}
	data, re := json.Marshal(err)
	if re != nil {
		return err.Message
	}
	return string(data)
}

func (err *Error) String() string {

	if err == nil {
		return ""
	}

	var (
		indent string
		format strings.Builder
	)
	defer format.Reset()

	if err.Code > 0 {
		fmt.Fprintf(&format, "(#%d)", err.Code)
		indent = " "
	}

	if err.Status != "" {
		format.WriteString(indent)
		format.WriteString(err.Status)
		indent = " ; "
	}

	if err.Message != "" {
		format.WriteString(indent)
		format.WriteString(err.Message)
	}

	return format.String()
}

type Option func(err *Error)

// Error.ID Option
func ID(id string) Option {
	return func(err *Error) {
		if id != "" {
			err.ID = id
		}
	}
}

// Error.Code Option
func Code(code int32) Option {
	return func(err *Error) {
		if code > 0 {
			err.Code = code
		}
	}
}

// Error.Status Option
func Status(code string) Option {
	return func(err *Error) {
		if code != "" {
			err.Status = code
		}
	}
}

func Message(form string, args ...any) Option {
	return func(err *Error) {
		text := form
		if len(args) > 0 {
			if form == "" {
				text = fmt.Sprint(args...)
			} else {
				text = fmt.Sprintf(form, args...)
			}
		}
		err.Message = text
	}
}

func New(opts ...Option) (err *Error) {
	err = &Error{}
	err.init(opts)
	return // err
}

func (err *Error) init(opts []Option) {
	for _, setup := range opts {
		setup(err)
	}
}

func Errorf(message string, args ...any) *Error {
	return New(Message(message, args...))
}

// (#401) UNAUTHORIZED
//
//	 New(
//		Status("UNAUTHORIZED"),
//		Code(http.StatusUnauthorized),
//		opts...,
//	)
func Unauthorized(opts ...Option) *Error {
	err := New(
		Status("UNAUTHORIZED"),
		Code(http.StatusUnauthorized),
	)
	err.init(opts)
	return err
}

// (#403) FORBIDDEN
//
//	 New(
//		Status("FORBIDDEN"),
//		Code(http.StatusForbidden),
//		opts...,
//	)
func Forbidden(opts ...Option) *Error {
	err := New(
		Status("FORBIDDEN"),
		Code(http.StatusForbidden),
	)
	err.init(opts)
	return err
}

// (#400) BAD_REQUEST
//
//	 New(
//		Status("BAD_REQUEST"),
//		Code(http.StatusBadRequest),
//		opts...,
//	)
func BadRequest(opts ...Option) *Error {
	err := New(
		Status("BAD_REQUEST"),
		Code(http.StatusBadRequest),
	)
	err.init(opts)
	return err
}

// (#404) NOT_FOUND
//
//	 New(
//		Status("NOT_FOUND"),
//		Code(http.StatusNotFound),
//		opts...,
//	)
func NotFound(opts ...Option) *Error {
	err := New(
		Status("NOT_FOUND"),
		Code(http.StatusNotFound),
	)
	err.init(opts)
	return err
}
