// Package errs provides support for errors related to this app.
package errs

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"runtime"
	"slices"
	"strings"
)

// Failure kinds shared by every domain. Domain errors wrap one of these so the
// transport layer can classify them with errors.Is.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrPersistence = errors.New("persistence failure")
)

// Error represents an error inside the application
type Error struct {
	Code     int               `json:"code"`
	Message  string            `json:"message"`
	FuncName string            `json:"-"`
	FileName string            `json:"-"`
	Fields   map[string]string `json:"fields,omitempty"`
}

func New(code int, err error) error {
	//skip 1 frame and get info about the whatever calls "New".
	pc, filename, line, _ := runtime.Caller(1)

	return &Error{
		Code:     code,
		Message:  err.Error(),
		FuncName: runtime.FuncForPC(pc).Name(),
		FileName: fmt.Sprintf("%s:%d", filename, line),
	}
}

func Newf(code int, format string, args ...any) error {
	pc, filename, line, _ := runtime.Caller(1)
	return &Error{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		FuncName: runtime.FuncForPC(pc).Name(),
		FileName: fmt.Sprintf("%s:%d", filename, line),
	}
}

func NewValidationErr(code int, fields map[string]string) error {
	pc, filename, line, _ := runtime.Caller(1)

	return &Error{
		Code:     code,
		Message:  "input validation failed",
		FuncName: runtime.FuncForPC(pc).Name(),
		FileName: fmt.Sprintf("%s:%d", filename, line),
		Fields:   fields,
	}
}

func (er *Error) Error() string {
	return er.Message
}

//==============================================================================

// FieldErrors aggregates one message per invalid field.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := slices.Sorted(maps.Keys(fe))

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + fe[k]
	}

	return "input validation failed: " + strings.Join(parts, "; ")
}

//==============================================================================

// FromDomain maps a bus or store error onto an Error carrying the matching
// http status. Persistence and unclassified failures become 500s.
func FromDomain(err error) error {
	pc, filename, line, _ := runtime.Caller(1)

	appErr := Error{
		Code:     http.StatusInternalServerError,
		Message:  err.Error(),
		FuncName: runtime.FuncForPC(pc).Name(),
		FileName: fmt.Sprintf("%s:%d", filename, line),
	}

	var fieldErrs FieldErrors
	switch {
	case errors.As(err, &fieldErrs):
		appErr.Code = http.StatusBadRequest
		appErr.Message = "input validation failed"
		appErr.Fields = fieldErrs
	case errors.Is(err, ErrNotFound):
		appErr.Code = http.StatusNotFound
	case errors.Is(err, ErrConflict):
		appErr.Code = http.StatusConflict
	}

	return &appErr
}
