package service

import (
	"errors"
	"fmt"

	"github.com/garyjia/facturas-review/internal/invoice"
)

// ErrAlreadyCorrected is returned when an accept or discard targets an
// invoice that is no longer pending, locally or on the remote service
var ErrAlreadyCorrected = errors.New("invoice already corrected")

// ValidationError carries the failing rule codes of an invoice together with
// the form fields they point at
type ValidationError struct {
	Codes  []invoice.ErrorCode
	Fields []invoice.FieldSpec
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invoice failed validation: %s", invoice.JoinCodes(e.Codes))
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}
