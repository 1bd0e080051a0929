package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/cfn"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Sentinel errors. They can be checked using errors.Is().
var (
	// ErrInvalidRequestType indicates a request type other than Create,
	// Update or Delete.
	ErrInvalidRequestType = errors.New("invalid request type")

	// ErrMissingProperty indicates a required resource property is absent.
	ErrMissingProperty = errors.New("missing resource property")

	// ErrInvalidProperty indicates a resource property has the wrong type
	// or an unparsable value.
	ErrInvalidProperty = errors.New("invalid resource property")
)

// RequestTypeError is returned for an unsupported request type.
type RequestTypeError struct {
	RequestType cfn.RequestType
}

// Error implements the error interface. Request types that only differ in
// case from a supported one get a hint.
func (e *RequestTypeError) Error() string {
	msg := fmt.Sprintf("invalid request type %s", e.RequestType)
	if suggestion := suggestRequestType(e.RequestType); suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %s?)", suggestion)
	}
	return msg
}

// Unwrap returns ErrInvalidRequestType.
func (e *RequestTypeError) Unwrap() error {
	return ErrInvalidRequestType
}

func suggestRequestType(rt cfn.RequestType) cfn.RequestType {
	candidate := cfn.RequestType(cases.Title(language.Und).String(strings.ToLower(strings.TrimSpace(string(rt)))))
	if candidate == rt {
		return ""
	}
	switch candidate {
	case cfn.RequestCreate, cfn.RequestUpdate, cfn.RequestDelete:
		return candidate
	default:
		return ""
	}
}

// PropertyError describes a missing or malformed resource property.
type PropertyError struct {
	Key    string
	Reason string
	// Err is ErrMissingProperty or ErrInvalidProperty.
	Err error
}

// Error implements the error interface.
func (e *PropertyError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Key)
	}
	return fmt.Sprintf("%v: %s: %s", e.Err, e.Key, e.Reason)
}

// Unwrap returns the sentinel error.
func (e *PropertyError) Unwrap() error {
	return e.Err
}

func validateRequestType(rt cfn.RequestType) error {
	switch rt {
	case cfn.RequestCreate, cfn.RequestUpdate, cfn.RequestDelete:
		return nil
	default:
		return &RequestTypeError{RequestType: rt}
	}
}
