package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/f3nation/f3map/modules/org/domain/updaterequest"
)

var hhmmPattern = regexp.MustCompile(`^\d{4}$`)

// DaysOfWeek are the accepted eventDayOfWeek values.
var DaysOfWeek = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// ValidatedRequest is a payload that passed schema validation. The
// auto-approve hint has been lifted out of event metadata.
type ValidatedRequest struct {
	Kind        updaterequest.Kind
	Payload     updaterequest.Payload
	AutoApprove bool
}

// RequestValidator checks payload shape only; it never reads the store.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return IsHHmm(fl.Field().String())
	})
	_ = v.RegisterValidation("dayofweek", func(fl validator.FieldLevel) bool {
		return isDayOfWeek(fl.Field().String())
	})
	return &RequestValidator{validate: v}
}

// IsHHmm reports whether s is a 24-hour clock time written as four digits.
func IsHHmm(s string) bool {
	if !hhmmPattern.MatchString(s) {
		return false
	}
	hours := int(s[0]-'0')*10 + int(s[1]-'0')
	minutes := int(s[2]-'0')*10 + int(s[3]-'0')
	return hours < 24 && minutes < 60
}

func isDayOfWeek(s string) bool {
	for _, d := range DaysOfWeek {
		if s == d {
			return true
		}
	}
	return false
}

// Validate decodes raw into the payload type of kind and checks it.
func (v *RequestValidator) Validate(kind updaterequest.Kind, raw []byte) (ValidatedRequest, error) {
	if kind.IsLegacy() {
		return ValidatedRequest{}, newLegacyRequestTypeError()
	}
	payload, ok := updaterequest.NewPayload(kind)
	if !ok {
		return ValidatedRequest{}, newValidationError("requestType", fmt.Sprintf("unknown request type %q", kind))
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return ValidatedRequest{}, newValidationError("payload", "is required")
	}
	if err := decodePayload(raw, payload); err != nil {
		return ValidatedRequest{}, err
	}
	if err := v.ValidatePayload(payload); err != nil {
		return ValidatedRequest{}, err
	}

	autoApprove := updaterequest.AutoApproveHint(payload)
	updaterequest.StripAutoApproveHint(payload)
	return ValidatedRequest{Kind: kind, Payload: payload, AutoApprove: autoApprove}, nil
}

// ValidatePayload runs the schema checks on an already decoded payload.
func (v *RequestValidator) ValidatePayload(payload updaterequest.Payload) error {
	if err := v.validate.Struct(payload); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return newValidationError(verrs[0].Field(), reasonFor(verrs[0]))
		}
		return newValidationError("payload", err.Error())
	}
	if edit, ok := payload.(updaterequest.Edit); ok {
		changes, err := edit.Changes()
		if err != nil {
			return newValidationError("payload", err.Error())
		}
		if string(changes) == "{}" {
			return newValidationError("payload", "an edit must change at least one field")
		}
	}
	return nil
}

func decodePayload(raw []byte, payload updaterequest.Payload) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(payload); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return newValidationError(typeErr.Field, fmt.Sprintf("must be of type %s", typeErr.Type))
		}
		return newValidationError("payload", "malformed JSON")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return newValidationError("payload", "trailing data after JSON object")
	}
	return nil
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		if fe.Param() == "0" {
			return "must be a positive integer"
		}
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "min":
		if fe.Kind() == reflect.Slice {
			return "must contain at least " + fe.Param() + " item(s)"
		}
		return "must be at least " + fe.Param() + " character(s)"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "hhmm":
		return "must be a 24-hour time in HHmm format"
	case "dayofweek":
		return "must be one of " + strings.Join(DaysOfWeek, ", ")
	case "url":
		return "must be a URL"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "failed " + fe.Tag() + " check"
	}
}
