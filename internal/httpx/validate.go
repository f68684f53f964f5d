package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ariefcatur/go-restaurant-orders/internal/apperr"
)

const maxBody = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and runs the struct's validate tags.
// Unknown fields and trailing data are rejected.
func decode(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return apperr.Validation("invalid body", nil)
	}
	return decodeBytes(body, dst)
}

func decodeBytes(body []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("missing fields", nil)
		}
		return apperr.Validation("invalid json: "+err.Error(), nil)
	}
	if dec.More() {
		return apperr.Validation("invalid json: trailing data", nil)
	}
	return check(dst)
}

func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Internal("validate", err)
	}
	fields := make(map[string]string, len(verrs))
	onlyRequired := true
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
		if fe.Tag() != "required" {
			onlyRequired = false
		}
	}
	msg := "invalid request"
	if onlyRequired {
		msg = "missing fields"
	}
	return apperr.Validation(msg, fields)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "must be a valid " + fe.Tag()
	}
}
