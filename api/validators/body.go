package validators

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/medimart-health/medimart-backend/pkg/errors"
)

const maxBodyBytes = 1 << 20 // 1 MiB

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeBody parses and validates a JSON request body into dst.
func DecodeBody(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	defer io.Copy(io.Discard, r.Body)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return errors.Wrap(errors.CodeValidation, err, "invalid request body")
	}

	if err := validate.Struct(dst); err != nil {
		var fields []map[string]string
		if invalid, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range invalid {
				fields = append(fields, map[string]string{
					"field": fe.Field(),
					"rule":  fe.Tag(),
				})
			}
		}
		return errors.Wrap(errors.CodeValidation, err, "request validation failed").
			WithDetails(fields)
	}
	return nil
}
