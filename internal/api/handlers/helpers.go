// Package handlers implements the HTTP endpoints of the volunteer API.
package handlers

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nariz-encantado/server/internal/api/problem"
)

// validate is shared across handlers; validator.Validate is safe for
// concurrent use. Field names in error payloads follow the json tags.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func pathParam(r *http.Request, key string) string {
	if r == nil {
		return ""
	}
	return r.PathValue(key)
}

// pathID parses a numeric {id} path segment.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(pathParam(r, "id")), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryInt reads an integer query parameter, falling back on absence or junk.
func queryInt(r *http.Request, key string, fallback int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// decodeAndValidate decodes a JSON body into dst and runs struct validation.
// On failure it writes the problem response and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, env string, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid Request Body", err, env)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var fieldErrors validator.ValidationErrors
		details := map[string]interface{}{}
		if ok := isValidationErrors(err, &fieldErrors); ok {
			for _, fe := range fieldErrors {
				details[fe.Field()] = "failed on '" + fe.Tag() + "'"
			}
		}
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Validation Failed", err, env,
			problem.WithErrors(details))
		return false
	}
	return true
}

func isValidationErrors(err error, target *validator.ValidationErrors) bool {
	if fieldErrors, ok := err.(validator.ValidationErrors); ok {
		*target = fieldErrors
		return true
	}
	return false
}
