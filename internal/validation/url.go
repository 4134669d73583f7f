// Package validation holds input checks shared across components.
package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// URLError describes why a URL was rejected.
type URLError struct {
	Field   string
	Message string
	URL     string
}

func (e URLError) Error() string {
	return fmt.Sprintf("%s: %s (url: %s)", e.Field, e.Message, e.URL)
}

// HTTPURL checks that the value parses as an absolute http or https URL.
// Anything else (javascript:, data:, scheme-less) is rejected so a
// user-influenced value can never smuggle an unexpected scheme into an email
// or a redirect.
func HTTPURL(value, field string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return URLError{Field: field, Message: "invalid URL format", URL: value}
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return URLError{Field: field, Message: "URL scheme must be http or https", URL: value}
	}
	if parsed.Host == "" {
		return URLError{Field: field, Message: "URL must include a host", URL: value}
	}
	return nil
}
