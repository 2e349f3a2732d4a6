package shared

import (
	"regexp"
	"strings"
)

var (
	schemePrefix = regexp.MustCompile(`^https?://`)
	wwwPrefix    = regexp.MustCompile(`^www\.`)
	pathSuffix   = regexp.MustCompile(`/.*$`)
)

// CleanDomain reduces user input such as "https://www.Example.com/about"
// to the bare domain "example.com".
func CleanDomain(input string) string {
	d := strings.TrimSpace(input)
	d = schemePrefix.ReplaceAllString(d, "")
	d = wwwPrefix.ReplaceAllString(d, "")
	d = pathSuffix.ReplaceAllString(d, "")
	return strings.ToLower(d)
}

func ValidateDomain(domain string) error {
	if strings.TrimSpace(domain) == "" {
		return &ValidationError{Field: "domain", Message: "Please enter a domain to search archives"}
	}
	if strings.ContainsAny(domain, " \t\r\n?#\\") {
		return &ValidationError{Field: "domain", Message: "domain contains invalid characters"}
	}
	return nil
}

// ValidateTimestamp rejects snapshot identities that could escape the
// backend path they are interpolated into.
func ValidateTimestamp(ts string) error {
	if ts == "" {
		return &ValidationError{Field: "timestamp", Message: "timestamp is required"}
	}
	if strings.ContainsAny(ts, "/\\?#") || strings.Contains(ts, "..") {
		return &ValidationError{Field: "timestamp", Message: "timestamp contains invalid characters"}
	}
	return nil
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Kind() ErrorKind { return KindValidation }
