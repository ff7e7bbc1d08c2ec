package normalizer

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	errInvalidSource = errors.New("invalid source")
	errEmptyData     = errors.New("missing data payload")
	errInvalidURL    = errors.New("invalid url")
)

type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// Validator guards dataset submissions before any parsing happens.
type Validator struct {
	allowedSchemes map[string]struct{}
}

func NewValidator(schemes ...string) *Validator {
	if len(schemes) == 0 {
		schemes = []string{"http", "https"}
	}
	allowed := make(map[string]struct{}, len(schemes))
	for _, s := range schemes {
		if trimmed := strings.TrimSpace(strings.ToLower(s)); trimmed != "" {
			allowed[trimmed] = struct{}{}
		}
	}
	return &Validator{allowedSchemes: allowed}
}

func (v *Validator) ValidateSource(source string) error {
	if strings.TrimSpace(source) == "" {
		return ValidationError{reason: fmt.Errorf("source required: %w", errInvalidSource)}
	}
	return nil
}

// ValidateURL accepts absolute URLs with an allowed scheme and a host.
func (v *Validator) ValidateURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ValidationError{reason: fmt.Errorf("url required: %w", errInvalidURL)}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, ValidationError{reason: fmt.Errorf("parse url: %w", errors.Join(errInvalidURL, err))}
	}
	if _, ok := v.allowedSchemes[strings.ToLower(u.Scheme)]; !ok {
		return nil, ValidationError{reason: fmt.Errorf("scheme '%s' not allowed: %w", u.Scheme, errInvalidURL)}
	}
	if u.Host == "" {
		return nil, ValidationError{reason: fmt.Errorf("host required: %w", errInvalidURL)}
	}
	return u, nil
}
