// internal/subscriber/email.go
package subscriber

import (
	"database/sql/driver"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Email is a validated subscriber email address. Two Emails are equal when
// their addresses are byte-for-byte equal, so Email works as a map key.
type Email struct {
	value string
}

// ParseEmail validates raw as an email address. Beyond the usual grammar the
// domain must contain a dot, so "ursula@domain" is rejected.
func ParseEmail(raw string) (Email, error) {
	at := strings.LastIndexByte(raw, '@')
	if at <= 0 || at == len(raw)-1 {
		return Email{}, &ValidationError{Field: "email", Reason: "must have a local part and a domain"}
	}
	domain := raw[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return Email{}, &ValidationError{Field: "email", Reason: "domain must contain a dot"}
	}
	if err := validate.Var(raw, "required,email"); err != nil {
		return Email{}, &ValidationError{Field: "email", Reason: "is not a valid email address"}
	}
	return Email{value: raw}, nil
}

func (e Email) String() string {
	return e.value
}

// Compare orders emails by their underlying string.
func (e Email) Compare(other Email) int {
	return strings.Compare(e.value, other.value)
}

// Value binds the address as a SQL string parameter.
func (e Email) Value() (driver.Value, error) {
	return e.value, nil
}
