// internal/authentication/credentials.go
package authentication

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"newsletter/internal/secret"
)

// ErrInvalidCredentials covers every authentication failure a caller may
// see: a missing or malformed header as well as a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Credentials are a username and password presented for one request.
type Credentials struct {
	Username string
	Password secret.String
}

// BasicAuthentication extracts Credentials from an HTTP Basic Authorization
// header. Every failure wraps ErrInvalidCredentials.
func BasicAuthentication(header http.Header) (Credentials, error) {
	values, ok := header["Authorization"]
	if !ok || len(values) == 0 {
		return Credentials{}, fmt.Errorf("the 'Authorization' header was missing: %w", ErrInvalidCredentials)
	}
	value := values[0]
	if !utf8.ValidString(value) {
		return Credentials{}, fmt.Errorf("the 'Authorization' header was not a valid UTF-8 string: %w", ErrInvalidCredentials)
	}

	encoded, ok := strings.CutPrefix(value, "Basic ")
	if !ok {
		return Credentials{}, fmt.Errorf("the authorization scheme was not 'Basic': %w", ErrInvalidCredentials)
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to base64-decode 'Basic' credentials: %w", errors.Join(ErrInvalidCredentials, err))
	}
	if !utf8.Valid(decoded) {
		return Credentials{}, fmt.Errorf("the decoded credential string is not valid UTF-8: %w", ErrInvalidCredentials)
	}

	username, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return Credentials{}, fmt.Errorf("a password must be provided in 'Basic' auth: %w", ErrInvalidCredentials)
	}

	return Credentials{
		Username: username,
		Password: secret.New(password),
	}, nil
}
