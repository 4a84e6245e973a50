// internal/secret/secret.go
package secret

import (
	"encoding/json"

	"go.uber.org/zap/zapcore"
)

const redacted = "[REDACTED]"

// String holds a sensitive value. It prints, marshals and logs as
// [REDACTED]; Expose is the only way to read the value back.
type String struct {
	value string
}

// New wraps value.
func New(value string) String {
	return String{value: value}
}

// Expose returns the wrapped value.
func (s String) Expose() string {
	return s.value
}

// IsEmpty reports whether no value is held.
func (s String) IsEmpty() bool {
	return s.value == ""
}

func (s String) String() string {
	return redacted
}

func (s String) GoString() string {
	return redacted
}

func (s String) MarshalJSON() ([]byte, error) {
	return json.Marshal(redacted)
}

func (s String) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

// UnmarshalText lets configuration loaders populate a String from the environment.
func (s *String) UnmarshalText(text []byte) error {
	s.value = string(text)
	return nil
}

// MarshalLogObject keeps the value out of zap output when logged with zap.Object.
func (s String) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("value", redacted)
	return nil
}
