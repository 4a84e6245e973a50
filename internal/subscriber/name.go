// internal/subscriber/name.go
package subscriber

import (
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

// MaxNameLength is the longest accepted name, counted in grapheme clusters
// so that combining marks do not count against the limit.
const MaxNameLength = 256

const forbiddenNameCharacters = `/()"<>\{}`

// Name is a validated subscriber name. The zero value is not a valid name;
// use ParseName.
type Name struct {
	value string
}

// ParseName validates raw as a subscriber name.
func ParseName(raw string) (Name, error) {
	if strings.TrimSpace(raw) == "" {
		return Name{}, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if uniseg.GraphemeClusterCount(raw) > MaxNameLength {
		return Name{}, &ValidationError{Field: "name", Reason: "must be at most 256 characters"}
	}
	for _, r := range raw {
		if unicode.IsControl(r) {
			return Name{}, &ValidationError{Field: "name", Reason: "must not contain control characters"}
		}
		if strings.ContainsRune(forbiddenNameCharacters, r) {
			return Name{}, &ValidationError{Field: "name", Reason: "contains a forbidden character"}
		}
	}
	return Name{value: raw}, nil
}

func (n Name) String() string {
	return n.value
}
