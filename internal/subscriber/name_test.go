package subscriber

import (
	"errors"
	"strings"
	"testing"

	"github.com/rivo/uniseg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseName(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "plain name", raw: "Ursula", wantErr: false},
		{name: "name with spaces", raw: "le guin", wantErr: false},
		{name: "unicode name", raw: "Ælfgifu Ó Súilleabháin", wantErr: false},
		{name: "exactly 256 code points", raw: strings.Repeat("ё", 256), wantErr: false},
		{name: "empty", raw: "", wantErr: true},
		{name: "whitespace only", raw: "  \t ", wantErr: true},
		{name: "257 code points", raw: strings.Repeat("a", 257), wantErr: true},
		{name: "combining marks count once", raw: strings.Repeat("e\u0301", 200), wantErr: false},
		{name: "256 graphemes with combining marks", raw: strings.Repeat("e\u0301", 256), wantErr: false},
		{name: "257 graphemes with combining marks", raw: strings.Repeat("e\u0301", 257), wantErr: true},
		{name: "newline", raw: "Ursula\nLe Guin", wantErr: true},
		{name: "angle brackets", raw: "<script>", wantErr: true},
		{name: "backslash", raw: `a\b`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, err := ParseName(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				var vErr *ValidationError
				assert.True(t, errors.As(err, &vErr))
				assert.Equal(t, "name", vErr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.raw, name.String())
		})
	}
}

func TestParseNameRejectsForbiddenCharacters(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		prefix := rapid.StringMatching(`[A-Za-z ]{0,20}`).Draw(t, "prefix")
		bad := rapid.SampledFrom([]rune(forbiddenNameCharacters)).Draw(t, "forbidden")
		suffix := rapid.StringMatching(`[A-Za-z ]{0,20}`).Draw(t, "suffix")

		if _, err := ParseName(prefix + string(bad) + suffix); err == nil {
			t.Fatalf("name containing %q was accepted", bad)
		}
	})
}

func TestParseNameRejectsLongNames(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.StringOfN(rapid.RuneFrom([]rune("aé名")), MaxNameLength+1, MaxNameLength+64, -1).Draw(t, "raw")

		if _, err := ParseName(raw); err == nil {
			t.Fatalf("name of %d characters was accepted", uniseg.GraphemeClusterCount(raw))
		}
	})
}

func TestParseNameAcceptsOrdinaryNames(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.StringMatching(`[A-Za-z][A-Za-z '\-]{0,60}`).Draw(t, "raw")

		name, err := ParseName(raw)
		if err != nil {
			t.Fatalf("name %q was rejected: %v", raw, err)
		}
		if name.String() != raw {
			t.Fatalf("got %q, want %q", name.String(), raw)
		}
	})
}
