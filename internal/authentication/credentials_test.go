package authentication

import (
	"encoding/base64"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func basic(userPass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(userPass))
}

func TestBasicAuthentication(t *testing.T) {
	creds, err := BasicAuthentication(http.Header{"Authorization": {basic("admin:s3cr:et")}})
	require.NoError(t, err)

	assert.Equal(t, "admin", creds.Username)
	assert.Equal(t, "s3cr:et", creds.Password.Expose())
}

func TestBasicAuthenticationRejectsMalformedHeaders(t *testing.T) {
	tests := []struct {
		name   string
		header http.Header
	}{
		{name: "missing header", header: http.Header{}},
		{name: "invalid utf8", header: http.Header{"Authorization": {"Basic \xff\xfe"}}},
		{name: "bearer scheme", header: http.Header{"Authorization": {"Bearer abc"}}},
		{name: "lowercase scheme", header: http.Header{"Authorization": {"basic " + base64.StdEncoding.EncodeToString([]byte("a:b"))}}},
		{name: "not base64", header: http.Header{"Authorization": {"Basic !!!not-base64!!!"}}},
		{name: "decoded not utf8", header: http.Header{"Authorization": {"Basic " + base64.StdEncoding.EncodeToString([]byte{0xff, ':', 'a'})}}},
		{name: "no password", header: http.Header{"Authorization": {basic("admin")}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BasicAuthentication(tt.header)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestCredentialsDoNotLeakPassword(t *testing.T) {
	creds, err := BasicAuthentication(http.Header{"Authorization": {basic("admin:hunter2")}})
	require.NoError(t, err)

	assert.NotContains(t, creds.Password.String(), "hunter2")
}
