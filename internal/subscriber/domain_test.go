package subscriber

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRequest(t *testing.T) {
	ns, err := FromRequest("le guin", "ursula_le_guin@gmail.com")
	require.NoError(t, err)
	assert.Equal(t, "le guin", ns.Name.String())
	assert.Equal(t, "ursula_le_guin@gmail.com", ns.Email.String())
}

func TestFromRequestReportsEveryInvalidField(t *testing.T) {
	_, err := FromRequest("", "definitely-not-an-email")
	require.Error(t, err)

	var fields []string
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var vErr *ValidationError
		require.True(t, errors.As(e, &vErr))
		fields = append(fields, vErr.Field)
	}
	assert.ElementsMatch(t, []string{"name", "email"}, fields)
}

func TestSubscriptionConfirm(t *testing.T) {
	sub := &Subscription{Status: StatusPendingConfirmation}
	assert.False(t, sub.IsConfirmed())

	require.NoError(t, sub.Confirm())
	assert.True(t, sub.IsConfirmed())

	assert.ErrorIs(t, sub.Confirm(), ErrAlreadyConfirmed)
	assert.Equal(t, StatusConfirmed, sub.Status)
}
