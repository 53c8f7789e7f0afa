package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager([]byte("secret"))
	in := &Principal{UserID: "42", UserName: "reader", Roles: []string{"User"}, SecurityStamp: "stamp"}

	token, expires, err := tm.Issue(in, PurposeAuthCookie, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	out, err := tm.Parse(token, PurposeAuthCookie)
	require.NoError(t, err)
	assert.Equal(t, in.UserID, out.UserID)
	assert.Equal(t, in.UserName, out.UserName)
	assert.Equal(t, in.Roles, out.Roles)
	assert.Equal(t, in.SecurityStamp, out.SecurityStamp)
}

func TestTokenRejections(t *testing.T) {
	tm := NewTokenManager([]byte("secret"))
	p := &Principal{UserID: "42"}

	token, _, err := tm.Issue(p, PurposeConfirmEmail, time.Hour)
	require.NoError(t, err)

	_, err = tm.Parse(token, PurposeAuthCookie)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong purpose")

	_, err = NewTokenManager([]byte("other")).Parse(token, PurposeConfirmEmail)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong key")

	expired, _, err := tm.Issue(p, PurposeConfirmEmail, -time.Minute)
	require.NoError(t, err)
	_, err = tm.Parse(expired, PurposeConfirmEmail)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired")
}
