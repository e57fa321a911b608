package identity_test

import (
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/rpggio/hitparade/internal/identity"
	"github.com/stretchr/testify/require"
)

const botToken = "123456:TEST-TOKEN"

var now = time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)

func initData(authDate time.Time) url.Values {
	return url.Values{
		"query_id":  {"AAHdF6IQAAAAAN0XohDhrOrc"},
		"user":      {`{"id":279058397,"first_name":"Vlad","username":"vlad"}`},
		"auth_date": {strconv.FormatInt(authDate.Unix(), 10)},
	}
}

func verifier(opts identity.Options) *identity.Verifier {
	opts.Clock = func() time.Time { return now }
	return identity.NewVerifier(opts)
}

func TestVerify_ValidSignature(t *testing.T) {
	v := verifier(identity.Options{BotToken: botToken, MaxAge: 24 * time.Hour})

	user, err := v.Verify(identity.Sign(initData(now.Add(-time.Hour)), botToken))
	require.NoError(t, err)
	require.Equal(t, "279058397", user.ID)
	require.Equal(t, "vlad", user.Username)
	require.True(t, user.Verified)
}

func TestVerify_Rejections(t *testing.T) {
	v := verifier(identity.Options{BotToken: botToken, MaxAge: 24 * time.Hour})

	_, err := v.Verify("  ")
	require.ErrorIs(t, err, identity.ErrAuthRequired)

	tampered := initData(now)
	signed, err := url.ParseQuery(identity.Sign(tampered, botToken))
	require.NoError(t, err)
	signed.Set("user", `{"id":1}`)
	_, err = v.Verify(signed.Encode())
	require.ErrorIs(t, err, identity.ErrAuthInvalid)

	_, err = v.Verify(identity.Sign(initData(now), "other-bot"))
	require.ErrorIs(t, err, identity.ErrAuthInvalid)

	_, err = v.Verify(initData(now).Encode())
	require.ErrorIs(t, err, identity.ErrAuthInvalid)

	_, err = v.Verify(identity.Sign(initData(now.Add(-25*time.Hour)), botToken))
	require.ErrorIs(t, err, identity.ErrAuthInvalid)

	_, err = v.Verify(identity.Sign(initData(now.Add(10*time.Minute)), botToken))
	require.ErrorIs(t, err, identity.ErrAuthInvalid)

	noUser := initData(now)
	noUser.Del("user")
	_, err = v.Verify(identity.Sign(noUser, botToken))
	require.ErrorIs(t, err, identity.ErrAuthInvalid)
}

func TestVerify_NoTokenConfigured(t *testing.T) {
	strict := verifier(identity.Options{})
	require.False(t, strict.Enabled())
	_, err := strict.Verify(initData(now).Encode())
	require.ErrorIs(t, err, identity.ErrAuthInvalid)

	dev := verifier(identity.Options{AllowUnverified: true})
	require.True(t, dev.Enabled())
	user, err := dev.Verify(initData(now).Encode())
	require.NoError(t, err)
	require.Equal(t, "279058397", user.ID)
	require.False(t, user.Verified)

	_, err = dev.Verify("")
	require.ErrorIs(t, err, identity.ErrAuthRequired)
}

func TestDataCheckString(t *testing.T) {
	values := url.Values{"b": {"2"}, "a": {"1"}, "hash": {"x"}}
	require.Equal(t, "a=1\nb=2", identity.DataCheckString(values))
}
