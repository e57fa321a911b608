// Package identity verifies Telegram WebApp init data and extracts the
// caller's stable user id.
package identity

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrAuthRequired indicates no init data was presented.
	ErrAuthRequired = errors.New("authentication required")
	// ErrAuthInvalid indicates init data that failed verification.
	ErrAuthInvalid = errors.New("invalid authentication")
)

const (
	webAppDataKey = "WebAppData"
	maxFutureSkew = time.Minute
)

// User is a verified caller.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username,omitempty"`
	FirstName string    `json:"first_name,omitempty"`
	AuthDate  time.Time `json:"auth_date"`
	Verified  bool      `json:"verified"`
}

// Options configures a Verifier.
type Options struct {
	BotToken string
	// MaxAge bounds how old auth_date may be; zero disables the check.
	MaxAge time.Duration
	// AllowUnverified skips signature checks when no bot token is set.
	AllowUnverified bool
	Clock           func() time.Time
}

// Verifier checks init data signatures.
type Verifier struct {
	opts Options
}

// NewVerifier creates a Verifier.
func NewVerifier(opts Options) *Verifier {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Verifier{opts: opts}
}

// Enabled reports whether init data can be accepted at all.
func (v *Verifier) Enabled() bool {
	return v.opts.BotToken != "" || v.opts.AllowUnverified
}

// Verify validates initData and returns the user it was issued for.
func (v *Verifier) Verify(initData string) (*User, error) {
	initData = strings.TrimSpace(initData)
	if initData == "" {
		return nil, ErrAuthRequired
	}
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, invalid("malformed query: %v", err)
	}

	verified := false
	switch {
	case v.opts.BotToken != "":
		got := values.Get("hash")
		if got == "" {
			return nil, invalid("hash missing")
		}
		want := computeHash(values, v.opts.BotToken)
		if !hmac.Equal([]byte(strings.ToLower(got)), []byte(want)) {
			return nil, invalid("signature mismatch")
		}
		verified = true
	case !v.opts.AllowUnverified:
		return nil, invalid("no bot token configured")
	}

	user, err := parseUser(values.Get("user"))
	if err != nil {
		return nil, err
	}
	user.Verified = verified

	authDate, err := parseAuthDate(values.Get("auth_date"))
	if err != nil {
		if verified {
			return nil, err
		}
	} else {
		user.AuthDate = authDate
		if verified {
			if err := v.checkAge(authDate); err != nil {
				return nil, err
			}
		}
	}
	return user, nil
}

func (v *Verifier) checkAge(authDate time.Time) error {
	now := v.opts.Clock()
	if authDate.After(now.Add(maxFutureSkew)) {
		return invalid("auth_date in the future")
	}
	if v.opts.MaxAge > 0 && now.Sub(authDate) > v.opts.MaxAge {
		return invalid("auth_date expired")
	}
	return nil
}

// DataCheckString builds the sorted key=value lines that are signed.
func DataCheckString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}
	return strings.Join(lines, "\n")
}

func computeHash(values url.Values, botToken string) string {
	secret := hmac.New(sha256.New, []byte(webAppDataKey))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(DataCheckString(values)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Sign returns values encoded as init data with a valid hash for botToken.
func Sign(values url.Values, botToken string) string {
	signed := url.Values{}
	for k, vs := range values {
		if k != "hash" {
			signed[k] = append([]string(nil), vs...)
		}
	}
	signed.Set("hash", computeHash(signed, botToken))
	return signed.Encode()
}

type userPayload struct {
	ID        json.Number `json:"id"`
	Username  string      `json:"username"`
	FirstName string      `json:"first_name"`
}

func parseUser(raw string) (*User, error) {
	if raw == "" {
		return nil, invalid("user missing")
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var p userPayload
	if err := dec.Decode(&p); err != nil {
		return nil, invalid("user payload: %v", err)
	}
	id, err := p.ID.Int64()
	if err != nil || id == 0 {
		return nil, invalid("user id missing or not an integer")
	}
	return &User{ID: strconv.FormatInt(id, 10), Username: p.Username, FirstName: p.FirstName}, nil
}

func parseAuthDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, invalid("auth_date missing")
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || secs <= 0 {
		return time.Time{}, invalid("auth_date malformed")
	}
	return time.Unix(secs, 0).UTC(), nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrAuthInvalid)
}
