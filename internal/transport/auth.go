package transport

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/rpggio/hitparade/internal/identity"
)

// Headers carrying credentials.
const (
	AdminTokenHeader = "X-Admin-Token"
	InitDataHeader   = "X-Telegram-Init-Data"
)

var (
	// ErrUnauthorized indicates invalid or missing operator credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrAdminNotConfigured indicates the server has no admin token set.
	ErrAdminNotConfigured = errors.New("admin token not configured")
)

type operatorKey struct{}

type identityKey struct{}

type identityResult struct {
	user *identity.User
	err  error
}

// OperatorResolver resolves an operator name from an admin token.
type OperatorResolver interface {
	ResolveOperator(ctx context.Context, token string) (string, error)
}

// StaticToken authorizes a single shared admin token.
type StaticToken string

// ResolveOperator compares token against the configured one in constant time.
func (s StaticToken) ResolveOperator(_ context.Context, token string) (string, error) {
	if s == "" {
		return "", ErrAdminNotConfigured
	}
	if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s)) != 1 {
		return "", ErrUnauthorized
	}
	return "admin", nil
}

// OperatorFromContext returns the operator from context, if present.
func OperatorFromContext(ctx context.Context) (string, bool) {
	operator, ok := ctx.Value(operatorKey{}).(string)
	return operator, ok
}

// WithOperator returns ctx carrying operator.
func WithOperator(ctx context.Context, operator string) context.Context {
	return context.WithValue(ctx, operatorKey{}, operator)
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

// AdminMiddleware enforces the admin token on JSON admin routes. The token is
// read from X-Admin-Token, falling back to a bearer token.
func AdminMiddleware(resolver OperatorResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimSpace(r.Header.Get(AdminTokenHeader))
			if token == "" {
				token = bearerToken(r)
			}
			operator, err := resolver.ResolveOperator(r.Context(), token)
			if err != nil {
				if !errors.Is(err, ErrAdminNotConfigured) {
					err = ErrUnauthorized
				}
				WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), operator)))
		})
	}
}

// AuthMiddleware enforces bearer token authentication.
func AuthMiddleware(resolver OperatorResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			operator, err := resolver.ResolveOperator(r.Context(), token)
			if errors.Is(err, ErrAdminNotConfigured) {
				http.Error(w, "admin token not configured", http.StatusInternalServerError)
				return
			}
			if err != nil || operator == "" {
				http.Error(w, "invalid bearer token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), operator)))
		})
	}
}

// Verifier checks Telegram init data.
type Verifier interface {
	Verify(initData string) (*identity.User, error)
}

// IdentityMiddleware verifies X-Telegram-Init-Data when present and stores
// the outcome in context. It never rejects a request: handlers decide
// whether they need a user.
func IdentityMiddleware(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := identityResult{err: identity.ErrAuthRequired}
			if initData := strings.TrimSpace(r.Header.Get(InitDataHeader)); initData != "" {
				res.user, res.err = v.Verify(initData)
			}
			ctx := context.WithValue(r.Context(), identityKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the verified caller, or why there is none.
func UserFromContext(ctx context.Context) (*identity.User, error) {
	res, ok := ctx.Value(identityKey{}).(identityResult)
	if !ok {
		return nil, identity.ErrAuthRequired
	}
	return res.user, res.err
}
