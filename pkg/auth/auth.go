package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	RoleMember    = "member"
	RoleLibrarian = "librarian"
)

type Config struct {
	Secret     string        `yaml:"secret" envconfig:"JWT_SECRET" required:"true"`
	AccessTTL  time.Duration `yaml:"accessTTL" envconfig:"JWT_ACCESS_TTL" default:"15m"`
	RefreshTTL time.Duration `yaml:"refreshTTL" envconfig:"JWT_REFRESH_TTL" default:"168h"`
}

// Claims is the payload of an access token.
type Claims struct {
	UserID int64  `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a refresh token. ID (jti) keys the
// server-side rotation state.
type RefreshClaims struct {
	UserID int64 `json:"uid"`
	jwt.RegisteredClaims
}

type contextKey int

const (
	userIDKey contextKey = iota + 1
	roleKey
)

func SetAuthContext(ctx context.Context, userID int64, role string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, roleKey, role)
}

func UserFromContext(ctx context.Context) (int64, string, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	if !ok {
		return 0, "", false
	}
	role, ok := ctx.Value(roleKey).(string)
	return id, role, ok
}
