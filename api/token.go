package api

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// tokenExpired reports whether raw is a JWT whose "exp" claim has passed.
// The client holds no signing keys, so the claims are read without
// verification; the server remains the authority on token validity. Opaque
// tokens and tokens without an expiry report false.
func tokenExpired(raw string) bool {
	if raw == "" {
		return false
	}
	token, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return false
	}
	expiry, err := token.Claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return false
	}
	return NowTimeFunc().After(expiry.Time)
}
