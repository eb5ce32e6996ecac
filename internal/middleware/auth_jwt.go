package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

var errInvalidToken = errors.New("invalid or expired token")

// Authenticate reads an optional bearer token. Requests without one pass
// through anonymously; a token that is present but invalid is rejected
// with 401. Tokens are issued elsewhere and signed with HS256.
func Authenticate(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				writeError(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}
			u, err := ParseToken(secret, strings.TrimSpace(raw))
			if err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := GetUser(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !u.IsStaff {
			writeError(w, http.StatusForbidden, "staff only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ParseToken validates an access token and extracts the caller. The user_id
// claim may be a string or a number.
func ParseToken(secret []byte, tokenStr string) (User, error) {
	if len(secret) == 0 {
		return User{}, fmt.Errorf("JWT secret not configured")
	}
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return User{}, errInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return User{}, errInvalidToken
	}
	if typ, ok := claims["token_type"].(string); ok && typ != "access" {
		return User{}, errInvalidToken
	}

	var u User
	switch v := claims["user_id"].(type) {
	case string:
		u.ID = v
	case float64:
		u.ID = strconv.FormatInt(int64(v), 10)
	}
	if u.ID == "" {
		return User{}, errInvalidToken
	}
	u.IsStaff, _ = claims["is_staff"].(bool)
	return u, nil
}
