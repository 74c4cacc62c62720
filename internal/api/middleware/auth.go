package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/opshare/opshare/internal/utils"
)

type contextKey string

const UserIDKey contextKey = "userID"

// SessionCookie is the cookie carrying the signed session token.
const SessionCookie = "token"

// UserFromContext extracts the authenticated user ID placed by Auth.
func UserFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(UserIDKey).(uint)
	return id, ok
}

// ParseSession validates the session cookie on r and returns the user ID.
func ParseSession(r *http.Request, secret string) (uint, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return 0, false
	}

	token, err := jwt.Parse(cookie.Value, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return 0, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, false
	}

	idStr, ok := claims["userId"].(string)
	if !ok || idStr == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// Auth rejects requests without a valid session cookie and stores the user
// ID in the request context.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			userID, ok := ParseSession(r, secret)
			if !ok {
				utils.JSONResponse(w, http.StatusUnauthorized, utils.Payload{
					Success: false,
					Message: "Unauthorized",
				})
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
