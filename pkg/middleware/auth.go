package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/shashiranjanraj/canteen/pkg/auth"
	"github.com/shashiranjanraj/canteen/pkg/logger"
	"github.com/shashiranjanraj/canteen/pkg/response"
)

type staffKey struct{}

// StaffAuth requires a valid staff bearer token. A nil issuer disables the
// check, which is how the scanner runs when STAFF_SECRET is unset.
func StaffAuth(iss *auth.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if iss == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearer(r)
			if !ok {
				response.Error(w, http.StatusUnauthorized, "")
				return
			}

			claims, err := iss.Verify(token)
			if err != nil {
				logger.WithCtx(r.Context()).Warn("staff token rejected", "error", err)
				response.Error(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), staffKey{}, claims.Staff)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearer reads the Authorization header. Browsers cannot set headers on a
// WebSocket handshake, so upgrades may pass ?access_token= instead.
func bearer(r *http.Request) (string, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok && strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		token, ok = r.URL.Query().Get("access_token"), true
	}
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

// StaffFromCtx returns the staff name carried by a verified token, or "".
func StaffFromCtx(ctx context.Context) string {
	s, _ := ctx.Value(staffKey{}).(string)
	return s
}
