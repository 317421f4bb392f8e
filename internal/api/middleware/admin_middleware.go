package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/RoyceAzure/lab/checkout/internal/pkg/util"
)

type AdminChecker interface {
	IsAdmin(userID int64) bool
}

// AdminMiddleware 只允許設定檔內的管理者
func AdminMiddleware(checker AdminChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := util.GetUserIDFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "unauthenticated")
				return
			}
			if checker == nil || !checker.IsAdmin(userID) {
				writeError(w, http.StatusForbidden, "AUTHORIZATION_ERROR", "not authorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"code":    code,
		"message": message,
	})
}
