package middleware

import (
	"net/http"
	"strconv"

	"github.com/RoyceAzure/lab/checkout/internal/constants"
	"github.com/RoyceAzure/lab/checkout/internal/pkg/util"
)

/*
UserMiddleware 上游認證閘道驗證後以header傳入user id
格式錯誤時視為未登入, 由handler決定是否拒絕
*/
func UserMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(constants.HeaderUserID)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(util.WithUserID(r.Context(), userID)))
	})
}
