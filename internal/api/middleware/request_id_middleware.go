package middleware

import (
	"net/http"

	"github.com/RoyceAzure/lab/checkout/internal/constants"
	"github.com/RoyceAzure/lab/checkout/internal/pkg/util"
	"github.com/google/uuid"
)

func RequestIdMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		//從header內檢查是否有request id
		requestId := r.Header.Get(constants.HeaderRequestID)
		if requestId == "" {
			requestId = uuid.New().String()
		}
		w.Header().Set(constants.HeaderRequestID, requestId)

		// 使用更新後的上下文繼續請求
		next.ServeHTTP(w, r.WithContext(util.WithRequestID(r.Context(), requestId)))
	})
}
