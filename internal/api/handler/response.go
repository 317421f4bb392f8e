package handler

import (
	"encoding/json"
	"net/http"

	"github.com/RoyceAzure/lab/checkout/internal/api/dto"
	"github.com/RoyceAzure/lab/checkout/internal/domain/errs"
	"github.com/RoyceAzure/lab/checkout/internal/pkg/util"
	"github.com/rs/zerolog"
)

const codeUnauthenticated = "UNAUTHENTICATED"

var statusMap = map[errs.Code]int{
	errs.CodeValidation:                    http.StatusBadRequest,
	errs.CodeMissingFields:                 http.StatusBadRequest,
	errs.CodeEmptyOrder:                    http.StatusBadRequest,
	errs.CodeProductNotFound:               http.StatusBadRequest,
	errs.CodeInvalidOption:                 http.StatusBadRequest,
	errs.CodeAmountMismatch:                http.StatusBadRequest,
	errs.CodeInsufficientBalance:           http.StatusBadRequest,
	errs.CodeBelowMinimumPointUsage:        http.StatusBadRequest,
	errs.CodeInsufficientPointsForFullPaid: http.StatusBadRequest,
	errs.CodeNotFoundOrExpired:             http.StatusNotFound,
	errs.CodeAuthorization:                 http.StatusForbidden,
	errs.CodeInvalidState:                  http.StatusConflict,
	errs.CodeDuplicatePayment:              http.StatusConflict,
	errs.CodeOrderIDConflict:               http.StatusConflict,
	errs.CodeGatewayFailure:                http.StatusBadGateway,
}

func StatusOf(code errs.Code) int {
	if status, ok := statusMap[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func SuccessJSON(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, v)
}

func ErrorJSON(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Success: false,
		Code:    code,
		Message: message,
	})
}

/*
HandleServiceError 依錯誤分類回應
重複付款由服務層轉成既有訂單, 走到這裡代表無法對應, 回409
內部錯誤不回傳細節, 權限錯誤一律使用固定訊息
*/
func HandleServiceError(w http.ResponseWriter, r *http.Request, logger *zerolog.Logger, err error) {
	code := errs.CodeOf(err)
	switch code {
	case errs.CodeAuthorization:
		ErrorJSON(w, http.StatusForbidden, string(code), errs.ErrAuthorization.Error())
		return
	case errs.CodeInternal:
		logger.Error().
			Err(err).
			Str("request_id", util.GetRequestIDFromContext(r.Context())).
			Str("url", r.URL.Path).
			Msg("unexpected error")
		ErrorJSON(w, http.StatusInternalServerError, string(code), "internal server error")
		return
	}
	ErrorJSON(w, StatusOf(code), string(code), err.Error())
}

// requireUser 由 middleware 放入, 缺少時回傳401
func requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := util.GetUserIDFromContext(r.Context())
	if !ok {
		ErrorJSON(w, http.StatusUnauthorized, codeUnauthenticated, "unauthenticated")
		return 0, false
	}
	return userID, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		ErrorJSON(w, http.StatusBadRequest, string(errs.CodeValidation), "invalid request body")
		return false
	}
	return true
}
