package errs

import (
	"errors"
)

// Code 對外回報的錯誤分類
type Code string

const (
	CodeValidation                    Code = "VALIDATION_ERROR"
	CodeMissingFields                 Code = "MISSING_FIELDS"
	CodeEmptyOrder                    Code = "EMPTY_ORDER"
	CodeProductNotFound               Code = "PRODUCT_NOT_FOUND"
	CodeInvalidOption                 Code = "INVALID_OPTION"
	CodeNotFoundOrExpired             Code = "NOT_FOUND_OR_EXPIRED"
	CodeAuthorization                 Code = "AUTHORIZATION_ERROR"
	CodeAmountMismatch                Code = "AMOUNT_MISMATCH"
	CodeGatewayFailure                Code = "GATEWAY_FAILURE"
	CodeDuplicatePayment              Code = "DUPLICATE_PAYMENT"
	CodeInsufficientBalance           Code = "INSUFFICIENT_BALANCE"
	CodeBelowMinimumPointUsage        Code = "BELOW_MINIMUM_POINT_USAGE"
	CodeInsufficientPointsForFullPaid Code = "INSUFFICIENT_POINTS_FOR_FULL_PAYMENT"
	CodeInvalidState                  Code = "INVALID_STATE"
	CodeOrderIDConflict               Code = "ORDER_ID_CONFLICT"
	CodeInternal                      Code = "INTERNAL_ERROR"
)

// checkoutError 讓每個sentinel都帶有自己的Code, errors.Is 比對的是指標本身
type checkoutError struct {
	code Code
	msg  string
}

func (e *checkoutError) Error() string {
	return e.msg
}

func newErr(code Code, msg string) error {
	return &checkoutError{code: code, msg: msg}
}

var (
	ErrValidation                       = newErr(CodeValidation, "invalid request")
	ErrMissingFields                    = newErr(CodeMissingFields, "required fields are missing")
	ErrEmptyOrder                       = newErr(CodeEmptyOrder, "order has no items")
	ErrProductNotFound                  = newErr(CodeProductNotFound, "product not found")
	ErrInvalidOption                    = newErr(CodeInvalidOption, "invalid product option")
	ErrNotFoundOrExpired                = newErr(CodeNotFoundOrExpired, "order information not found or expired")
	ErrAuthorization                    = newErr(CodeAuthorization, "not authorized")
	ErrAmountMismatch                   = newErr(CodeAmountMismatch, "payment amount does not match")
	ErrGatewayFailure                   = newErr(CodeGatewayFailure, "payment gateway failure")
	ErrDuplicatePayment                 = newErr(CodeDuplicatePayment, "payment already processed")
	ErrInsufficientBalance              = newErr(CodeInsufficientBalance, "insufficient point balance")
	ErrBelowMinimumPointUsage           = newErr(CodeBelowMinimumPointUsage, "point usage below minimum")
	ErrInsufficientPointsForFullPayment = newErr(CodeInsufficientPointsForFullPaid, "points do not cover the full payment")
	ErrInvalidState                     = newErr(CodeInvalidState, "operation not allowed in current state")
	ErrOrderIDConflict                  = newErr(CodeOrderIDConflict, "order id already used by another payment")
)

// CodeOf 解開包裝後取得分類, 無法辨識時回傳 CodeInternal
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var ce *checkoutError
	if errors.As(err, &ce) {
		return ce.code
	}
	return CodeInternal
}
