package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
)

type RedisErrorCode int

const (
	RedisErrorUnknown RedisErrorCode = iota
	RedisErrorConnection
	RedisErrorTimeout
)

type RedisError struct {
	Code    RedisErrorCode `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
}

func (e *RedisError) Error() string {
	return fmt.Sprintf("code: %d, message: %s", e.Code, e.Message)
}

func (e *RedisError) Unwrap() error {
	return e.Err
}

func wrapRedisError(err error) error {
	if err == nil {
		return nil
	}
	code := RedisErrorUnknown
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = RedisErrorTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		code = RedisErrorTimeout
	case errors.As(err, &netErr):
		code = RedisErrorConnection
	}
	return &RedisError{Code: code, Message: err.Error(), Err: err}
}
