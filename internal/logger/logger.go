package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type Options struct {
	ServiceName string
	Debug       bool
	// 額外輸出, 例如 KafkaWriter
	Writers []io.Writer
}

// New debug 時輸出易讀格式, 其餘為JSON
func New(opts Options) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var console io.Writer = os.Stdout
	level := zerolog.InfoLevel
	if opts.Debug {
		console = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		level = zerolog.DebugLevel
	}

	out := console
	if len(opts.Writers) > 0 {
		writers := append([]io.Writer{console}, opts.Writers...)
		out = zerolog.MultiLevelWriter(writers...)
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", opts.ServiceName).
		Logger()
}
