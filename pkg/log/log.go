// Package log 构建程序使用的 zerolog 日志器。
// 普通进度写到 stdout，error 及以上级别写到 stderr 并以红色标记。
package log

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
}

// New 返回控制台格式的日志器
func New(stdout, stderr io.Writer, noColor bool) zerolog.Logger {
	w := levelWriter{
		out: zerolog.ConsoleWriter{Out: stdout, NoColor: noColor, TimeFormat: time.TimeOnly},
		err: zerolog.ConsoleWriter{Out: stderr, NoColor: noColor, TimeFormat: time.TimeOnly},
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(zerolog.InfoLevel)
}

// NewPacked 返回 JSON 格式的日志器，适合 watch 模式以服务方式运行
func NewPacked(stdout, stderr io.Writer) zerolog.Logger {
	return zerolog.New(levelWriter{out: stdout, err: stderr}).With().Timestamp().Logger().Level(zerolog.InfoLevel)
}

type levelWriter struct {
	out io.Writer
	err io.Writer
}

func (w levelWriter) Write(p []byte) (int, error) {
	return w.out.Write(p)
}

func (w levelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level >= zerolog.ErrorLevel && level <= zerolog.PanicLevel {
		return w.err.Write(p)
	}
	return w.out.Write(p)
}
