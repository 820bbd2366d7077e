package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// asynqLogger 把 asynq 内部日志转发到 slog。
type asynqLogger struct {
	logger *slog.Logger
}

func newAsynqLogger(logger *slog.Logger) *asynqLogger {
	return &asynqLogger{logger: logger.With(slog.String("component", "asynq"))}
}

func (l *asynqLogger) Debug(args ...any) { l.log(slog.LevelDebug, args...) }
func (l *asynqLogger) Info(args ...any)  { l.log(slog.LevelInfo, args...) }
func (l *asynqLogger) Warn(args ...any)  { l.log(slog.LevelWarn, args...) }
func (l *asynqLogger) Error(args ...any) { l.log(slog.LevelError, args...) }

func (l *asynqLogger) Fatal(args ...any) {
	l.log(slog.LevelError, args...)
	os.Exit(1)
}

func (l *asynqLogger) log(level slog.Level, args ...any) {
	l.logger.Log(context.Background(), level, fmt.Sprint(args...))
}
