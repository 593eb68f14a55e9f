package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// redisLogger routes go-redis internal logging through zap
type redisLogger struct {
	logger *zap.Logger
}

func newRedisLogger(logger *zap.Logger) *redisLogger {
	return &redisLogger{logger: logger.Named("redis")}
}

// Printf implements the go-redis logging interface
func (l *redisLogger) Printf(_ context.Context, format string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, v...))
}
