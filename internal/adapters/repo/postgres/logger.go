package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ZeroLogger routes gorm output through the global zerolog logger.
type ZeroLogger struct {
	Level         gormlogger.LogLevel
	SlowThreshold time.Duration
}

func NewZeroLogger(level gormlogger.LogLevel) *ZeroLogger {
	return &ZeroLogger{Level: level, SlowThreshold: 200 * time.Millisecond}
}

func (l *ZeroLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.Level = level
	return &cp
}

func (l *ZeroLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.Level >= gormlogger.Info {
		log.Ctx(ctx).Info().Msg(fmt.Sprintf(msg, args...))
	}
}

func (l *ZeroLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.Level >= gormlogger.Warn {
		log.Ctx(ctx).Warn().Msg(fmt.Sprintf(msg, args...))
	}
}

func (l *ZeroLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.Level >= gormlogger.Error {
		log.Ctx(ctx).Error().Msg(fmt.Sprintf(msg, args...))
	}
}

func (l *ZeroLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.Level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.Level >= gormlogger.Error:
		sql, rows := fc()
		log.Ctx(ctx).Error().Err(err).Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("query")
	case l.SlowThreshold > 0 && elapsed > l.SlowThreshold && l.Level >= gormlogger.Warn:
		sql, rows := fc()
		log.Ctx(ctx).Warn().Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("query lenta")
	case l.Level >= gormlogger.Info:
		sql, rows := fc()
		log.Ctx(ctx).Debug().Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("query")
	}
}
