package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/terraform-plugin-log/tflog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// gormLogger sends GORM's output through tflog so queries carry the request
// fields set on ctx.
type gormLogger struct {
	level logger.LogLevel
}

var _ logger.Interface = gormLogger{}

func (l gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return gormLogger{level: level}
}

func (l gormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Info {
		tflog.Info(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l gormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Warn {
		tflog.Warn(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l gormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Error {
		tflog.Error(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := map[string]interface{}{
		"elapsed_ms": elapsed.Milliseconds(),
		"rows":       rows,
	}
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= logger.Error:
		fields["error"] = err.Error()
		tflog.Error(ctx, sql, fields)
	case elapsed > slowQueryThreshold && l.level >= logger.Warn:
		tflog.Warn(ctx, "slow query: "+sql, fields)
	case l.level >= logger.Info:
		tflog.Trace(ctx, sql, fields)
	}
}
