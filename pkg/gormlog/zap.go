package gormlog

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"

	"github.com/fatflowers/paygate/pkg/logctx"
)

const defaultSlowThreshold = 500 * time.Millisecond

// ZapLogger is a gorm logger writing through the request-scoped zap logger,
// so SQL lines carry trace_id and order_id.
type ZapLogger struct {
	base  *zap.SugaredLogger
	level gormlogger.LogLevel
	slow  time.Duration
}

// New returns a logger reporting failed and slow statements. With verbose set
// every statement is logged; production keeps it off since order rows carry
// customer phone numbers.
func New(base *zap.SugaredLogger, slow time.Duration, verbose bool) *ZapLogger {
	if slow <= 0 {
		slow = defaultSlowThreshold
	}
	z := &ZapLogger{base: base, level: gormlogger.Warn, slow: slow}
	if verbose {
		z.level = gormlogger.Info
	}
	return z
}

func (z *ZapLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *z
	cp.level = level
	return &cp
}

func (z *ZapLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if z.level >= gormlogger.Info {
		z.from(ctx).Infow(msg, "args", data)
	}
}

func (z *ZapLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if z.level >= gormlogger.Warn {
		z.from(ctx).Warnw(msg, "args", data)
	}
}

func (z *ZapLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if z.level >= gormlogger.Error {
		z.from(ctx).Errorw(msg, "args", data)
	}
}

// Trace logs one executed statement. Record-not-found is an expected miss on
// order lookups and is never reported.
func (z *ZapLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if z.level == gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := elapsed > z.slow
	if !failed && !slow && z.level < gormlogger.Info {
		return
	}

	sql, rows := fc()
	kv := []interface{}{
		"sql", sql,
		"rows", rows,
		"elapsed_ms", elapsed.Milliseconds(),
		"caller", shortCaller(utils.FileWithLineNum()),
	}
	l := z.from(ctx)
	switch {
	case failed:
		l.Errorw("gorm_trace", append(kv, "err", err)...)
	case slow:
		l.Warnw("gorm_slow", kv...)
	default:
		l.Infow("gorm", kv...)
	}
}

func (z *ZapLogger) from(ctx context.Context) *zap.SugaredLogger {
	return logctx.FromCtx(ctx, z.base)
}

// shortCaller turns an absolute "file:line" into a repo-relative one, e.g.
// /home/ci/paygate/internal/platform/db/postgres.go:38 becomes
// internal/platform/db/postgres.go:38. Paths outside the repo keep their last
// three segments.
func shortCaller(s string) string {
	if s == "" {
		return s
	}
	path, line := s, ""
	if i := strings.LastIndex(s, ":"); i >= 0 {
		path, line = s[:i], s[i:]
	}
	path = filepath.ToSlash(path)
	for _, root := range []string{"/internal/", "/pkg/", "/cmd/"} {
		if i := strings.Index(path, root); i >= 0 {
			return path[i+1:] + line
		}
	}
	segs := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(segs) > 3 {
		segs = segs[len(segs)-3:]
	}
	return strings.Join(segs, "/") + line
}
