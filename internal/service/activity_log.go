package service

import (
	"context"
	"errors"
	"time"

	rediscommon "github.com/it-Barath/fpms-sub006/common/redis"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type ActivityOutcome string

const (
	OutcomeSuccess ActivityOutcome = "success"
	OutcomeFailure ActivityOutcome = "failure"
)

// ActivityEvent one per completed or failed report generation.
type ActivityEvent struct {
	RequestID  string          `json:"request_id"`
	ReportType string          `json:"report_type"`
	Scope      string          `json:"scope"`
	UserID     string          `json:"user_id"`
	Role       string          `json:"role"`
	Outcome    ActivityOutcome `json:"outcome"`
	Error      string          `json:"error,omitempty"`
	Rows       int             `json:"rows"`
	DurationMs int64           `json:"duration_ms"`
	At         time.Time       `json:"at"`
}

// ActivityLog sink for report activity. A failing sink never fails the report.
type ActivityLog interface {
	Record(ctx context.Context, ev ActivityEvent) error
}

// ============================================
// zap
// ============================================

type ZapActivityLog struct {
	logger *zap.Logger
}

func NewZapActivityLog(logger *zap.Logger) *ZapActivityLog {
	return &ZapActivityLog{logger: logger.Named("activity")}
}

func (l *ZapActivityLog) Record(_ context.Context, ev ActivityEvent) error {
	fields := []zap.Field{
		zap.String("request_id", ev.RequestID),
		zap.String("report_type", ev.ReportType),
		zap.String("scope", ev.Scope),
		zap.String("user_id", ev.UserID),
		zap.String("role", ev.Role),
		zap.String("outcome", string(ev.Outcome)),
		zap.Int("rows", ev.Rows),
		zap.Int64("duration_ms", ev.DurationMs),
	}
	if ev.Outcome == OutcomeFailure {
		l.logger.Warn("report generation failed", append(fields, zap.String("error", ev.Error))...)
		return nil
	}
	l.logger.Info("report generated", fields...)
	return nil
}

// ============================================
// redis stream
// ============================================

// RedisActivityLog appends events to a redis stream (XADD, approximate MAXLEN).
type RedisActivityLog struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisActivityLog(client *redis.Client, stream string, maxLen int64) *RedisActivityLog {
	return &RedisActivityLog{client: client, stream: stream, maxLen: maxLen}
}

func (l *RedisActivityLog) Record(ctx context.Context, ev ActivityEvent) error {
	values := map[string]interface{}{
		"request_id":  ev.RequestID,
		"report_type": ev.ReportType,
		"scope":       ev.Scope,
		"user_id":     ev.UserID,
		"role":        ev.Role,
		"outcome":     string(ev.Outcome),
		"rows":        ev.Rows,
		"duration_ms": ev.DurationMs,
		"at":          ev.At,
	}
	if ev.Error != "" {
		values["error"] = ev.Error
	}
	_, err := rediscommon.PublishToStream(ctx, l.client, l.stream, l.maxLen, values)
	return err
}

// ============================================
// fan-out
// ============================================

type MultiActivityLog []ActivityLog

// Record writes to every sink and joins their errors.
func (m MultiActivityLog) Record(ctx context.Context, ev ActivityEvent) error {
	var errs []error
	for _, l := range m {
		if err := l.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
