// Package oplog writes booking operation records to zap.
package oplog

import (
	"context"

	"github.com/MarkoPoloResearchLab/teetime/pkg/booking"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const logMessage = "booking operation"

// ZapLogger implements booking.OperationLogger.
type ZapLogger struct {
	logger *zap.Logger
}

// New wraps logger. A nil logger discards records.
func New(logger *zap.Logger) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapLogger{logger: logger}
}

// NewLogger builds the process logger; development mode switches to the console encoder.
func NewLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func (zapLogger *ZapLogger) LogOperation(_ context.Context, entry booking.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
	}
	fields = appendIfSet(fields, "branch", entry.Branch.String())
	fields = appendIfSet(fields, "resource", entry.Resource.String())
	fields = appendIfSet(fields, "member", entry.Member.String())
	fields = appendIfSet(fields, "date", entry.Date.String())
	fields = appendIfSet(fields, "reservation_id", entry.ReservationID.String())
	fields = appendIfSet(fields, "outcome", entry.Outcome)
	if entry.Error != nil {
		fields = append(fields, zap.String("error_kind", string(booking.KindOf(entry.Error))), zap.Error(entry.Error))
	}
	zapLogger.logger.Log(levelFor(entry), logMessage, fields...)
}

// levelFor keeps caller mistakes at warn and reserves error for failures operators act on.
func levelFor(entry booking.OperationLog) zapcore.Level {
	if entry.Error == nil {
		return zapcore.InfoLevel
	}
	switch booking.KindOf(entry.Error) {
	case booking.KindUpstreamUnavailable, booking.KindPartialCommit, booking.KindUnknown:
		return zapcore.ErrorLevel
	default:
		return zapcore.WarnLevel
	}
}

func appendIfSet(fields []zap.Field, key string, value string) []zap.Field {
	if value == "" {
		return fields
	}
	return append(fields, zap.String(key, value))
}
