// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"os"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Logger wraps logrus.Logger to provide specialized logging methods.
type Logger struct {
	*log.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	l := log.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&log.JSONFormatter{})
	l.SetLevel(log.InfoLevel)
	GlobalLogger = &Logger{Logger: l}
}

// SetLevel parses a level name ("debug", "info", "warn", ...) and applies it to the global logger.
// Unknown names leave the level unchanged and are reported.
func SetLevel(level string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		GlobalLogger.WithError(err).Warnf("unknown log level %q, keeping %s", level, GlobalLogger.GetLevel())
		return
	}
	GlobalLogger.SetLevel(lvl)
}

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// Context keys for logging
const (
	CorrelationID LogContextKey = "correlation_id"
)

// LoggingConfig defines which types of automated logging are enabled.
type LoggingConfig struct {
	EnableRepoLogging bool
	EnableWSLogging   bool
}

// Config holds the current logging configuration.
var Config = LoggingConfig{
	EnableRepoLogging: true,
	EnableWSLogging:   true,
}

// GenerateCorrelationID creates a new unique correlation ID.
func GenerateCorrelationID() string {
	return uuid.NewString()
}

// WithCorrelationID returns a new context with the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationID, id)
}

// ExtractCorrelationID retrieves the correlation ID from the context.
func ExtractCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(CorrelationID).(string); ok {
		return id
	}
	return ""
}

// Log returns an entry carrying the correlation ID from ctx.
func Log(ctx context.Context) *log.Entry {
	entry := log.NewEntry(GlobalLogger.Logger)
	if id := ExtractCorrelationID(ctx); id != "" {
		entry = entry.WithField("correlation_id", id)
	}
	if ctx != nil {
		entry = entry.WithContext(ctx)
	}
	return entry
}

// RepoLogger provides structured logging for repository operations.
type RepoLogger struct {
	tableName string
}

// NewRepoLogger creates a new RepoLogger for the given table.
func NewRepoLogger(tableName string) *RepoLogger {
	return &RepoLogger{tableName: tableName}
}

func (l *RepoLogger) entry(ctx context.Context, operation string, fields map[string]interface{}) *log.Entry {
	return Log(ctx).WithFields(log.Fields{
		"table":     l.tableName,
		"operation": operation,
	}).WithFields(fields)
}

// LogCreate logs a repository create operation.
func (l *RepoLogger) LogCreate(ctx context.Context, fields map[string]interface{}) {
	if !Config.EnableRepoLogging {
		return
	}
	l.entry(ctx, "create", fields).Debug("repository create")
}

// LogRead logs a repository read operation.
func (l *RepoLogger) LogRead(ctx context.Context, fields map[string]interface{}) {
	if !Config.EnableRepoLogging {
		return
	}
	l.entry(ctx, "read", fields).Debug("repository read")
}

// LogUpdate logs a repository update operation.
func (l *RepoLogger) LogUpdate(ctx context.Context, fields map[string]interface{}) {
	if !Config.EnableRepoLogging {
		return
	}
	l.entry(ctx, "update", fields).Debug("repository update")
}

// LogDelete logs a repository delete operation.
func (l *RepoLogger) LogDelete(ctx context.Context, fields map[string]interface{}) {
	if !Config.EnableRepoLogging {
		return
	}
	l.entry(ctx, "delete", fields).Debug("repository delete")
}

// LogError logs a repository error and counts it.
func (l *RepoLogger) LogError(ctx context.Context, err error, operation string) {
	StoreErrors.WithLabelValues(l.tableName + "." + operation).Inc()
	if !Config.EnableRepoLogging {
		return
	}
	l.entry(ctx, operation, nil).WithError(err).Error("repository error")
}

// WSLogger provides structured logging for WebSocket operations.
type WSLogger struct {
	hubName string
}

// NewWSLogger creates a new WSLogger for the given hub.
func NewWSLogger(hubName string) *WSLogger {
	return &WSLogger{hubName: hubName}
}

func (l *WSLogger) entry(ctx context.Context, userID, view string) *log.Entry {
	return Log(ctx).WithFields(log.Fields{
		"hub":     l.hubName,
		"user_id": userID,
		"view":    view,
	})
}

// LogConnect logs a WebSocket connection event.
func (l *WSLogger) LogConnect(ctx context.Context, userID, view string) {
	if !Config.EnableWSLogging {
		return
	}
	l.entry(ctx, userID, view).Info("websocket connected")
}

// LogDisconnect logs a WebSocket disconnection event.
func (l *WSLogger) LogDisconnect(ctx context.Context, userID, view, reason string) {
	if !Config.EnableWSLogging {
		return
	}
	l.entry(ctx, userID, view).WithField("reason", reason).Info("websocket disconnected")
}

// LogError logs a WebSocket error event.
func (l *WSLogger) LogError(ctx context.Context, userID, view string, err error, eventType string) {
	if !Config.EnableWSLogging {
		return
	}
	l.entry(ctx, userID, view).WithError(err).WithField("event_type", eventType).Error("websocket error")
}

// LogLifecycle logs a WebSocket hub lifecycle event.
func (l *WSLogger) LogLifecycle(ctx context.Context, event string, fields map[string]interface{}) {
	if !Config.EnableWSLogging {
		return
	}
	Log(ctx).WithFields(log.Fields{"hub": l.hubName, "event": event}).WithFields(fields).Info("websocket lifecycle")
}

// LogAsyncOperationError logs an error in an asynchronous operation.
func LogAsyncOperationError(ctx context.Context, operation string, err error, fields map[string]interface{}) {
	Log(ctx).WithFields(log.Fields{
		"operation": operation,
		"type":      "async_error",
	}).WithFields(fields).WithError(err).Error("async operation failed")
}
