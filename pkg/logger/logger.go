package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// New creates a new logger instance
func New() *Logger {
	// Get log level from environment
	level := getLogLevel(os.Getenv("LOG_LEVEL"))

	// Create handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// Create handler based on environment
	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		// Use text handler for development (more readable)
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		// Use JSON handler for production (structured)
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	// Create logger
	logger := slog.New(handler)

	return &Logger{
		Logger: logger,
	}
}

// NewDiscard returns a logger that drops every record (tests, tooling)
func NewDiscard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// getLogLevel converts string to slog.Level
func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// HTTP logging methods

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.String("user_agent", c.Request.UserAgent()),
		slog.Int("size", c.Writer.Size()),
	)
}

// LogHTTPError logs an HTTP error
func (l *Logger) LogHTTPError(c *gin.Context, err error, statusCode int) {
	l.Logger.ErrorContext(c.Request.Context(),
		"HTTP Error",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", statusCode),
		slog.String("error", err.Error()),
		slog.String("ip", c.ClientIP()),
	)
}

// Ticketing logging methods

// LogHoldReserved logs when inventory is reserved for a requester
func (l *Logger) LogHoldReserved(ctx context.Context, holdID, tierID, requesterID string, quantity int) {
	l.Logger.InfoContext(ctx,
		"Hold Reserved",
		slog.String("hold_id", holdID),
		slog.String("tier_id", tierID),
		slog.String("requester_id", requesterID),
		slog.Int("quantity", quantity),
	)
}

// LogHoldRejected logs a reservation that was refused (sold out, over limit, ...)
func (l *Logger) LogHoldRejected(ctx context.Context, tierID, requesterID, reason string) {
	l.Logger.InfoContext(ctx,
		"Hold Rejected",
		slog.String("tier_id", tierID),
		slog.String("requester_id", requesterID),
		slog.String("reason", reason),
	)
}

// LogTicketsIssued logs ticket issuance for a hold
func (l *Logger) LogTicketsIssued(ctx context.Context, holdID, orderID string, count int) {
	l.Logger.InfoContext(ctx,
		"Tickets Issued",
		slog.String("hold_id", holdID),
		slog.String("order_id", orderID),
		slog.Int("count", count),
	)
}

// LogOrderTransition logs an order status change
func (l *Logger) LogOrderTransition(ctx context.Context, orderID, from, to, note string) {
	l.Logger.InfoContext(ctx,
		"Order Transition",
		slog.String("order_id", orderID),
		slog.String("from", from),
		slog.String("to", to),
		slog.String("note", note),
	)
}

// LogWebhook logs a verified payment processor delivery
func (l *Logger) LogWebhook(ctx context.Context, eventID, eventType, txnID string) {
	l.Logger.InfoContext(ctx,
		"Processor Webhook",
		slog.String("event_id", eventID),
		slog.String("event_type", eventType),
		slog.String("txn_id", txnID),
	)
}

// LogScan logs a door scan and its outcome
func (l *Logger) LogScan(ctx context.Context, scannerID, ticketID, outcome string, duration time.Duration) {
	l.Logger.InfoContext(ctx,
		"Ticket Scan",
		slog.String("scanner_id", scannerID),
		slog.String("ticket_id", ticketID),
		slog.String("outcome", outcome),
		slog.Duration("duration", duration),
	)
}

// LogSweep logs a reconciliation sweep summary
func (l *Logger) LogSweep(ctx context.Context, fields map[string]interface{}, duration time.Duration) {
	args := make([]interface{}, 0, len(fields)*2+2)
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	args = append(args, slog.Duration("duration", duration))
	l.Logger.InfoContext(ctx, "Reconciliation Sweep", args...)
}

// Security logging methods

// LogAuthFailure logs failed authentication
func (l *Logger) LogAuthFailure(ctx context.Context, reason, ip string) {
	l.Logger.WarnContext(ctx,
		"Authentication Failure",
		slog.String("reason", reason),
		slog.String("ip", ip),
	)
}

// LogRateLimitExceeded logs rate limit exceeded
func (l *Logger) LogRateLimitExceeded(ctx context.Context, ip, endpoint string) {
	l.Logger.WarnContext(ctx,
		"Rate Limit Exceeded",
		slog.String("ip", ip),
		slog.String("endpoint", endpoint),
	)
}

// Global logger instance (can be replaced with dependency injection)
var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}
