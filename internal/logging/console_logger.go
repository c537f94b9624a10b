package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
)

var levelColors = map[LogLevel]string{
	DEBUG: colorBlue,
	INFO:  colorReset,
	WARN:  colorYellow,
	ERROR: colorRed,
}

// ConsoleLogger writes one human-readable line per message:
//
//	2024-03-10 12:00:00 WARN  [5f0c9e2a] Skipping unreadable symbolic link path=/mri/s00001
type ConsoleLogger struct {
	mu        sync.Mutex
	out       io.Writer
	level     LogLevel
	traceID   string
	color     bool
	timestamp bool
	redact    bool
}

type ConsoleLoggerConfig struct {
	// Writer defaults to stderr.
	Writer           io.Writer
	Level            LogLevel
	ColorEnabled     bool
	TimestampEnabled bool
	RedactSensitive  bool
}

func NewConsoleLogger(config ConsoleLoggerConfig) *ConsoleLogger {
	out := config.Writer
	if out == nil {
		out = os.Stderr
	}
	return &ConsoleLogger{
		out:       out,
		level:     config.Level,
		color:     config.ColorEnabled,
		timestamp: config.TimestampEnabled,
		redact:    config.RedactSensitive,
	}
}

func (l *ConsoleLogger) paint(sb *strings.Builder, color, text string) {
	if l.color {
		sb.WriteString(color)
		sb.WriteString(text)
		sb.WriteString(colorReset)
		return
	}
	sb.WriteString(text)
}

func (l *ConsoleLogger) clean(s string) string {
	if l.redact {
		return redactSensitiveData(s)
	}
	return s
}

func (l *ConsoleLogger) format(level LogLevel, msg string, fields []Field) string {
	var sb strings.Builder

	if l.timestamp {
		l.paint(&sb, colorGray, time.Now().Format("2006-01-02 15:04:05"))
		sb.WriteByte(' ')
	}
	l.paint(&sb, levelColors[level], fmt.Sprintf("%-5s", level))
	sb.WriteByte(' ')
	if l.traceID != "" {
		l.paint(&sb, colorGray, "["+shortTraceID(l.traceID)+"]")
		sb.WriteByte(' ')
	}
	sb.WriteString(l.clean(msg))

	for _, field := range fields {
		value := l.clean(fmt.Sprint(field.Value))
		if strings.ContainsAny(value, " \t\n\"=") {
			value = strconv.Quote(value)
		}
		sb.WriteByte(' ')
		sb.WriteString(field.Key)
		sb.WriteByte('=')
		sb.WriteString(value)
	}
	return sb.String()
}

// shortTraceID keeps the first 8 characters of a trace ID
func shortTraceID(traceID string) string {
	if len(traceID) <= 8 {
		return traceID
	}
	return traceID[:8]
}

func (l *ConsoleLogger) log(level LogLevel, msg string, fields ...Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}
	fmt.Fprintln(l.out, l.format(level, msg, fields))
}

func (l *ConsoleLogger) Debug(msg string, fields ...Field) { l.log(DEBUG, msg, fields...) }
func (l *ConsoleLogger) Info(msg string, fields ...Field)  { l.log(INFO, msg, fields...) }
func (l *ConsoleLogger) Warn(msg string, fields ...Field)  { l.log(WARN, msg, fields...) }
func (l *ConsoleLogger) Error(msg string, fields ...Field) { l.log(ERROR, msg, fields...) }

// WithTraceID returns a copy of l that prefixes lines with traceID
func (l *ConsoleLogger) WithTraceID(traceID string) Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &ConsoleLogger{
		out:       l.out,
		level:     l.level,
		traceID:   traceID,
		color:     l.color,
		timestamp: l.timestamp,
		redact:    l.redact,
	}
}

func (l *ConsoleLogger) WithContext(ctx context.Context) Logger {
	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		return l
	}
	return l.WithTraceID(traceID)
}

func (l *ConsoleLogger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *ConsoleLogger) Close() error { return nil }
