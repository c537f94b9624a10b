package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/spf13/afero"
)

const rotatedSuffixLayout = "20060102-150405.000"

// FileLogger appends one JSON object per line to a log file. Loggers
// derived with WithTraceID write through the same file and rotate it
// together.
type FileLogger struct {
	sink    *fileSink
	level   LogLevel
	traceID string
	redact  bool
}

// FileLoggerConfig contains configuration for file logger
type FileLoggerConfig struct {
	// Fs defaults to the operating system filesystem.
	Fs       afero.Fs
	FilePath string
	Level    LogLevel
	// MaxFileSize in bytes; 0 disables rotation.
	MaxFileSize int64
	// MaxBackups bounds the rotated files kept next to FilePath; 0 keeps all.
	MaxBackups      int
	RedactSensitive bool
}

type fileSink struct {
	mu         sync.Mutex
	fs         afero.Fs
	file       afero.File
	path       string
	size       int64
	maxSize    int64
	maxBackups int
}

// NewFileLogger creates the log directory if needed and opens FilePath for
// appending
func NewFileLogger(config FileLoggerConfig) (*FileLogger, error) {
	fs := config.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	if err := fs.MkdirAll(filepath.Dir(config.FilePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := openLogFile(fs, config.FilePath)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	return &FileLogger{
		sink: &fileSink{
			fs:         fs,
			file:       file,
			path:       config.FilePath,
			size:       info.Size(),
			maxSize:    config.MaxFileSize,
			maxBackups: config.MaxBackups,
		},
		level:  config.Level,
		redact: config.RedactSensitive,
	}, nil
}

func openLogFile(fs afero.Fs, path string) (afero.File, error) {
	file, err := fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}

func (l *FileLogger) entry(level LogLevel, msg string, fields []Field) LogEntry {
	if l.redact {
		msg = redactSensitiveData(msg)
	}
	entry := LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level.String(),
		Message:   msg,
		TraceID:   shortTraceID(l.traceID),
	}
	if len(fields) > 0 {
		entry.Fields = make(map[string]interface{}, len(fields))
	}
	for _, field := range fields {
		value := field.Value
		if l.redact {
			switch v := value.(type) {
			case string:
				value = redactSensitiveData(v)
			case error:
				value = redactSensitiveData(v.Error())
			}
		}
		entry.Fields[field.Key] = value
	}
	return entry
}

func (l *FileLogger) log(level LogLevel, msg string, fields ...Field) {
	l.sink.mu.Lock()
	threshold := l.level
	l.sink.mu.Unlock()
	if level < threshold {
		return
	}

	data, err := json.Marshal(l.entry(level, msg, fields))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal log entry: %v\n", err)
		return
	}
	l.sink.write(append(data, '\n'))
}

func (s *fileSink) write(line []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return
	}
	if s.maxSize > 0 && s.size >= s.maxSize {
		if err := s.rotate(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to rotate log file: %v\n", err)
			if s.file == nil {
				return
			}
		}
	}

	n, err := s.file.Write(line)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write log entry: %v\n", err)
		return
	}
	s.size += int64(n)
}

// rotate renames the current file to <path>.<timestamp>, reopens path and
// drops the oldest backups beyond maxBackups
func (s *fileSink) rotate() error {
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	s.file = nil

	rotated := s.path + "." + time.Now().UTC().Format(rotatedSuffixLayout)
	renameErr := s.fs.Rename(s.path, rotated)

	file, err := openLogFile(s.fs, s.path)
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	s.file = file
	s.size = info.Size()

	if renameErr != nil {
		return fmt.Errorf("failed to rename log file: %w", renameErr)
	}
	return s.pruneBackups()
}

func (s *fileSink) pruneBackups() error {
	if s.maxBackups <= 0 {
		return nil
	}
	backups, err := afero.Glob(s.fs, s.path+".*")
	if err != nil {
		return fmt.Errorf("failed to list log backups: %w", err)
	}
	if len(backups) <= s.maxBackups {
		return nil
	}
	sort.Strings(backups)
	for _, old := range backups[:len(backups)-s.maxBackups] {
		if err := s.fs.Remove(old); err != nil {
			return fmt.Errorf("failed to remove log backup: %w", err)
		}
	}
	return nil
}

// Debug logs a debug-level message
func (l *FileLogger) Debug(msg string, fields ...Field) {
	l.log(DEBUG, msg, fields...)
}

// Info logs an info-level message
func (l *FileLogger) Info(msg string, fields ...Field) {
	l.log(INFO, msg, fields...)
}

// Warn logs a warning-level message
func (l *FileLogger) Warn(msg string, fields ...Field) {
	l.log(WARN, msg, fields...)
}

// Error logs an error-level message
func (l *FileLogger) Error(msg string, fields ...Field) {
	l.log(ERROR, msg, fields...)
}

// WithTraceID returns a logger that stamps traceID on every line
func (l *FileLogger) WithTraceID(traceID string) Logger {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	return &FileLogger{
		sink:    l.sink,
		level:   l.level,
		traceID: traceID,
		redact:  l.redact,
	}
}

// WithContext returns a new logger that extracts trace ID from context
func (l *FileLogger) WithContext(ctx context.Context) Logger {
	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		return l
	}
	return l.WithTraceID(traceID)
}

// SetLevel sets the minimum log level
func (l *FileLogger) SetLevel(level LogLevel) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.level = level
}

// Close closes the shared log file; loggers derived from l stop writing too
func (l *FileLogger) Close() error {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	if l.sink.file == nil {
		return nil
	}
	err := l.sink.file.Close()
	l.sink.file = nil
	return err
}
