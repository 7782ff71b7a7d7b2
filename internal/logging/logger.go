package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

type LoggingConfig struct {
	Level      string `json:"level"`
	Format     string `json:"format"`
	Output     string `json:"output"`
	MaxSize    int    `json:"max_size"`
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"`
}

type Logger struct {
	logger *log.Logger
	config *LoggingConfig
	out    io.Writer
	closer io.Closer
	mutex  sync.RWMutex
	level  LogLevel
}

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelMap = map[string]LogLevel{
	"debug": DEBUG,
	"info":  INFO,
	"warn":  WARN,
	"error": ERROR,
	"fatal": FATAL,
}

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

func (l LogLevel) String() string {
	if l < DEBUG || l > FATAL {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel maps a level name to a LogLevel, defaulting to INFO
func ParseLevel(name string) LogLevel {
	if level, ok := levelMap[strings.ToLower(name)]; ok {
		return level
	}
	return INFO
}

func NewLogger(config *LoggingConfig) (*Logger, error) {
	if config == nil {
		config = &LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		}
	}

	l := &Logger{
		config: config,
		level:  ParseLevel(config.Level),
	}

	switch config.Output {
	case "", "stdout":
		l.out = os.Stdout
	case "stderr":
		l.out = os.Stderr
	default:
		f, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		f.Close()

		rotator := &lumberjack.Logger{
			Filename:   config.Output,
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAge,
		}
		l.out = rotator
		l.closer = rotator
	}

	flags := log.LstdFlags
	if config.Format == "json" {
		flags = 0
	}
	l.logger = log.New(l.out, "", flags)
	return l, nil
}

// NewWriterLogger logs to w at the given level, mostly for tests
func NewWriterLogger(w io.Writer, level string) *Logger {
	return &Logger{
		logger: log.New(w, "", log.LstdFlags),
		config: &LoggingConfig{Level: level, Format: "text"},
		out:    w,
		level:  ParseLevel(level),
	}
}

// SetLevel changes the minimum level at runtime
func (l *Logger) SetLevel(level LogLevel) {
	l.mutex.Lock()
	l.level = level
	l.mutex.Unlock()
}

func (l *Logger) Level() LogLevel {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return l.level
}

func (l *Logger) enabled(level LogLevel) bool {
	return l.Level() <= level
}

func (l *Logger) emit(level LogLevel, format string, args ...interface{}) {
	if l.config.Format != "json" {
		l.logger.Printf("["+level.String()+"] "+format, args...)
		return
	}
	line, err := json.Marshal(struct {
		Time  string `json:"time"`
		Level string `json:"level"`
		Msg   string `json:"msg"`
	}{time.Now().UTC().Format(time.RFC3339Nano), level.String(), fmt.Sprintf(format, args...)})
	if err != nil {
		l.logger.Printf("[%s] %s", level, fmt.Sprintf(format, args...))
		return
	}
	l.logger.Print(string(line))
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.enabled(DEBUG) {
		l.emit(DEBUG, format, args...)
	}
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l.enabled(INFO) {
		l.emit(INFO, format, args...)
	}
}

func (l *Logger) Warn(format string, args ...interface{}) {
	if l.enabled(WARN) {
		l.emit(WARN, format, args...)
	}
}

func (l *Logger) Error(format string, args ...interface{}) {
	if l.enabled(ERROR) {
		l.emit(ERROR, format, args...)
	}
}

func (l *Logger) Fatal(format string, args ...interface{}) {
	l.emit(FATAL, format, args...)
	l.Close()
	os.Exit(1)
}

// Writer exposes the underlying output, e.g. for HTTP access logs
func (l *Logger) Writer() io.Writer {
	return l.out
}

func (l *Logger) ProgressBar(current, total int, label string, stats string) {
	if !l.enabled(INFO) || total <= 0 {
		return
	}

	percent := float64(current) * 100 / float64(total)
	filled := int(float64(current) * 20 / float64(total))
	if filled > 20 {
		filled = 20
	}
	var bar strings.Builder
	for i := 0; i < 20; i++ {
		if i < filled {
			bar.WriteByte('=')
		} else if i == filled {
			bar.WriteByte('>')
		} else {
			bar.WriteByte('-')
		}
	}

	// Use carriage return to overwrite the line
	fmt.Fprintf(l.out, "\r[%s] %3.0f%% | %s | %d/%d | %s\033[K", bar.String(), percent, label, current, total, stats)
	if current >= total {
		fmt.Fprintln(l.out)
	}
}

func (l *Logger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

var std atomic.Pointer[Logger]

func init() {
	std.Store(NewWriterLogger(os.Stderr, "info"))
}

// Default returns the process-wide logger
func Default() *Logger {
	return std.Load()
}

// SetDefault replaces the process-wide logger
func SetDefault(l *Logger) {
	if l != nil {
		std.Store(l)
	}
}
