package stdout

import (
	"encoding/json"
	"log"
	"os"
	"time"

	"reviewmonitor/internal/application/ports"
)

type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
)

func parseLevel(s string) level {
	switch s {
	case "debug":
		return levelDebug
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// Logger implements ports.Logger writing JSON lines to stdout
type Logger struct {
	fields   map[string]interface{}
	logger   *log.Logger
	minLevel level
}

// NewLogger creates a new stdout logger
func NewLogger(logLevel string) ports.Logger {
	return &Logger{
		fields:   make(map[string]interface{}),
		logger:   log.New(os.Stdout, "", 0),
		minLevel: parseLevel(logLevel),
	}
}

// Info logs informational messages
func (l *Logger) Info(msg string, fields ...interface{}) {
	if l.minLevel > levelInfo {
		return
	}
	l.log("INFO", msg, fields...)
}

// Warn logs warning messages
func (l *Logger) Warn(msg string, fields ...interface{}) {
	if l.minLevel > levelWarn {
		return
	}
	l.log("WARN", msg, fields...)
}

// Error logs error messages
func (l *Logger) Error(msg string, fields ...interface{}) {
	l.log("ERROR", msg, fields...)
}

// WithFields returns a new Logger with additional fields
func (l *Logger) WithFields(fields map[string]interface{}) ports.Logger {
	newFields := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}

	return &Logger{
		fields:   newFields,
		logger:   l.logger,
		minLevel: l.minLevel,
	}
}

// log is the internal logging method
func (l *Logger) log(level string, msg string, fields ...interface{}) {
	entry := make(map[string]interface{})

	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	entry["level"] = level
	entry["message"] = msg

	// Add persistent fields
	for k, v := range l.fields {
		entry[k] = v
	}

	// Parse variadic fields (key1, value1, key2, value2, ...)
	for i := 0; i < len(fields)-1; i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}

		if err, ok := fields[i+1].(error); ok && err != nil {
			entry[key] = err.Error()
		} else {
			entry[key] = fields[i+1]
		}
	}

	jsonBytes, err := json.Marshal(entry)
	if err != nil {
		l.logger.Printf("Failed to marshal log entry: %v", err)
		return
	}
	l.logger.Println(string(jsonBytes))
}
