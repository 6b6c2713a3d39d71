// Package logger provides the structured logger used by the CLI. It writes
// one line per entry, either as JSON for log aggregation or as a compact
// human-readable text line for terminals.
package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Samratsinh-git/YandexDownloader/internal/observability/types"
)

// LogLevel represents the severity level of a log message.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// ParseLevel converts a string to a LogLevel.
// Unrecognized levels default to InfoLevel.
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	default:
		return "unknown"
	}
}

// Format selects the line encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Options configures a Logger.
type Options struct {
	ServiceName string
	Environment string
	Level       string
	Format      string
	// Output defaults to os.Stderr; stdout is reserved for the saved path.
	Output io.Writer
	Fields types.Fields
}

// Logger implements types.Logger.
type Logger struct {
	mu               *sync.Mutex
	output           io.Writer
	serviceName      string
	environment      string
	format           Format
	minLevel         LogLevel
	persistentFields types.Fields
	now              func() time.Time
}

// New creates a Logger from opts.
func New(opts Options) *Logger {
	output := opts.Output
	if output == nil {
		output = os.Stderr
	}

	format := FormatText
	if strings.EqualFold(opts.Format, string(FormatJSON)) {
		format = FormatJSON
	}

	fields := make(types.Fields, len(opts.Fields))
	for k, v := range opts.Fields {
		fields[k] = v
	}

	return &Logger{
		mu:               &sync.Mutex{},
		output:           output,
		serviceName:      opts.ServiceName,
		environment:      opts.Environment,
		format:           format,
		minLevel:         ParseLevel(opts.Level),
		persistentFields: fields,
		now:              time.Now,
	}
}

func (l *Logger) Info(ctx context.Context, msg string, fields types.Fields) {
	l.log(ctx, InfoLevel, msg, nil, fields)
}

func (l *Logger) Error(ctx context.Context, msg string, err error, fields types.Fields) {
	l.log(ctx, ErrorLevel, msg, err, fields)
}

func (l *Logger) Warn(ctx context.Context, msg string, fields types.Fields) {
	l.log(ctx, WarnLevel, msg, nil, fields)
}

func (l *Logger) Debug(ctx context.Context, msg string, fields types.Fields) {
	l.log(ctx, DebugLevel, msg, nil, fields)
}

// WithFields returns a child logger sharing the same output and lock.
func (l *Logger) WithFields(fields types.Fields) types.Logger {
	newFields := make(types.Fields, len(l.persistentFields)+len(fields))
	for k, v := range l.persistentFields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}

	child := *l
	child.persistentFields = newFields
	return &child
}

func (l *Logger) log(ctx context.Context, level LogLevel, msg string, err error, fields types.Fields) {
	if level < l.minLevel {
		return
	}

	entry := make(types.Fields, len(l.persistentFields)+len(fields)+4)
	for k, v := range l.persistentFields {
		entry[k] = v
	}
	if runID, ok := types.RunIDFrom(ctx); ok {
		entry["run_id"] = runID
	}
	if err != nil {
		entry["error"] = err.Error()
	}
	for k, v := range fields {
		entry[k] = v
	}

	ts := l.now().UTC()

	var line []byte
	if l.format == FormatJSON {
		entry["timestamp"] = ts.Format(time.RFC3339Nano)
		entry["level"] = level.String()
		entry["message"] = msg
		if l.serviceName != "" {
			entry["service"] = l.serviceName
		}
		if l.environment != "" {
			entry["env"] = l.environment
		}
		b, mErr := json.Marshal(entry)
		if mErr != nil {
			b = []byte(fmt.Sprintf(`{"level":"error","message":"failed to marshal log entry: %s"}`, mErr))
		}
		line = append(b, '\n')
	} else {
		line = []byte(formatText(ts, level, msg, entry))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.output.Write(line)
}

// formatText renders "ts [LEVEL] msg | k=v k=v" with keys sorted.
func formatText(ts time.Time, level LogLevel, msg string, entry types.Fields) string {
	var b strings.Builder
	b.WriteString(ts.Format(time.RFC3339))
	b.WriteString(" [")
	b.WriteString(strings.ToUpper(level.String()))
	b.WriteString("] ")
	b.WriteString(msg)

	if len(entry) > 0 {
		keys := make([]string, 0, len(entry))
		for k := range entry {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString(" |")
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, entry[k])
		}
	}
	b.WriteByte('\n')
	return b.String()
}
