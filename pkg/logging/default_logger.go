// Copyright 2025 The open-brski Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"
)

// Verify DefaultLogger implements Logger at compile time.
var _ Logger = (*DefaultLogger)(nil)

// Options configures a DefaultLogger.
type Options struct {
	// Level sets the minimum log level. Defaults to LevelInfo.
	Level LogLevel
	// Format selects text or JSON output. Defaults to FormatText.
	Format LogFormat
	// Output sets the destination writer. Defaults to os.Stderr.
	Output io.Writer
}

// DefaultLogger is the built-in Logger implementation. It serializes writes
// with a mutex so one logger can be shared across goroutines.
type DefaultLogger struct {
	mu     sync.Mutex
	level  LogLevel
	format LogFormat
	out    io.Writer
	fields map[string]interface{}
}

// New creates a DefaultLogger from options.
func New(opts Options) *DefaultLogger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	return &DefaultLogger{
		level:  opts.Level,
		format: opts.Format,
		out:    out,
	}
}

// Debug logs at debug level with printf-style formatting.
func (l *DefaultLogger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

// Info logs at info level with printf-style formatting.
func (l *DefaultLogger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

// Warn logs at warn level with printf-style formatting.
func (l *DefaultLogger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

// Error logs at error level with printf-style formatting.
func (l *DefaultLogger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

// GetLevel returns the current minimum log level.
func (l *DefaultLogger) GetLevel() LogLevel {
	return l.level
}

// WithField returns a copy of the logger with the key-value pair attached
// to every message. The receiver is not modified.
func (l *DefaultLogger) WithField(key string, value interface{}) Logger {
	fields := make(map[string]interface{}, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	fields[key] = value
	return &DefaultLogger{
		level:  l.level,
		format: l.format,
		out:    l.out,
		fields: fields,
	}
}

func (l *DefaultLogger) log(level LogLevel, format string, args ...interface{}) {
	if level < l.level || l.level == LevelSilent {
		return
	}
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.format == FormatJSON {
		entry := map[string]interface{}{
			"time":    time.Now().UTC().Format(time.RFC3339),
			"level":   level.String(),
			"message": msg,
		}
		for k, v := range l.fields {
			entry[k] = v
		}
		line, err := json.Marshal(entry)
		if err != nil {
			fmt.Fprintf(l.out, "%s %s\n", level, msg)
			return
		}
		fmt.Fprintf(l.out, "%s\n", line)
		return
	}

	if len(l.fields) == 0 {
		fmt.Fprintf(l.out, "[%s] %s\n", level, msg)
		return
	}

	keys := make([]string, 0, len(l.fields))
	for k := range l.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(l.out, "[%s] %s", level, msg)
	for _, k := range keys {
		fmt.Fprintf(l.out, " %s=%v", k, l.fields[k])
	}
	fmt.Fprintln(l.out)
}
