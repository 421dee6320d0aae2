// Package log provides the leveled, context-first logging calling convention
// used throughout this module, modeled on cockroach's util/log without the
// sink/rotation/OTLP machinery this module has no use for.
package log

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/logtags"
)

// Severity is a log level, ordered low to high.
type Severity int32

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "I"
	case SeverityWarning:
		return "W"
	case SeverityError:
		return "E"
	case SeverityFatal:
		return "F"
	default:
		return "?"
	}
}

// Sink receives formatted log lines. Tests can install their own to capture
// output; the default sink writes to stderr.
type Sink func(line string)

var sink Sink = func(line string) { fmt.Fprintln(os.Stderr, line) }

// SetSink overrides the destination for log output, returning the previous
// sink so callers can restore it.
func SetSink(s Sink) Sink {
	prev := sink
	sink = s
	return prev
}

func emit(ctx context.Context, sev Severity, format string, args []interface{}) {
	msg := fmt.Sprintf(format, args...)
	tags := tagsFromContext(ctx)
	line := fmt.Sprintf("%s%s %s%s", sev, time.Now().UTC().Format("060102 15:04:05.000000"), tags, msg)
	sink(line)
	if sev == SeverityFatal {
		os.Exit(1)
	}
}

// tagsFromContext formats the logtags.Buffer carried by ctx (if any) the
// way cockroach's log package does: "[key1=val1,key2=val2] ".
func tagsFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	buf := logtags.FromContext(ctx)
	tags := buf.Get()
	if len(tags) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteByte('[')
	for i, t := range tags {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(t.Key())
		if v := t.ValueStr(); v != "" {
			sb.WriteByte('=')
			sb.WriteString(v)
		}
	}
	sb.WriteString("] ")
	return sb.String()
}

// WithTag annotates ctx with a key/value tag prepended to every log line
// emitted while it is threaded through, the same logtags.AddTag calling
// convention this corpus uses throughout (e.g. pkg/sql/internal.go).
func WithTag(ctx context.Context, key string, value interface{}) context.Context {
	return logtags.AddTag(ctx, key, value)
}

func Infof(ctx context.Context, format string, args ...interface{})    { emit(ctx, SeverityInfo, format, args) }
func Warningf(ctx context.Context, format string, args ...interface{}) { emit(ctx, SeverityWarning, format, args) }
func Errorf(ctx context.Context, format string, args ...interface{})   { emit(ctx, SeverityError, format, args) }
func Fatalf(ctx context.Context, format string, args ...interface{})   { emit(ctx, SeverityFatal, format, args) }
