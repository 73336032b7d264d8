package logging

import (
	"fmt"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger is a Logger whose entries stay in memory for assertions. It
// records every level down to trace.
type TestLogger struct {
	*Logger
	observed *observer.ObservedLogs
}

// NewTestLogger returns a recording logger.
func NewTestLogger() *TestLogger {
	core, observed := observer.New(TraceLevel)
	return &TestLogger{
		Logger:   &Logger{zap: zap.New(core), config: NewDefaultConfig()},
		observed: observed,
	}
}

// All returns every recorded entry.
func (t *TestLogger) All() []observer.LoggedEntry {
	return t.observed.All()
}

// FilterMessage returns entries whose message contains msg.
func (t *TestLogger) FilterMessage(msg string) *observer.ObservedLogs {
	return t.observed.FilterMessageSnippet(msg)
}

// Reset drops everything recorded so far.
func (t *TestLogger) Reset() {
	t.observed.TakeAll()
}

func (t *TestLogger) matching(level zapcore.Level, msg string) *observer.ObservedLogs {
	return t.observed.FilterLevelExact(level).FilterMessageSnippet(msg)
}

// AssertLogged fails tb unless an entry at level mentions msg.
func (t *TestLogger) AssertLogged(tb testing.TB, level zapcore.Level, msg string) {
	tb.Helper()
	if t.matching(level, msg).Len() == 0 {
		tb.Errorf("no %s entry mentioning %q in %s", level, msg, t.dump())
	}
}

// AssertNotLogged fails tb if an entry at level mentions msg.
func (t *TestLogger) AssertNotLogged(tb testing.TB, level zapcore.Level, msg string) {
	tb.Helper()
	if n := t.matching(level, msg).Len(); n > 0 {
		tb.Errorf("%d unexpected %s entries mentioning %q", n, level, msg)
	}
}

// AssertField fails tb unless an entry mentioning msg carries key=want.
// Fields compare by their decoded value, so zap.Int fields match an int64.
func (t *TestLogger) AssertField(tb testing.TB, msg, key string, want interface{}) {
	tb.Helper()
	for _, entry := range t.FilterMessage(msg).All() {
		if got, ok := entry.ContextMap()[key]; ok && fmt.Sprint(got) == fmt.Sprint(want) {
			return
		}
	}
	tb.Errorf("no entry mentioning %q has %s=%v in %s", msg, key, want, t.dump())
}

func (t *TestLogger) dump() string {
	entries := t.observed.All()
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, fmt.Sprintf("[%s] %s %v", e.Level, e.Message, e.ContextMap()))
	}
	return fmt.Sprint(out)
}
