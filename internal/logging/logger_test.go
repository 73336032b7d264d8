package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	cfg := NewDefaultConfig()

	logger, err := NewLogger(cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Equal(t, cfg, logger.config)
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"

	_, err := NewLogger(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestNewLogger_OTELWithoutProvider(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Output.Stdout = false
	cfg.Output.OTEL = true

	_, err := NewLogger(cfg, nil)
	require.Error(t, err)
}

func TestNewLogger_StderrOnly(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Output.Stdout = false
	cfg.Output.Stderr = true

	logger, err := NewLogger(cfg, nil)
	require.NoError(t, err)
	assert.True(t, logger.Enabled(zapcore.InfoLevel))
}

func TestLogger_ContextAwareMethods(t *testing.T) {
	core, observed := observer.New(TraceLevel)
	logger := &Logger{zap: zap.New(core), config: NewDefaultConfig()}
	ctx := context.Background()

	tests := []struct {
		name    string
		logFunc func()
		level   zapcore.Level
		message string
	}{
		{"trace", func() { logger.Trace(ctx, "trace message") }, TraceLevel, "trace message"},
		{"debug", func() { logger.Debug(ctx, "debug message") }, zapcore.DebugLevel, "debug message"},
		{"info", func() { logger.Info(ctx, "info message") }, zapcore.InfoLevel, "info message"},
		{"warn", func() { logger.Warn(ctx, "warn message") }, zapcore.WarnLevel, "warn message"},
		{"error", func() { logger.Error(ctx, "error message") }, zapcore.ErrorLevel, "error message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			observed.TakeAll()
			tt.logFunc()

			logs := observed.All()
			require.Len(t, logs, 1)
			assert.Equal(t, tt.level, logs[0].Level)
			assert.Equal(t, tt.message, logs[0].Message)
		})
	}
}

func TestLogger_TraceDisabled(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	logger := &Logger{zap: zap.New(core), config: NewDefaultConfig()}

	logger.Trace(context.Background(), "hidden")
	assert.Empty(t, observed.All())
}

func TestLogger_WithAndNamed(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := &Logger{zap: zap.New(core), config: NewDefaultConfig()}

	child := logger.Named("tree").With(zap.String("component", "builder"))
	child.Info(context.Background(), "built")

	logs := observed.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "tree", logs[0].LoggerName)
	assert.Equal(t, "builder", logs[0].ContextMap()["component"])
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	assert.NotPanics(t, func() {
		logger.Info(context.Background(), "discarded")
	})
	assert.False(t, logger.Enabled(zapcore.ErrorLevel))
}

func TestFromZap(t *testing.T) {
	assert.NotNil(t, FromZap(nil))

	core, observed := observer.New(zapcore.InfoLevel)
	FromZap(zap.New(core)).Info(context.Background(), "wrapped")
	assert.Len(t, observed.All(), 1)
}

func TestContextFields(t *testing.T) {
	t.Run("empty context", func(t *testing.T) {
		assert.Empty(t, ContextFields(context.Background()))
	})

	t.Run("request and folder", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "req-1")
		ctx = WithFolderRoot(ctx, "/srv/app")

		fields := ContextFields(ctx)
		require.Len(t, fields, 2)
		assert.Equal(t, "request.id", fields[0].Key)
		assert.Equal(t, "req-1", fields[0].String)
		assert.Equal(t, "folder.root", fields[1].Key)
		assert.Equal(t, "/srv/app", fields[1].String)
	})

	t.Run("span context", func(t *testing.T) {
		traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
		spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
		sc := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    traceID,
			SpanID:     spanID,
			TraceFlags: trace.FlagsSampled,
		})
		ctx := trace.ContextWithSpanContext(context.Background(), sc)

		fields := ContextFields(ctx)
		require.Len(t, fields, 3)
		assert.Equal(t, "trace_id", fields[0].Key)
		assert.Equal(t, traceID.String(), fields[0].String)
		assert.Equal(t, "trace_sampled", fields[2].Key)
	})

	t.Run("empty values ignored", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "")
		ctx = WithFolderRoot(ctx, "")
		assert.Empty(t, ContextFields(ctx))
	})
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)
	FromContext(ctx).Warn(ctx, "from context")
	tl.AssertLogged(t, zapcore.WarnLevel, "from context")
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input   string
		want    zapcore.Level
		wantErr bool
	}{
		{"trace", TraceLevel, false},
		{"TRACE", TraceLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{" error ", zapcore.ErrorLevel, false},
		{"fatal", zapcore.InfoLevel, true},
		{"bogus", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := LevelFromString(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTestLogger(t *testing.T) {
	tl := NewTestLogger()
	ctx := WithFolderRoot(context.Background(), "/srv/app")
	tl.Info(ctx, "metadata read", zap.String("source", "dump"), zap.Int("entries", 3))

	tl.AssertLogged(t, zapcore.InfoLevel, "metadata read")
	tl.AssertNotLogged(t, zapcore.ErrorLevel, "metadata read")
	tl.AssertField(t, "metadata read", "source", "dump")
	tl.AssertField(t, "metadata read", "folder.root", "/srv/app")
	tl.AssertField(t, "metadata read", "entries", 3)

	tl.Reset()
	assert.Empty(t, tl.All())
}
