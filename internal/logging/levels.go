package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// TraceLevel sits below debug. The tree builder logs every visited entry
// and every ignore decision at this level.
const TraceLevel = zapcore.Level(-2)

// levelNames are the names accepted in attnd configuration.
var levelNames = map[string]zapcore.Level{
	"trace": TraceLevel,
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}

// LevelFromString parses a configured level name, case-insensitively. On
// failure it returns info alongside the error.
func LevelFromString(level string) (zapcore.Level, error) {
	if l, ok := levelNames[strings.ToLower(strings.TrimSpace(level))]; ok {
		return l, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q (want trace, debug, info, warn or error)", level)
}
