package db

import (
	"fmt"
	"strings"

	"budget-backend/internal/shared/telemetry"
)

// gooseLogger routes goose output through the process logger.
type gooseLogger struct{}

func (gooseLogger) Fatalf(format string, v ...any) {
	telemetry.Logger().Fatalf(format, v...)
}

func (gooseLogger) Printf(format string, v ...any) {
	telemetry.Info("db.migrate", map[string]any{"detail": strings.TrimSpace(fmt.Sprintf(format, v...))})
}
