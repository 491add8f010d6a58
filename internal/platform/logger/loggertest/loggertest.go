// Package loggertest arma loggers que escriben en el output del test.
package loggertest

import (
	"testing"

	"pet-adoption-hub/internal/platform/logger"

	"go.uber.org/zap/zaptest"
)

// New escribe en t.Log (visible con -v o si el test falla).
func New(t testing.TB) logger.Logger {
	return logger.NewZap(zaptest.NewLogger(t))
}
