package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// Init builds the process logger for env and installs it as zap's global so
// every package can log through zap.L().
func Init(env string) error {
	var (
		l   *zap.Logger
		err error
	)

	switch env {
	case "development", "local", "test":
		l, err = zap.NewDevelopment()
	default:
		l, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("zap.New -> %w", err)
	}

	zap.ReplaceGlobals(l)

	return nil
}
