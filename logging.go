// logging.go
// Builds the process-wide structured logger from configuration.

package main

import (
	"fieldlog/config"

	"go.uber.org/zap"
)

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err == nil {
		zcfg.Level = level
	}

	return zcfg.Build()
}
