package logger

import (
	"go.uber.org/zap"
)

// New creates a zap logger configured for the given application environment.
// "production" yields JSON output at info level; anything else yields a
// development console logger at debug level.
func New(appEnv string) (*zap.Logger, error) {
	if appEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// NewNamed creates a logger for the environment and names it after the service.
func NewNamed(appEnv, service string) (*zap.Logger, error) {
	log, err := New(appEnv)
	if err != nil {
		return nil, err
	}
	return log.Named(service), nil
}
