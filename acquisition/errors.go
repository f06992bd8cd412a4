package acquisition

import "errors"

// Common errors returned by the acquisition simulator
var (
	ErrInvalidTickInterval     = errors.New("tick interval must be positive")
	ErrInvalidStep             = errors.New("progress step must be between 1 and 100")
	ErrInvalidThresholds       = errors.New("thresholds must satisfy 0 <= reveal start < reveal end <= 100, ramp < lock < 100 and fix start < 100")
	ErrInvalidRevealInterval   = errors.New("reveal interval must be positive")
	ErrInvalidSpectrumInterval = errors.New("spectrum interval must be positive")
	ErrInvalidBaudRate         = errors.New("baud rate must be positive")
	ErrSimulatorNotRunning     = errors.New("simulator is not running")
)
