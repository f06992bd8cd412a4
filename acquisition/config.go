package acquisition

import "time"

// Fixed reference point the simulated fix is perturbed around (Stuttgart)
const (
	ReferenceLatitude  = 48.7758
	ReferenceLongitude = 9.1829
	ReferenceAltitude  = 245.0 // meters
)

// Telemetry limits
const (
	MaxSignalStrength = 50.0
	MinAccuracy       = 1.0
	MaxProgress       = 100
)

// Config holds all configuration options for the acquisition simulator
type Config struct {
	TickInterval     time.Duration // cadence of the progress clock
	Step             int           // progress added per tick
	RevealStart      int           // satellites appear once progress exceeds this
	RevealEnd        int           // last progress value that reveals satellites
	RevealInterval   int           // progress per revealed satellite
	RampStart        int           // satellites start acquiring above this
	LockStart        int           // satellites lock above this
	FixStart         int           // fix convergence starts above this
	RerollReveal     bool          // re-randomize revealed satellites every tick in the reveal window
	SpectrumInterval time.Duration // cadence of the decorative spectrum feed
	SerialPort       string        // Serial port device for NMEA output (e.g., /dev/ttyUSB0, COM1)
	BaudRate         int           // Serial baud rate
	Quiet            bool          // Suppress informational messages
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		TickInterval:     100 * time.Millisecond,
		Step:             2,
		RevealStart:      20,
		RevealEnd:        40,
		RevealInterval:   5,
		RampStart:        40,
		LockStart:        60,
		FixStart:         70,
		RerollReveal:     false,
		SpectrumInterval: 300 * time.Millisecond,
		BaudRate:         9600,
		Quiet:            false,
	}
}

// Validate checks if the configuration is valid and returns an error if not
func (c *Config) Validate() error {
	if c.TickInterval <= 0 {
		return ErrInvalidTickInterval
	}
	if c.Step < 1 || c.Step > MaxProgress {
		return ErrInvalidStep
	}
	if c.RevealStart < 0 || c.RevealStart >= c.RevealEnd || c.RevealEnd > MaxProgress {
		return ErrInvalidThresholds
	}
	if c.RampStart < 0 || c.RampStart >= c.LockStart || c.LockStart >= MaxProgress {
		return ErrInvalidThresholds
	}
	if c.FixStart < 0 || c.FixStart >= MaxProgress {
		return ErrInvalidThresholds
	}
	if c.RevealInterval <= 0 {
		return ErrInvalidRevealInterval
	}
	if c.SpectrumInterval <= 0 {
		return ErrInvalidSpectrumInterval
	}
	if c.BaudRate <= 0 {
		return ErrInvalidBaudRate
	}
	return nil
}

// revealCount returns how many roster entries are visible at progress p
// inside the reveal window.
func (c *Config) revealCount(p int) int {
	n := (p - c.RevealStart) / c.RevealInterval
	if n < 0 {
		n = 0
	}
	if n > len(Roster) {
		n = len(Roster)
	}
	return n
}

// accuracyAt returns the fix uncertainty radius at progress p
func (c *Config) accuracyAt(p int) float64 {
	acc := 50 - float64(p-c.FixStart)*2
	if acc < MinAccuracy {
		acc = MinAccuracy
	}
	return acc
}
