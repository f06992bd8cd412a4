package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.bug.st/serial"

	"github.com/Bucknalla/galileo-acquisition-sim/acquisition"
	"github.com/Bucknalla/galileo-acquisition-sim/internal/logging"
)

// Version information - populated at build time via ldflags
var (
	Version   = "dev"     // Will be set to git tag if available, otherwise "dev"
	Commit    = "unknown" // Will be set to git commit hash
	BuildDate = "unknown" // Will be set to build timestamp
)

func main() {
	config := acquisition.DefaultConfig()
	var showVersion, jsonLog bool
	var logLevel string

	// Define command line flags
	flag.BoolVar(&showVersion, "version", false, "Show version information and exit")
	flag.DurationVar(&config.TickInterval, "rate", config.TickInterval, "Progress tick interval")
	flag.IntVar(&config.Step, "step", config.Step, "Progress percent added per tick (1-100)")
	flag.IntVar(&config.RevealEnd, "reveal-end", config.RevealEnd, "Last progress percent that reveals satellites")
	flag.BoolVar(&config.RerollReveal, "reroll", config.RerollReveal, "Re-randomize revealed satellites on every tick of the reveal window")
	flag.StringVar(&config.SerialPort, "serial", "", "Serial port for NMEA output (e.g., /dev/ttyUSB0, COM1)")
	flag.IntVar(&config.BaudRate, "baud", config.BaudRate, "Serial port baud rate")
	flag.BoolVar(&config.Quiet, "quiet", false, "Suppress info messages (only output NMEA data)")
	flag.BoolVar(&jsonLog, "json-log", false, "Write logs as JSON")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nGalileo Signal Acquisition Simulator\n")
		fmt.Fprintf(os.Stderr, "Simulates a Galileo receiver acquiring a fix and writes NMEA0183 sentences on every tick.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	// Handle version flag
	if showVersion {
		fmt.Println(versionString())
		os.Exit(0)
	}

	logger := newLogger(config.Quiet, jsonLog, logLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.Validate(); err != nil {
		logger.Error(ctx, "invalid configuration", logging.Err(err))
		os.Exit(2)
	}

	// Setup output writer (serial port or stdout)
	var nmeaWriter io.Writer = os.Stdout
	if config.SerialPort != "" {
		port, err := openSerial(config.SerialPort, config.BaudRate)
		if err != nil {
			logger.Error(ctx, "failed to open serial port",
				logging.String("port", config.SerialPort), logging.Err(err))
			os.Exit(1)
		}
		defer port.Close()
		nmeaWriter = port
		logger.Info(ctx, "opened serial port",
			logging.String("port", config.SerialPort), logging.Int("baud", config.BaudRate))
	}

	logger.Info(ctx, "starting Galileo acquisition",
		logging.String("version", versionString()),
		logging.String("tick", config.TickInterval.String()),
		logging.Int("step", config.Step),
		logging.Bool("reroll", config.RerollReveal))

	summary, err := run(ctx, config, nmeaWriter, logger)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(ctx, "run failed", logging.Err(err))
		os.Exit(1)
	}

	if summary.Samples > 0 {
		logger.Info(ctx, "fix summary",
			logging.Int("samples", summary.Samples),
			logging.Float("mean_lat", summary.MeanLatitude),
			logging.Float("mean_lon", summary.MeanLongitude),
			logging.Float("stddev_lat", summary.StdDevLatitude),
			logging.Float("stddev_lon", summary.StdDevLongitude))
	}
}

// run performs one acquisition, writing the NMEA sentences of every state
// update to w. It returns when the run connects or ctx is done.
func run(ctx context.Context, config acquisition.Config, w io.Writer, logger logging.Logger) (acquisition.FixSummary, error) {
	simulator, err := acquisition.NewSimulator(config)
	if err != nil {
		return acquisition.FixSummary{}, fmt.Errorf("failed to create simulator: %w", err)
	}

	connected := make(chan struct{})
	writeErr := make(chan error, 1)
	var once sync.Once

	// connected closes after the final state has been written
	simulator.AddCallback(func(state acquisition.RunState) {
		sentences := acquisition.NMEA(state, time.Now().UTC())
		if _, err := io.WriteString(w, strings.Join(sentences, "")); err != nil {
			select {
			case writeErr <- err:
			default:
			}
		}
		if state.ConnectionPhase == acquisition.PhaseConnected {
			once.Do(func() { close(connected) })
		}
	})
	simulator.OnPhaseChange(func(t acquisition.PhaseTransition) {
		logger.Info(ctx, "phase change",
			logging.RunID(t.RunID),
			logging.Phase(string(t.From), string(t.To)),
			logging.Int("progress", t.Progress))
	})

	runID := simulator.Start()
	defer simulator.Stop()
	runLogger := logger.With(logging.RunID(runID))
	runLogger.Debug(ctx, "run started")

	select {
	case <-connected:
		return simulator.FixSummary(), nil
	case err := <-writeErr:
		return simulator.FixSummary(), fmt.Errorf("failed to write NMEA output: %w", err)
	case <-ctx.Done():
		runLogger.Info(ctx, "run interrupted", logging.Int("progress", simulator.Progress()))
		return simulator.FixSummary(), ctx.Err()
	}
}

func openSerial(port string, baud int) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	return serial.Open(port, mode)
}

// newLogger logs to stderr so it doesn't interfere with NMEA output
func newLogger(quiet, jsonLog bool, level string) logging.Logger {
	if quiet {
		level = "error"
	}
	format := "text"
	if jsonLog {
		format = "json"
	}
	return logging.NewFromEnv(logging.Config{Level: level, Format: format, Output: os.Stderr})
}

func versionString() string {
	if Version != "dev" {
		return "v" + Version
	}
	return Commit
}
