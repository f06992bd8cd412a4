package acquisition

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Simulator drives simulated Galileo acquisition runs. A run starts in
// PhaseScanning, advances by Config.Step on every tick and ends in
// PhaseConnected at 100%.
type Simulator struct {
	mu         sync.RWMutex
	config     Config // applied by the next Start
	runConfig  Config // in effect for the current run
	rng        *rand.Rand
	now        func() time.Time
	state      RunState
	spectrum   Spectrum
	latSamples []float64
	lonSamples []float64
	// Control fields
	running         bool
	generation      uint64
	cancel          context.CancelFunc
	notifyMu        sync.Mutex // serializes observer delivery
	callbacks       []func(RunState)
	phaseCallbacks  []func(PhaseTransition)
	statusCallbacks []func(Status)
}

// NewSimulator creates a new acquisition simulator instance in PhaseIdle
func NewSimulator(config Config) (*Simulator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Simulator{
		config:    config,
		runConfig: config,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
		state: RunState{
			ConnectionPhase:  PhaseIdle,
			ActiveSatellites: []Satellite{},
		},
		spectrum: Spectrum{Waves: []SignalWave{}},
	}, nil
}

// AddCallback adds a callback that is called with a copy of the run state
// after every applied tick and when a run starts. Callbacks run on the
// ticking goroutine and must not block. Updates are delivered one at a time
// and in order; updates of a run replaced by Start are never delivered after
// the new run's first update. Callbacks must not call Start or Tick.
func (s *Simulator) AddCallback(callback func(RunState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, callback)
}

// AddStatusCallback adds a callback that receives the Status taken under
// the same lock as each state update.
func (s *Simulator) AddStatusCallback(callback func(Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusCallbacks = append(s.statusCallbacks, callback)
}

// OnPhaseChange adds a callback that is called for every phase transition,
// in order.
func (s *Simulator) OnPhaseChange(callback func(PhaseTransition)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phaseCallbacks = append(s.phaseCallbacks, callback)
}

// Start begins a new run and returns its ID. Any run in progress is
// discarded and its tick loop stopped.
func (s *Simulator) Start() string {
	s.mu.Lock()

	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	gen := s.generation
	s.runConfig = s.config

	now := s.now()
	s.state = RunState{
		RunID:            uuid.NewString(),
		ProgressPercent:  0,
		ConnectionPhase:  PhaseScanning,
		ActiveSatellites: []Satellite{},
		StartedAt:        now,
	}
	s.spectrum.reset()
	s.latSamples = nil
	s.lonSamples = nil

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running = true

	transition := PhaseTransition{
		RunID: s.state.RunID,
		From:  PhaseIdle,
		To:    PhaseScanning,
		At:    now,
	}
	snapshot := s.state.clone()
	status := s.statusLocked()
	cfg := s.runConfig
	s.mu.Unlock()

	s.deliver(gen, snapshot, status, []PhaseTransition{transition})

	go s.run(ctx, gen, cfg)
	return snapshot.RunID
}

// Stop stops the tick loop of the current run. The run state is kept as is.
func (s *Simulator) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrSimulatorNotRunning
	}
	s.haltLocked()
	return nil
}

// Tick advances the current run by one step. It reports whether the run is
// still in progress afterwards. Tick is a no-op when no run is active.
func (s *Simulator) Tick() bool {
	s.mu.RLock()
	gen := s.generation
	s.mu.RUnlock()
	return s.tick(gen)
}

// IsRunning returns whether a run is currently ticking
func (s *Simulator) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// State returns a copy of the current run state
func (s *Simulator) State() RunState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Progress returns the progress of the current run in percent
func (s *Simulator) Progress() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ProgressPercent
}

// Phase returns the connection phase of the current run
func (s *Simulator) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ConnectionPhase
}

// Status returns the current simulator status
func (s *Simulator) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statusLocked()
}

// statusLocked must be called with s.mu held
func (s *Simulator) statusLocked() Status {
	var elapsed time.Duration
	switch {
	case !s.state.CompletedAt.IsZero():
		elapsed = s.state.CompletedAt.Sub(s.state.StartedAt)
	case !s.state.StartedAt.IsZero():
		elapsed = s.now().Sub(s.state.StartedAt)
	}

	return Status{
		Running:     s.running,
		Description: s.state.ConnectionPhase.Description(),
		ElapsedTime: elapsed,
		State:       s.state.clone(),
		Spectrum:    s.spectrum.clone(),
		FixSummary:  summarizeFix(s.latSamples, s.lonSamples),
	}
}

// FixSummary returns statistics over the fix samples of the current run
func (s *Simulator) FixSummary() FixSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return summarizeFix(s.latSamples, s.lonSamples)
}

// UpdateConfig replaces the configuration. It takes effect with the next
// Start; a run in progress keeps the configuration it started with.
func (s *Simulator) UpdateConfig(newConfig Config) error {
	if err := newConfig.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = newConfig
	return nil
}

// Config returns the configuration applied by the next Start
func (s *Simulator) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// run is the tick loop of one run
func (s *Simulator) run(ctx context.Context, gen uint64, cfg Config) {
	ticker := time.NewTicker(cfg.TickInterval)
	defer ticker.Stop()
	spectrumTicker := time.NewTicker(cfg.SpectrumInterval)
	defer spectrumTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.tick(gen) {
				return
			}
		case <-spectrumTicker.C:
			s.tickSpectrum(gen)
		}
	}
}

// tick applies one progress step to run gen. Ticks of superseded runs are
// dropped.
func (s *Simulator) tick(gen uint64) bool {
	s.mu.Lock()
	if gen != s.generation || !s.running {
		s.mu.Unlock()
		return false
	}

	transitions := s.advance()
	done := s.state.ConnectionPhase == PhaseConnected
	if done {
		s.haltLocked()
	}
	snapshot := s.state.clone()
	status := s.statusLocked()
	s.mu.Unlock()

	s.deliver(gen, snapshot, status, transitions)
	return !done
}

func (s *Simulator) tickSpectrum(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || !s.running {
		return
	}
	s.spectrum.advance(s.rng, s.now())
}

// advance increments progress and derives satellites, status and fix from
// the new value. Must be called with s.mu held.
func (s *Simulator) advance() []PhaseTransition {
	cfg := &s.runConfig
	prev := s.state.ProgressPercent
	p := prev + cfg.Step
	if p > MaxProgress {
		p = MaxProgress
	}
	s.state.ProgressPercent = p

	// A coarse step that jumps over the end of the reveal window still
	// reveals what the window end would have shown.
	if p > cfg.RevealStart && prev < cfg.RevealEnd {
		at := p
		if at > cfg.RevealEnd {
			at = cfg.RevealEnd
		}
		s.reveal(at)
	}

	if p > cfg.RampStart {
		s.ramp(p)
	}

	var transitions []PhaseTransition
	if p > cfg.FixStart {
		transitions = append(transitions, s.moveTo(PhaseConnecting)...)
		s.state.Fix = Fix{
			Latitude:       ReferenceLatitude + (s.rng.Float64()-0.5)*0.001,
			Longitude:      ReferenceLongitude + (s.rng.Float64()-0.5)*0.001,
			AccuracyMeters: cfg.accuracyAt(p),
		}
		s.latSamples = append(s.latSamples, s.state.Fix.Latitude)
		s.lonSamples = append(s.lonSamples, s.state.Fix.Longitude)
	}

	if p >= MaxProgress {
		transitions = append(transitions, s.moveTo(PhaseConnected)...)
		s.state.Fix.AltitudeMeters = ReferenceAltitude
		s.state.CompletedAt = s.now()
	}

	return transitions
}

// reveal sizes the active set for progress p
func (s *Simulator) reveal(p int) {
	n := s.runConfig.revealCount(p)

	if s.runConfig.RerollReveal {
		sats := make([]Satellite, 0, n)
		for i := 0; i < n; i++ {
			sats = append(sats, s.newSatellite(Roster[i]))
		}
		s.state.ActiveSatellites = sats
		return
	}

	for i := len(s.state.ActiveSatellites); i < n; i++ {
		s.state.ActiveSatellites = append(s.state.ActiveSatellites, s.newSatellite(Roster[i]))
	}
}

func (s *Simulator) newSatellite(c Candidate) Satellite {
	return Satellite{
		ID:               c.ID,
		DisplayName:      c.DisplayName,
		PRN:              c.PRN,
		ElevationDeg:     s.rng.Float64()*80 + 10, // 10-90 degrees
		AzimuthDeg:       s.rng.Float64() * 360,   // 0-360 degrees
		SignalStrengthDb: s.rng.Float64()*30 + 20, // 20-50 dB
		State:            StateSearching,
	}
}

// ramp moves every active satellite towards lock and grows its signal
func (s *Simulator) ramp(p int) {
	state := StateAcquiring
	if p > s.runConfig.LockStart {
		state = StateLocked
	}

	for i := range s.state.ActiveSatellites {
		sat := &s.state.ActiveSatellites[i]
		sat.State = state
		sat.SignalStrengthDb += s.rng.Float64() * 10
		if sat.SignalStrengthDb > MaxSignalStrength {
			sat.SignalStrengthDb = MaxSignalStrength
		}
	}
}

// moveTo advances the phase to target, returning one transition for every
// phase passed on the way. It never moves backwards.
func (s *Simulator) moveTo(target Phase) []PhaseTransition {
	var transitions []PhaseTransition
	now := s.now()
	for r := s.state.ConnectionPhase.rank() + 1; r <= target.rank(); r++ {
		next := phaseOrder[r]
		transitions = append(transitions, PhaseTransition{
			RunID:    s.state.RunID,
			From:     s.state.ConnectionPhase,
			To:       next,
			Progress: s.state.ProgressPercent,
			At:       now,
		})
		s.state.ConnectionPhase = next
	}
	return transitions
}

// haltLocked stops the tick loop. Must be called with s.mu held.
func (s *Simulator) haltLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.running = false
	s.spectrum.clearWaves()
}

// deliver hands one update of run gen to the observers. It drops the
// update when a newer run has started.
func (s *Simulator) deliver(gen uint64, state RunState, status Status, transitions []PhaseTransition) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.RLock()
	stale := gen != s.generation
	callbacks := append([]func(RunState){}, s.callbacks...)
	phaseCallbacks := append([]func(PhaseTransition){}, s.phaseCallbacks...)
	statusCallbacks := append([]func(Status){}, s.statusCallbacks...)
	s.mu.RUnlock()
	if stale {
		return
	}

	for _, t := range transitions {
		for _, callback := range phaseCallbacks {
			callback(t)
		}
	}
	for _, callback := range callbacks {
		callback(state.clone())
	}
	for _, callback := range statusCallbacks {
		callback(status)
	}
}
