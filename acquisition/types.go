package acquisition

import "time"

// State is the acquisition state of a single simulated satellite
type State string

const (
	StateSearching State = "searching"
	StateAcquiring State = "acquiring"
	StateLocked    State = "locked"
	StateLost      State = "lost" // valid tag, never produced by the progression rules
)

// Phase is the connection phase of a run
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseScanning   Phase = "scanning"
	PhaseConnecting Phase = "connecting"
	PhaseConnected  Phase = "connected"
)

// phaseOrder is the only order in which phases are visited within a run
var phaseOrder = []Phase{PhaseIdle, PhaseScanning, PhaseConnecting, PhaseConnected}

func (p Phase) rank() int {
	for i, ph := range phaseOrder {
		if ph == p {
			return i
		}
	}
	return -1
}

// Description returns the status line shown for the phase
func (p Phase) Description() string {
	switch p {
	case PhaseIdle:
		return "Ready to scan"
	case PhaseScanning:
		return "Analyzing signal spectrum..."
	case PhaseConnecting:
		return "Triangulating position..."
	case PhaseConnected:
		return "Galileo link active"
	}
	return string(p)
}

// Satellite represents a simulated Galileo satellite in the active set.
// Elevation is kept in [10, 90), azimuth in [0, 360) and signal strength
// in [0, MaxSignalStrength].
type Satellite struct {
	ID               string  `json:"id"`
	DisplayName      string  `json:"display_name"`
	PRN              int     `json:"prn"`
	ElevationDeg     float64 `json:"elevation_deg"`
	AzimuthDeg       float64 `json:"azimuth_deg"`
	SignalStrengthDb float64 `json:"signal_strength_db"`
	State            State   `json:"state"`
}

// Fix is the simulated position fix
type Fix struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	AccuracyMeters float64 `json:"accuracy_meters"`
	AltitudeMeters float64 `json:"altitude_meters"`
}

// RunState is the complete observable state of one acquisition run
type RunState struct {
	RunID            string      `json:"run_id,omitempty"`
	ProgressPercent  int         `json:"progress_percent"`
	ConnectionPhase  Phase       `json:"connection_phase"`
	ActiveSatellites []Satellite `json:"active_satellites"`
	Fix              Fix         `json:"fix"`
	StartedAt        time.Time   `json:"started_at,omitempty"`
	CompletedAt      time.Time   `json:"completed_at,omitempty"`
}

// FixValid reports whether consumers should display the fix
func (r RunState) FixValid() bool {
	return r.ConnectionPhase == PhaseConnected
}

// LockedCount returns the number of satellites in the locked state
func (r RunState) LockedCount() int {
	n := 0
	for _, sat := range r.ActiveSatellites {
		if sat.State == StateLocked {
			n++
		}
	}
	return n
}

func (r RunState) clone() RunState {
	c := r
	c.ActiveSatellites = make([]Satellite, len(r.ActiveSatellites))
	copy(c.ActiveSatellites, r.ActiveSatellites)
	return c
}

// PhaseTransition is delivered to phase observers for every phase change
type PhaseTransition struct {
	RunID    string    `json:"run_id"`
	From     Phase     `json:"from"`
	To       Phase     `json:"to"`
	Progress int       `json:"progress_percent"`
	At       time.Time `json:"at"`
}

// Status represents the current simulator status
type Status struct {
	Running     bool          `json:"running"`
	Description string        `json:"description"`
	ElapsedTime time.Duration `json:"elapsed_time"`
	State       RunState      `json:"state"`
	Spectrum    Spectrum      `json:"spectrum"`
	FixSummary  FixSummary    `json:"fix_summary"`
}
