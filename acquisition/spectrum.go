package acquisition

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Band is a Galileo signal band shown in the spectrum display
type Band string

const (
	BandE1  Band = "E1"
	BandE5a Band = "E5a"
	BandE5b Band = "E5b"
	BandE6  Band = "E6"
)

// Bands lists the displayed bands in spectrum order
var Bands = []Band{BandE1, BandE5a, BandE5b, BandE6}

var bandColors = map[Band]string{
	BandE1:  "#06b6d4",
	BandE5a: "#3b82f6",
	BandE5b: "#8b5cf6",
	BandE6:  "#f59e0b",
}

// Color returns the display color of the band
func (b Band) Color() string {
	return bandColors[b]
}

const (
	WaveLifetime         = 4 * time.Second
	MaxDetectedSignals   = 999
	waveSpawnProbability = 0.6
)

// SignalWave is a decorative signal indicator in the spectrum display
type SignalWave struct {
	ID       string    `json:"id"`
	Band     Band      `json:"band"`
	Color    string    `json:"color"`
	AngleDeg float64   `json:"angle_deg"`
	Strength float64   `json:"strength"`
	BornAt   time.Time `json:"born_at"`
}

// Expired reports whether the wave has outlived WaveLifetime at now
func (w SignalWave) Expired(now time.Time) bool {
	return now.Sub(w.BornAt) >= WaveLifetime
}

// Spectrum is the state of the decorative spectrum feed
type Spectrum struct {
	Waves           []SignalWave `json:"waves"`
	DetectedSignals int          `json:"detected_signals"`
}

// advance spawns a wave with waveSpawnProbability, drops expired waves and
// bumps the detected signal counter.
func (sp *Spectrum) advance(rng *rand.Rand, now time.Time) {
	if rng.Float64() < waveSpawnProbability {
		band := Bands[rng.Intn(len(Bands))]
		sp.Waves = append(sp.Waves, SignalWave{
			ID:       uuid.NewString(),
			Band:     band,
			Color:    band.Color(),
			AngleDeg: rng.Float64() * 360,
			Strength: rng.Float64()*100 + 50,
			BornAt:   now,
		})
	}

	live := sp.Waves[:0]
	for _, w := range sp.Waves {
		if !w.Expired(now) {
			live = append(live, w)
		}
	}
	sp.Waves = live

	sp.DetectedSignals += rng.Intn(3)
	if sp.DetectedSignals > MaxDetectedSignals {
		sp.DetectedSignals = MaxDetectedSignals
	}
}

func (sp *Spectrum) reset() {
	sp.Waves = []SignalWave{}
	sp.DetectedSignals = 0
}

func (sp *Spectrum) clearWaves() {
	sp.Waves = []SignalWave{}
}

func (sp Spectrum) clone() Spectrum {
	c := sp
	c.Waves = make([]SignalWave, len(sp.Waves))
	copy(c.Waves, sp.Waves)
	return c
}

// Bar is one bar of the frequency spectrum display
type Bar struct {
	Band   Band    `json:"band"`
	Color  string  `json:"color"`
	Height float64 `json:"height"`
}

// SpectrumBars returns one bar per band. The bar of band i follows the
// signal strength of the i-th active satellite; bands without a satellite
// show noise.
func (s *Simulator) SpectrumBars() []Bar {
	s.mu.Lock()
	defer s.mu.Unlock()

	bars := make([]Bar, len(Bands))
	for i, band := range Bands {
		height := s.rng.Float64()*100 + 20
		if i < len(s.state.ActiveSatellites) {
			height = s.state.ActiveSatellites[i].SignalStrengthDb * 4
		}
		bars[i] = Bar{Band: band, Color: band.Color(), Height: height}
	}
	return bars
}
