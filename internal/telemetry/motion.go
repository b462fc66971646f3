package telemetry

import (
	"math"
	"math/rand"
	"time"
)

// VehicleState holds the mutable kinematic state of one simulated
// vehicle. It is owned exclusively by the session runner that created it.
type VehicleState struct {
	Speed            float64 // km/h, kept within [SpeedMin, SpeedMax]
	Position         GPS
	ObstacleDistance float64 // meters, kept within [ObstacleMin, ObstacleMax]
	SpeedTrend       float64 // +1 accelerating, -1 decelerating
	RouteProgress    float64 // cumulative meters traveled
	StartedAt        time.Time
}

// MotionParams tunes the random-walk motion model. Weather or road-type
// specific profiles can be layered on top later; the zero value is not
// usable, use DefaultMotionParams.
type MotionParams struct {
	SpeedMin float64 `yaml:"speed_min"`
	SpeedMax float64 `yaml:"speed_max"`

	TrendFlipChance float64 `yaml:"trend_flip_chance"`
	SpeedStepMin    float64 `yaml:"speed_step_min"`
	SpeedStepMax    float64 `yaml:"speed_step_max"`

	ObstacleMin float64 `yaml:"obstacle_min"`
	ObstacleMax float64 `yaml:"obstacle_max"`

	// Scenario injection: once per ScenarioChance ticks on average, the
	// obstacle distance jumps to simulate cut-in traffic or a clearing lane.
	ScenarioChance float64 `yaml:"scenario_chance"`
	CutInChance    float64 `yaml:"cut_in_chance"`
	ReopenChance   float64 `yaml:"reopen_chance"`

	BearingBaseDeg  float64       `yaml:"bearing_base_deg"`
	BearingSwingDeg float64       `yaml:"bearing_swing_deg"`
	BearingPeriod   time.Duration `yaml:"bearing_period"`
}

// DefaultMotionParams returns the reference motion tuning.
func DefaultMotionParams() MotionParams {
	return MotionParams{
		SpeedMin:        20,
		SpeedMax:        140,
		TrendFlipChance: 0.10,
		SpeedStepMin:    0.5,
		SpeedStepMax:    2.5,
		ObstacleMin:     5,
		ObstacleMax:     300,
		ScenarioChance:  0.15,
		CutInChance:     0.30,
		ReopenChance:    0.40,
		BearingBaseDeg:  45,
		BearingSwingDeg: 30,
		BearingPeriod:   90 * time.Second,
	}
}

const metersPerDegree = 111320.0

// Motion advances vehicle state tick by tick. Randomness and clock are
// injected so tests can seed a deterministic walk.
type Motion struct {
	params MotionParams
	rand   *rand.Rand
	now    func() time.Time
}

// NewMotion creates a motion model. A nil rand source falls back to a
// time-seeded one; a nil clock falls back to time.Now.
func NewMotion(params MotionParams, r *rand.Rand, now func() time.Time) *Motion {
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if now == nil {
		now = time.Now
	}
	return &Motion{params: params, rand: r, now: now}
}

// NewVehicleState allocates a fresh state with a plausible initial speed
// and obstacle distance, positioned near origin with slight jitter.
func (m *Motion) NewVehicleState(origin GPS) *VehicleState {
	trend := 1.0
	if m.rand.Float64() < 0.5 {
		trend = -1.0
	}
	return &VehicleState{
		Speed:            m.uniform(60, 100),
		Position:         GPS{Lat: origin.Lat + m.uniform(-0.001, 0.001), Lng: origin.Lng + m.uniform(-0.001, 0.001)},
		ObstacleDistance: m.uniform(50, 250),
		SpeedTrend:       trend,
		StartedAt:        m.now(),
	}
}

// Advance mutates state by one tick covering the given elapsed time.
func (m *Motion) Advance(state *VehicleState, elapsed time.Duration) {
	p := m.params

	// Speed random walk with trend persistence.
	if m.rand.Float64() < p.TrendFlipChance {
		state.SpeedTrend = -state.SpeedTrend
	}
	state.Speed += state.SpeedTrend * m.uniform(p.SpeedStepMin, p.SpeedStepMax)
	state.Speed = clamp(state.Speed, p.SpeedMin, p.SpeedMax)

	// Displacement along a slowly oscillating bearing, so the track looks
	// like route-following rather than a jittery cloud.
	speedMS := state.Speed / 3.6
	displacement := speedMS * elapsed.Seconds()
	bearing := m.bearing(state.StartedAt)

	state.Position.Lat += (displacement * math.Cos(bearing)) / metersPerDegree
	state.Position.Lng += (displacement * math.Sin(bearing)) / (metersPerDegree * math.Cos(state.Position.Lat*math.Pi/180))
	state.RouteProgress += displacement

	state.ObstacleDistance = clamp(m.nextObstacle(state.ObstacleDistance), p.ObstacleMin, p.ObstacleMax)
}

// bearing oscillates around the base heading as a function of elapsed
// wall-clock time since the session started.
func (m *Motion) bearing(startedAt time.Time) float64 {
	p := m.params
	elapsed := m.now().Sub(startedAt).Seconds()
	phase := 2 * math.Pi * elapsed / p.BearingPeriod.Seconds()
	deg := p.BearingBaseDeg + p.BearingSwingDeg*math.Sin(phase)
	return deg * math.Pi / 180
}

// nextObstacle applies either a traffic scenario jump or small jitter.
func (m *Motion) nextObstacle(current float64) float64 {
	p := m.params
	if m.rand.Float64() >= p.ScenarioChance {
		return current + m.uniform(-2.5, 2.5)
	}
	switch {
	case current > 100 && m.rand.Float64() < p.CutInChance:
		// A vehicle cuts in: the gap collapses.
		return m.uniform(10, 40)
	case current < 50 && m.rand.Float64() < p.ReopenChance:
		// Obstacle clears the lane.
		return m.uniform(80, 230)
	default:
		return current + m.uniform(-10, 10)
	}
}

func (m *Motion) uniform(min, max float64) float64 {
	return min + m.rand.Float64()*(max-min)
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
