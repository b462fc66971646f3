package telemetry

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

func newTestMotion(seed int64) (*Motion, func(time.Duration)) {
	clock := time.Unix(1700000000, 0)
	m := NewMotion(DefaultMotionParams(), rand.New(rand.NewSource(seed)), func() time.Time { return clock })
	return m, func(d time.Duration) { clock = clock.Add(d) }
}

func TestNewVehicleState_PlausibleInitialValues(t *testing.T) {
	m, _ := newTestMotion(1)
	st := m.NewVehicleState(GPS{Lat: 48.2082, Lng: 16.3738})

	if st.Speed < 60 || st.Speed > 100 {
		t.Errorf("initial speed out of range: %f", st.Speed)
	}
	if st.ObstacleDistance < 50 || st.ObstacleDistance > 250 {
		t.Errorf("initial obstacle distance out of range: %f", st.ObstacleDistance)
	}
	if st.SpeedTrend != 1 && st.SpeedTrend != -1 {
		t.Errorf("trend must be ±1, got %f", st.SpeedTrend)
	}
	if math.Abs(st.Position.Lat-48.2082) > 0.01 || math.Abs(st.Position.Lng-16.3738) > 0.01 {
		t.Errorf("start position too far from origin: %+v", st.Position)
	}
}

func TestAdvance_BoundsHoldOverManyTicks(t *testing.T) {
	for seed := int64(0); seed < 5; seed++ {
		m, tick := newTestMotion(seed)
		st := m.NewVehicleState(GPS{Lat: 48.2, Lng: 16.4})
		for i := 0; i < 10000; i++ {
			tick(time.Second)
			m.Advance(st, time.Second)
			if st.Speed < 20 || st.Speed > 140 {
				t.Fatalf("seed %d tick %d: speed out of bounds: %f", seed, i, st.Speed)
			}
			if st.ObstacleDistance < 5 || st.ObstacleDistance > 300 {
				t.Fatalf("seed %d tick %d: obstacle distance out of bounds: %f", seed, i, st.ObstacleDistance)
			}
		}
	}
}

func TestAdvance_MovesVehicle(t *testing.T) {
	m, tick := newTestMotion(7)
	st := m.NewVehicleState(GPS{Lat: 48.2, Lng: 16.4})
	start := st.Position

	tick(time.Second)
	m.Advance(st, time.Second)

	if st.Position == start {
		t.Errorf("expected position to change")
	}
	if st.RouteProgress <= 0 {
		t.Errorf("expected route progress, got %f", st.RouteProgress)
	}
	// At most SpeedMax over one second.
	maxMeters := 140.0 / 3.6
	dLat := (st.Position.Lat - start.Lat) * metersPerDegree
	dLng := (st.Position.Lng - start.Lng) * metersPerDegree * math.Cos(start.Lat*math.Pi/180)
	if dist := math.Hypot(dLat, dLng); dist > maxMeters+1 {
		t.Errorf("moved %f m in one second, exceeds max %f", dist, maxMeters)
	}
}

func TestAdvance_RouteProgressMonotonic(t *testing.T) {
	m, tick := newTestMotion(3)
	st := m.NewVehicleState(GPS{})
	prev := st.RouteProgress
	for i := 0; i < 500; i++ {
		tick(time.Second)
		m.Advance(st, time.Second)
		if st.RouteProgress < prev {
			t.Fatalf("route progress regressed at tick %d: %f < %f", i, st.RouteProgress, prev)
		}
		prev = st.RouteProgress
	}
}

func TestAdvance_ObstacleScenarioJumpsOccur(t *testing.T) {
	m, tick := newTestMotion(11)
	st := m.NewVehicleState(GPS{})
	jumps := 0
	for i := 0; i < 2000; i++ {
		before := st.ObstacleDistance
		tick(time.Second)
		m.Advance(st, time.Second)
		if math.Abs(st.ObstacleDistance-before) > 30 {
			jumps++
		}
	}
	if jumps == 0 {
		t.Errorf("expected at least one scenario jump over 2000 ticks")
	}
}

func TestDefaultMotionParams(t *testing.T) {
	p := DefaultMotionParams()
	if p.SpeedMin != 20 || p.SpeedMax != 140 {
		t.Errorf("unexpected speed bounds: %+v", p)
	}
	if p.ObstacleMin != 5 || p.ObstacleMax != 300 {
		t.Errorf("unexpected obstacle bounds: %+v", p)
	}
	if p.ScenarioChance != 0.15 {
		t.Errorf("unexpected scenario chance: %f", p.ScenarioChance)
	}
}
