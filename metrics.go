package qbloch

import (
	"sync"
	"time"
)

/*
Metrics counts what happened to a session: gates by kind, measurement
outcomes, animation ticks and completed transitions. It carries its own lock
so readers never contend with the session's shared-state lock.
*/
type Metrics struct {
	mu sync.RWMutex

	GateCounts   map[Gate]int64
	IgnoredGates int64 // gates issued after collapse
	Measurements int64
	Outcomes     [2]int64

	Ticks       int64
	Transitions int64
	Moves       int64
	BoundaryHit int64

	BroadcastsSent    int64
	BroadcastsDropped int64

	AverageTransitionTime time.Duration
	LastTransition        time.Time
	transitionStart       time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{
		GateCounts: make(map[Gate]int64),
	}
}

func (m *Metrics) recordGate(g Gate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GateCounts[g]++
}

func (m *Metrics) recordIgnored() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.IgnoredGates++
}

func (m *Metrics) recordMeasurement(outcome int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Measurements++
	m.GateCounts[GateMeasure]++
	if outcome == 0 || outcome == 1 {
		m.Outcomes[outcome]++
	}
}

func (m *Metrics) recordNavigation(moved bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if moved {
		m.Moves++
		return
	}
	m.BoundaryHit++
}

func (m *Metrics) recordTick() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ticks++
}

func (m *Metrics) startTransition(at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitionStart = at
}

// finishTransition folds the elapsed time of the transition into the
// running average.
func (m *Metrics) finishTransition(at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Transitions++
	m.LastTransition = at

	if m.transitionStart.IsZero() {
		return
	}

	d := at.Sub(m.transitionStart)
	m.AverageTransitionTime = (m.AverageTransitionTime*time.Duration(m.Transitions-1) + d) /
		time.Duration(m.Transitions)
	m.transitionStart = time.Time{}
}

func (m *Metrics) recordBroadcast(sent, dropped int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BroadcastsSent += int64(sent)
	m.BroadcastsDropped += int64(dropped)
}

// ZeroFraction is the share of measurements that collapsed to |0⟩.
func (m *Metrics) ZeroFraction() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Measurements == 0 {
		return 0
	}
	return float64(m.Outcomes[0]) / float64(m.Measurements)
}

func (m *Metrics) ExportMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	gates := make(map[string]int64, len(m.GateCounts))
	for g, n := range m.GateCounts {
		gates[g.String()] = n
	}

	return map[string]interface{}{
		"gates":              gates,
		"ignored_gates":      m.IgnoredGates,
		"measurements":       m.Measurements,
		"outcome_0":          m.Outcomes[0],
		"outcome_1":          m.Outcomes[1],
		"ticks":              m.Ticks,
		"transitions":        m.Transitions,
		"moves":              m.Moves,
		"boundary_hits":      m.BoundaryHit,
		"broadcasts_sent":    m.BroadcastsSent,
		"broadcasts_dropped": m.BroadcastsDropped,
		"avg_transition_ms":  m.AverageTransitionTime.Milliseconds(),
	}
}
