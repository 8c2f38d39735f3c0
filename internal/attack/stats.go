package attack

import (
	"fmt"
	"sync"
	"time"
)

// RunSummary accumulates the Reports emitted by one Attacker.Run call into
// a single end-of-run snapshot: how many rounds it took, how the fixed
// point set grew, and how long it ran. It is purely observational — it
// never feeds back into the search — and is safe to share across the
// goroutine that calls Run and whatever goroutine (if any) is printing
// progress from Options.OnRound.
type RunSummary struct {
	mu sync.Mutex

	Rounds           int
	FixedPointsTotal int
	Elapsed          time.Duration

	firstRoundAt time.Duration
	lastRoundAt  time.Duration
}

// NewRunSummary returns an empty summary ready to receive Observe calls.
func NewRunSummary() *RunSummary {
	return &RunSummary{}
}

// Observe folds one round's Report into the summary. Safe for concurrent
// use, though in practice Run only ever calls OnRound from its own
// goroutine.
func (s *RunSummary) Observe(r Report) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Rounds == 0 {
		s.firstRoundAt = r.Elapsed
	}
	s.Rounds = r.Round
	s.FixedPointsTotal = r.FixedPointsTotal
	s.Elapsed = r.Elapsed
	s.lastRoundAt = r.Elapsed
}

// FixedPointsPerSecond estimates the accumulation rate over the span this
// summary has observed so far. Returns 0 if fewer than two rounds have
// been observed.
func (s *RunSummary) FixedPointsPerSecond() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	span := (s.lastRoundAt - s.firstRoundAt).Seconds()
	if span <= 0 {
		return 0
	}
	return float64(s.FixedPointsTotal) / span
}

// String renders a one-line progress summary suitable for log output.
func (s *RunSummary) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return fmt.Sprintf("round %d: %d fixed points accumulated, %s elapsed",
		s.Rounds, s.FixedPointsTotal, s.Elapsed.Round(time.Millisecond))
}
