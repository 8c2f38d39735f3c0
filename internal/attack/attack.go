// Package attack implements the meet-in-the-middle collision search over
// the reduced GOST compression function: forward/backward half-key sweeps
// accumulate a set of "fixed point" messages, which are then searched
// pairwise for a genuine compression collision.
package attack

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"gostcollision/internal/gosthash"
	"gostcollision/internal/magma"
)

// Workers is the recommended worker-pool size for a sweep; it is a
// starting point for Options.Workers, not a hard limit.
const Workers = 16

// FixedPointTarget is the number of fixed points the attacker accumulates
// before attempting a pairwise collision search, per the size of F the
// attack is designed around.
const FixedPointTarget = 1 << 24

// ErrAsymmetricState is returned by NewAttacker when h's first quarter
// does not equal its second quarter.
var ErrAsymmetricState = errors.New("attack: state's first quarter must equal its second quarter")

// ErrRoundBudgetExhausted is returned by Run only when Options.MaxRounds
// is nonzero and is reached without a collision. Production callers leave
// MaxRounds at zero, in which case Run never returns this error — the
// search is unbounded by design and this ceiling exists for tests only.
var ErrRoundBudgetExhausted = errors.New("attack: round budget exhausted before a collision was found")

// RandSource supplies the uniform 16-bit randomness the parameter-d
// derivation needs. Random number generation is treated as an abstract
// source external to the attack's core logic; the default implementation
// reads from crypto/rand.
type RandSource func() (uint16, error)

func defaultRandSource() (uint16, error) {
	var buf [2]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("attack: reading randomness: %w", err)
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

// Report is emitted once per completed outer-loop round via
// Options.OnRound. It is purely informational.
type Report struct {
	Round              int
	FixedPointsThisRun int
	FixedPointsTotal   int
	Elapsed            time.Duration
}

// Options configures an Attacker. NewAttacker fills in the production
// default for any of Workers, FixedPointTarget and Rand left at its zero
// value, so the zero value is usable; NewOptions returns those defaults
// explicitly for a caller (typically a test) to override.
type Options struct {
	// Workers is the number of goroutines each sweep spawns.
	Workers int
	// FixedPointTarget is how large F must grow before a collision search
	// runs.
	FixedPointTarget int
	// MaxRounds caps the number of outer-loop rounds across all retry
	// cycles; zero means unlimited. Intended for tests only — the CLI
	// never sets it, since convergence failure is not a documented error
	// condition.
	MaxRounds int
	// Rand supplies the uniform 16-bit source used to draw c. Defaults to
	// crypto/rand if nil.
	Rand RandSource
	// OnRound, if set, is called after every completed outer-loop round.
	OnRound func(Report)
}

// NewOptions returns the production defaults: Workers and FixedPointTarget
// per the package constants, no round ceiling, crypto/rand for
// randomness.
func NewOptions() Options {
	return Options{
		Workers:          Workers,
		FixedPointTarget: FixedPointTarget,
	}
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = Workers
	}
	if o.FixedPointTarget <= 0 {
		o.FixedPointTarget = FixedPointTarget
	}
	if o.Rand == nil {
		o.Rand = defaultRandSource
	}
	return o
}

// Attacker runs the collision search against one fixed, symmetric h.
type Attacker struct {
	h    uint64
	d    uint16
	opts Options
}

// NewAttacker validates h (its first quarter must equal its second
// quarter) and draws the parameter d the sweeps are built around.
func NewAttacker(h uint64, opts Options) (*Attacker, error) {
	if (h & 0xFF) != ((h >> 8) & 0xFF) {
		return nil, ErrAsymmetricState
	}
	opts = opts.withDefaults()

	a := &Attacker{h: h, opts: opts}
	if err := a.redrawD(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Attacker) redrawD() error {
	c, err := a.opts.Rand()
	if err != nil {
		return err
	}
	y1 := gosthash.PsyPow(a.h, -12)
	y2 := gosthash.PsyPow(y1, -1)
	a.d = c ^ uint16(y1&0xFFFF) ^ uint16(y2&0xFFFF)
	return nil
}

// Run drives the outer loop to completion, returning a colliding message
// pair (m1, m2) with m1 != m2 and Compress(h,m1) == Compress(h,m2).
func (a *Attacker) Run(ctx context.Context) (m1, m2 uint64, err error) {
	start := time.Now()
	round := 0

	for {
		fp := newFixedPointSet()

		for i := 0; fp.len() < a.opts.FixedPointTarget; i++ {
			if a.opts.MaxRounds > 0 && round >= a.opts.MaxRounds {
				return 0, 0, ErrRoundBudgetExhausted
			}

			d1 := uint16(i)
			d2 := d1 ^ a.d

			table, err := a.forwardSweep(ctx, d1)
			if err != nil {
				return 0, 0, err
			}
			before := fp.len()
			if err := a.backwardSweep(ctx, d2, table, fp); err != nil {
				return 0, 0, err
			}
			round++

			if a.opts.OnRound != nil {
				a.opts.OnRound(Report{
					Round:              round,
					FixedPointsThisRun: fp.len() - before,
					FixedPointsTotal:   fp.len(),
					Elapsed:            time.Since(start),
				})
			}
		}

		if got1, got2, ok := searchCollision(a.h, fp.slice()); ok {
			return got1, got2, nil
		}

		if err := a.redrawD(); err != nil {
			return 0, 0, err
		}
	}
}

// segments splits the 32-bit HalfKey range into `workers` ascending,
// contiguous segments; the final segment extends to 2^32-1 inclusive.
func segments(workers int) [][2]uint64 {
	const total = uint64(1) << 32
	size := total / uint64(workers)

	segs := make([][2]uint64, workers)
	for i := 0; i < workers; i++ {
		start := uint64(i) * size
		end := start + size
		if i == workers-1 {
			end = total
		}
		segs[i] = [2]uint64{start, end}
	}
	return segs
}

// forwardSweep builds L_table: Block -> HalfKey for all k1 with
// L(k1) == d1.
func (a *Attacker) forwardSweep(ctx context.Context, d1 uint16) (*lTable, error) {
	table := newLTable()

	g, gctx := errgroup.WithContext(ctx)
	for _, seg := range segments(a.opts.Workers) {
		seg := seg
		g.Go(func() error {
			return forwardWorker(gctx, a.h, seg[0], seg[1], d1, table)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return table, nil
}

func forwardWorker(ctx context.Context, h uint64, start, end uint64, d1 uint16, table *lTable) error {
	left0 := uint8(h)
	right0 := uint8(h >> 8)

	for k1 := start; k1 < end; k1++ {
		if k1&0xFFFFF == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		k1u32 := uint32(k1)
		if lLow(k1u32) != d1 {
			continue
		}

		left, right := left0, right0
		for shift := 0; shift < 32; shift += 8 {
			rk := byte(k1u32 >> uint(shift))
			left, right = magma.Round(left, right, rk)
		}

		block := uint16(right)<<8 | uint16(left)
		table.insert(block, k1u32)
	}
	return nil
}

// backwardSweep scans every k2 with L(k2<<32) == d2, matches the
// resulting Block against table, and inserts the recovered message into
// fp for every match.
func (a *Attacker) backwardSweep(ctx context.Context, d2 uint16, table *lTable, fp *fixedPointSet) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, seg := range segments(a.opts.Workers) {
		seg := seg
		g.Go(func() error {
			return backwardWorker(gctx, a.h, seg[0], seg[1], d2, table, fp)
		})
	}
	return g.Wait()
}

func backwardWorker(ctx context.Context, h uint64, start, end uint64, d2 uint16, table *lTable, fp *fixedPointSet) error {
	left0 := uint8(h >> 8)
	right0 := uint8(h)

	for k2 := start; k2 < end; k2++ {
		if k2&0xFFFFF == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		k2u32 := uint32(k2)
		if lHigh(k2u32) != d2 {
			continue
		}

		left, right := left0, right0
		for shift := 24; shift >= 0; shift -= 8 {
			rk := byte(k2u32 >> uint(shift))
			left, right = magma.Round(left, right, rk)
		}

		block := uint16(left)<<8 | uint16(right)
		if k1, ok := table.lookup(block); ok {
			key := uint64(k2u32)<<32 | uint64(k1)
			m := gosthash.PInv(key) ^ h
			fp.insert(m)
		}
	}
	return nil
}

// searchCollision iterates pairs of messages in points without repetition
// and returns the first pair whose compressions under h agree.
func searchCollision(h uint64, points []uint64) (m1, m2 uint64, ok bool) {
	for i := 0; i < len(points); i++ {
		for j := i + 1; j < len(points); j++ {
			if gosthash.Compress(h, points[i]) == gosthash.Compress(h, points[j]) {
				return points[i], points[j], true
			}
		}
	}
	return 0, 0, false
}

// lTable is the forward sweep's shared Block -> HalfKey map: multi-writer
// during the forward sweep, multi-reader during the following backward
// sweep, never both at once because of the errgroup join between them.
type lTable struct {
	mu sync.RWMutex
	m  map[uint16]uint32
}

func newLTable() *lTable {
	return &lTable{m: make(map[uint16]uint32)}
}

func (t *lTable) insert(block uint16, k1 uint32) {
	t.mu.Lock()
	t.m[block] = k1
	t.mu.Unlock()
}

func (t *lTable) lookup(block uint16) (uint32, bool) {
	t.mu.RLock()
	v, ok := t.m[block]
	t.mu.RUnlock()
	return v, ok
}

// fixedPointSet is the backward sweep's shared message accumulator: a
// multi-writer set with no readers until after the sweep's join.
type fixedPointSet struct {
	mu sync.RWMutex
	m  map[uint64]struct{}
}

func newFixedPointSet() *fixedPointSet {
	return &fixedPointSet{m: make(map[uint64]struct{})}
}

func (s *fixedPointSet) insert(m uint64) {
	s.mu.Lock()
	s.m[m] = struct{}{}
	s.mu.Unlock()
}

func (s *fixedPointSet) len() int {
	s.mu.RLock()
	n := len(s.m)
	s.mu.RUnlock()
	return n
}

func (s *fixedPointSet) slice() []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]uint64, 0, len(s.m))
	for m := range s.m {
		out = append(out, m)
	}
	return out
}
