package matcache

import (
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNilHolder is returned when Resolve is called with a nil Holder.
	ErrNilHolder = errors.New("matcache: nil holder")

	// ErrNotSquare is returned when the held matrix has no inverse because
	// its dimensions differ. gonum panics on shape errors, so the resolver
	// rejects these before reaching the primitive.
	ErrNotSquare = errors.New("matcache: matrix is not square")
)

// InversionOptions are forwarded to the inversion step.
type InversionOptions struct {
	// MaxCond, when positive, accepts ill-conditioned matrices whose
	// condition number reported by gonum does not exceed it. Zero keeps
	// gonum's own tolerance, which rejects at mat.ConditionTolerance.
	MaxCond float64
}

// Resolver produces the inverse of the matrix held by a Holder, using
// the holder's cache slot when it is filled. Resolver itself is
// stateless apart from its configured observer; it may be shared across
// holders.
type Resolver struct {
	observer Observer
}

// NewResolver creates a Resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) emit(event Event, rows, cols int) {
	if r.observer == nil {
		return
	}
	r.observer.On(EventData{Event: event, Rows: rows, Cols: cols})
}

// Resolve returns the inverse of h's matrix. A filled cache slot is
// returned as-is with a hit event; otherwise the inversion primitive
// runs, its result is stored back into h, and a miss event is emitted.
// Inversion failures (non-square or singular input) propagate to the
// caller and leave the cache slot empty.
func (r *Resolver) Resolve(h *Holder, opts InversionOptions) (*mat.Dense, error) {
	if h == nil {
		return nil, ErrNilHolder
	}

	rows, cols := h.Matrix().Dims()

	if inv, ok := h.CachedInverse(); ok {
		resolveHits.Inc()
		r.emit(EventHit, rows, cols)
		return inv, nil
	}

	resolveMisses.Inc()
	r.emit(EventMiss, rows, cols)

	if rows != cols {
		inversionFailures.Inc()
		return nil, fmt.Errorf("%dx%d: %w", rows, cols, ErrNotSquare)
	}

	start := time.Now()
	var inv mat.Dense
	err := inv.Inverse(h.Matrix())
	inversionDuration.Observe(time.Since(start).Seconds())

	if err != nil && !withinTolerance(err, opts.MaxCond) {
		inversionFailures.Inc()
		return nil, err
	}

	h.StoreInverse(&inv)
	return &inv, nil
}

// withinTolerance reports whether err is a gonum condition-number
// warning that opts allow us to accept. gonum still produces a usable
// result for finite condition numbers; an exactly singular matrix
// reports +Inf and never passes.
func withinTolerance(err error, maxCond float64) bool {
	if maxCond <= 0 {
		return false
	}
	var cond mat.Condition
	if !errors.As(err, &cond) {
		return false
	}
	return float64(cond) <= maxCond
}
