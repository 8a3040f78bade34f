package matcache

import (
	"gonum.org/v1/gonum/mat"
)

// Holder is a mutable container owning a matrix and, lazily, its inverse.
// The cached inverse is never computed here; it is only stored back by a
// Resolver. Replacing the matrix always drops the cached inverse, so a
// present cache is always the inverse of the current matrix.
//
// Holder is not safe for concurrent use. Callers that share one across
// goroutines must serialize access externally.
type Holder struct {
	matrix  *mat.Dense
	inverse *mat.Dense
}

// New wraps initial in a Holder with an empty cache slot.
// The matrix is accepted as-is; shape and invertibility are only
// checked when an inverse is actually requested.
func New(initial *mat.Dense) *Holder {
	return &Holder{matrix: initial}
}

// Matrix returns the currently held matrix.
func (h *Holder) Matrix() *mat.Dense {
	return h.matrix
}

// Replace overwrites the held matrix and unconditionally drops the
// cached inverse, even if m equals the previous matrix.
func (h *Holder) Replace(m *mat.Dense) {
	h.matrix = m
	h.inverse = nil
}

// StoreInverse fills the cache slot. The value is trusted; no check is
// made that it actually inverts the current matrix.
func (h *Holder) StoreInverse(inv *mat.Dense) {
	h.inverse = inv
}

// CachedInverse returns the cached inverse and whether one is present.
func (h *Holder) CachedInverse() (*mat.Dense, bool) {
	if h.inverse == nil {
		return nil, false
	}
	return h.inverse, true
}
