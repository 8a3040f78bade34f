package main

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/semaphore"

	"github.com/gsimon75/matcache/internal/matcache"
	"github.com/gsimon75/matcache/internal/matio"
)

var (
	matrixReplacements = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minv_matrix_replacements_total",
		Help: "The total number of times the held matrix was replaced",
	})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "minv_request_duration_seconds",
		Help:    "Time spent processing inverse requests",
		Buckets: prometheus.DefBuckets,
	})
)

// Server exposes one Holder over HTTP. The core holder is
// single-threaded by design, so all access goes through mu; the
// semaphore bounds how many inversions run at once on the one-shot
// Arrow path.
type Server struct {
	mu       sync.Mutex
	holder   *matcache.Holder
	resolver *matcache.Resolver
	invOpts  matcache.InversionOptions
	sem      *semaphore.Weighted
}

func NewServer(holder *matcache.Holder, resolver *matcache.Resolver, invOpts matcache.InversionOptions, maxConcurrent int) *Server {
	return &Server{
		holder:   holder,
		resolver: resolver,
		invOpts:  invOpts,
		sem:      semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

func startServer(addr string, holder *matcache.Holder, resolver *matcache.Resolver, invOpts matcache.InversionOptions, maxConcurrent int) {
	srv := NewServer(holder, resolver, invOpts, maxConcurrent)

	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/matrix", srv.handleMatrix)
	http.HandleFunc("/inverse", srv.handleInverse)
	http.HandleFunc("/invert/arrow", srv.handleInvertArrow)

	http.HandleFunc("/health", srv.handleHealth)

	log.Info().Str("addr", addr).Msg("Starting minv Server")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

var tracer = otel.Tracer("minv-server")

// handleMatrix replaces the held matrix from a CBOR [][]float64 body.
// Any cached inverse is dropped; the next /inverse call recomputes.
func (s *Server) handleMatrix(w http.ResponseWriter, r *http.Request) {
	_, span := tracer.Start(r.Context(), "handleMatrix")
	defer span.End()

	if r.Method != http.MethodPut && r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var rows [][]float64
	decoder := cbor.NewDecoder(r.Body)
	if err := decoder.Decode(&rows); err != nil {
		span.RecordError(err)
		http.Error(w, fmt.Sprintf("Bad Request (CBOR decode): %v", err), http.StatusBadRequest)
		return
	}

	m, err := matio.FromRows(rows)
	if err != nil {
		span.RecordError(err)
		http.Error(w, fmt.Sprintf("Bad Request: %v", err), http.StatusBadRequest)
		return
	}

	nr, nc := m.Dims()
	span.SetAttributes(
		attribute.Int("rows", nr),
		attribute.Int("cols", nc),
	)

	s.mu.Lock()
	s.holder.Replace(m)
	s.mu.Unlock()
	matrixReplacements.Inc()

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleInverse resolves the held matrix and returns the inverse as
// CBOR [][]float64. Whether the cache served the request is reported in
// the X-Matcache header.
func (s *Server) handleInverse(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "handleInverse")
	defer span.End()

	start := time.Now()
	defer func() {
		requestDuration.Observe(time.Since(start).Seconds())
	}()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Admission Control
	if err := s.sem.Acquire(ctx, 1); err != nil {
		log.Error().Err(err).Msg("Failed to acquire semaphore")
		http.Error(w, "Server busy", http.StatusServiceUnavailable)
		return
	}
	defer s.sem.Release(1)

	s.mu.Lock()
	_, cached := s.holder.CachedInverse()
	inv, err := s.resolver.Resolve(s.holder, s.invOpts)
	s.mu.Unlock()

	if err != nil {
		span.RecordError(err)
		http.Error(w, fmt.Sprintf("Inversion failed: %v", err), http.StatusUnprocessableEntity)
		return
	}

	outcome := "miss"
	if cached {
		outcome = "hit"
	}
	span.SetAttributes(attribute.String("outcome", outcome))
	w.Header().Set("X-Matcache", outcome)
	w.Header().Set("Content-Type", "application/cbor")

	encoder := cbor.NewEncoder(w)
	if err := encoder.Encode(matio.Rows(inv)); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// handleInvertArrow is the one-shot path: Arrow IPC matrix in, Arrow
// IPC inverse out. Each request gets a fresh holder, so nothing is
// cached across calls.
func (s *Server) handleInvertArrow(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "handleInvertArrow")
	defer span.End()

	start := time.Now()
	defer func() {
		requestDuration.Observe(time.Since(start).Seconds())
	}()

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	m, err := matio.ReadIPC(r.Body)
	if err != nil {
		span.RecordError(err)
		http.Error(w, fmt.Sprintf("Bad Request (Arrow decode): %v", err), http.StatusBadRequest)
		return
	}

	nr, nc := m.Dims()
	span.SetAttributes(
		attribute.Int("rows", nr),
		attribute.Int("cols", nc),
	)

	if err := s.sem.Acquire(ctx, 1); err != nil {
		log.Error().Err(err).Msg("Failed to acquire semaphore")
		http.Error(w, "Server busy", http.StatusServiceUnavailable)
		return
	}
	defer s.sem.Release(1)

	inv, err := s.resolver.Resolve(matcache.New(m), s.invOpts)
	if err != nil {
		span.RecordError(err)
		http.Error(w, fmt.Sprintf("Inversion failed: %v", err), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.apache.arrow.stream")
	if err := matio.WriteIPC(w, inv); err != nil {
		log.Error().Err(err).Msg("Failed to write Arrow response")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
