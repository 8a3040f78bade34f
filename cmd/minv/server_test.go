package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"

	"github.com/gsimon75/matcache/internal/matcache"
	"github.com/gsimon75/matcache/internal/matio"
)

func newTestServer() *Server {
	holder := matcache.New(mat.NewDense(2, 2, []float64{4, 7, 2, 6}))
	resolver := matcache.NewResolver()
	return NewServer(holder, resolver, matcache.InversionOptions{}, 4)
}

func getInverse(t *testing.T, srv *Server) (*httptest.ResponseRecorder, [][]float64) {
	t.Helper()

	req, _ := http.NewRequest("GET", "/inverse", nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(srv.handleInverse).ServeHTTP(rr, req)

	var rows [][]float64
	if rr.Code == http.StatusOK {
		assert.NoError(t, cbor.NewDecoder(rr.Body).Decode(&rows))
	}
	return rr, rows
}

func TestServer_Full(t *testing.T) {
	srv := newTestServer()

	t.Run("First inverse is a miss", func(t *testing.T) {
		rr, rows := getInverse(t, srv)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "miss", rr.Header().Get("X-Matcache"))

		// inv([[4,7],[2,6]]) = [[0.6,-0.7],[-0.2,0.4]]
		assert.InDelta(t, 0.6, rows[0][0], 1e-12)
		assert.InDelta(t, -0.7, rows[0][1], 1e-12)
		assert.InDelta(t, -0.2, rows[1][0], 1e-12)
		assert.InDelta(t, 0.4, rows[1][1], 1e-12)
	})

	t.Run("Second inverse is a hit", func(t *testing.T) {
		rr, rows := getInverse(t, srv)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "hit", rr.Header().Get("X-Matcache"))
		assert.InDelta(t, 0.6, rows[0][0], 1e-12)
	})

	t.Run("Replacing the matrix invalidates the cache", func(t *testing.T) {
		data, _ := cbor.Marshal([][]float64{{2, 0}, {0, 2}})
		req, _ := http.NewRequest("PUT", "/matrix", bytes.NewReader(data))
		rr := httptest.NewRecorder()
		http.HandlerFunc(srv.handleMatrix).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)

		rr2, rows := getInverse(t, srv)
		assert.Equal(t, http.StatusOK, rr2.Code)
		assert.Equal(t, "miss", rr2.Header().Get("X-Matcache"))
		assert.InDelta(t, 0.5, rows[0][0], 1e-12)
		assert.InDelta(t, 0.5, rows[1][1], 1e-12)
	})

	t.Run("Singular matrix is rejected", func(t *testing.T) {
		data, _ := cbor.Marshal([][]float64{{1, 2}, {0, 0}})
		req, _ := http.NewRequest("PUT", "/matrix", bytes.NewReader(data))
		rr := httptest.NewRecorder()
		http.HandlerFunc(srv.handleMatrix).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)

		rr2, _ := getInverse(t, srv)
		assert.Equal(t, http.StatusUnprocessableEntity, rr2.Code)

		// Failure must not stick: replacing with an invertible matrix
		// works again.
		data, _ = cbor.Marshal([][]float64{{4, 0}, {0, 4}})
		req, _ = http.NewRequest("PUT", "/matrix", bytes.NewReader(data))
		rr3 := httptest.NewRecorder()
		http.HandlerFunc(srv.handleMatrix).ServeHTTP(rr3, req)
		assert.Equal(t, http.StatusOK, rr3.Code)

		rr4, rows := getInverse(t, srv)
		assert.Equal(t, http.StatusOK, rr4.Code)
		assert.Equal(t, "miss", rr4.Header().Get("X-Matcache"))
		assert.InDelta(t, 0.25, rows[0][0], 1e-12)
	})

	t.Run("Ragged matrix body is a bad request", func(t *testing.T) {
		data, _ := cbor.Marshal([][]float64{{1, 2}, {3}})
		req, _ := http.NewRequest("PUT", "/matrix", bytes.NewReader(data))
		rr := httptest.NewRecorder()
		http.HandlerFunc(srv.handleMatrix).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Health Check", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/health", nil)
		rr := httptest.NewRecorder()

		srv.handleHealth(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "OK", rr.Body.String())
	})
}

func TestServer_InvertArrow(t *testing.T) {
	srv := newTestServer()

	m := mat.NewDense(3, 3, []float64{
		1, 4, 6,
		2, 1, 7,
		3, 7, 8,
	})
	var body bytes.Buffer
	assert.NoError(t, matio.WriteIPC(&body, m))

	req, _ := http.NewRequest("POST", "/invert/arrow", &body)
	rr := httptest.NewRecorder()
	http.HandlerFunc(srv.handleInvertArrow).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	inv, err := matio.ReadIPC(rr.Body)
	assert.NoError(t, err)
	assert.InDelta(t, -0.9111, inv.At(0, 0), 1e-4)

	var prod mat.Dense
	prod.Mul(m, inv)
	eye := mat.NewDiagDense(3, []float64{1, 1, 1})
	assert.True(t, mat.EqualApprox(&prod, eye, 1e-10))

	t.Run("Garbage body", func(t *testing.T) {
		req, _ := http.NewRequest("POST", "/invert/arrow", bytes.NewReader([]byte("nope")))
		rr := httptest.NewRecorder()
		http.HandlerFunc(srv.handleInvertArrow).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
