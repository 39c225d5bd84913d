// Package trig caches the half-bin cosine/sine tables shared by the DCT-II
// and DCT-IV kernels in internal/dct.
//
// Each table is keyed by the transform size N and holds, for every row
// n, the cosine and sine of the angle (n+1/2)*pi/(2N). Both DCT kernels
// build every cosine term they need from this single pair via the
// standard two-term angle-addition recurrence, so building a table costs
// one math.Sincos call per row and a transform makes no trigonometric
// calls of its own once the table is cached.
package trig

import (
	"math"
	"sync"
)

// Table holds the half-bin cosine/sine values for one transform size.
type Table struct {
	// Cos[n], Sin[n] = cos/sin((n+1/2)*pi/(2*N)), n = 0..N-1.
	Cos []float64
	Sin []float64
}

var (
	mu    sync.Mutex
	cache = map[int]*Table{}
)

// Get returns the half-bin table for size n, building and caching it on
// first use. Concurrent first use is serialized rather than raced: every
// caller gets the same bit-identical table.
func Get(n int) *Table {
	mu.Lock()
	defer mu.Unlock()

	if t, ok := cache[n]; ok {
		return t
	}

	t := build(n)
	cache[n] = t

	return t
}

func build(n int) *Table {
	t := &Table{
		Cos: make([]float64, n),
		Sin: make([]float64, n),
	}

	step := math.Pi / (2 * float64(n))
	for k := 0; k < n; k++ {
		angle := (float64(k) + 0.5) * step
		t.Sin[k], t.Cos[k] = math.Sincos(angle)
	}

	return t
}

// Reset drops every cached table. Exposed for tests that want to verify
// Get rebuilds identical tables from scratch.
func Reset() {
	mu.Lock()
	defer mu.Unlock()

	cache = map[int]*Table{}
}
