// Package benchmark times the processing stages on a fixed input.
package benchmark

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/MeKo-Tech/imgforge/internal/common"
	"github.com/MeKo-Tech/imgforge/internal/raster"
)

// Case is one named workload. Megapixels is the input size one iteration
// touches and drives the throughput column.
type Case struct {
	Name       string
	Megapixels float64
	Run        func(ctx context.Context) error
}

// Result holds the outcome of running one case.
type Result struct {
	Name       string
	Iterations int
	Duration   time.Duration
	Allocated  uint64 // bytes allocated across all iterations
	Megapixels float64
	Error      error
}

// Average returns the mean duration of one iteration.
func (r Result) Average() time.Duration {
	if r.Iterations == 0 {
		return 0
	}
	return r.Duration / time.Duration(r.Iterations)
}

// Throughput returns megapixels processed per second.
func (r Result) Throughput() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return r.Megapixels * float64(r.Iterations) / r.Duration.Seconds()
}

func (r Result) String() string {
	if r.Error != nil {
		return fmt.Sprintf("%s: ERROR - %v", r.Name, r.Error)
	}
	return fmt.Sprintf("%s: %d iterations, avg: %v, total: %v, %.1f MP/s, alloc: %d KB/op",
		r.Name, r.Iterations, r.Average(), r.Duration, r.Throughput(),
		r.Allocated/uint64(max(r.Iterations, 1))/1024)
}

// Suite runs cases in registration order.
type Suite struct {
	mu      sync.Mutex
	cases   []Case
	results []Result
}

// NewSuite returns an empty suite.
func NewSuite() *Suite {
	return &Suite{}
}

// Add registers a case.
func (s *Suite) Add(c Case) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cases = append(s.cases, c)
}

// Names lists the registered cases.
func (s *Suite) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.cases))
	for i, c := range s.cases {
		names[i] = c.Name
	}
	return names
}

// Run runs the named case for iterations rounds.
func (s *Suite) Run(ctx context.Context, name string, iterations int) Result {
	s.mu.Lock()
	var (
		found Case
		ok    bool
	)
	for _, c := range s.cases {
		if c.Name == name {
			found, ok = c, true
			break
		}
	}
	s.mu.Unlock()

	if !ok {
		return Result{Name: name, Error: fmt.Errorf("benchmark '%s' not found", name)}
	}
	return runCase(ctx, found, iterations)
}

// RunAll runs every case and keeps the results for Results.
func (s *Suite) RunAll(ctx context.Context, iterations int) []Result {
	s.mu.Lock()
	cases := append([]Case(nil), s.cases...)
	s.mu.Unlock()

	results := make([]Result, 0, len(cases))
	for _, c := range cases {
		results = append(results, runCase(ctx, c, iterations))
	}

	s.mu.Lock()
	s.results = results
	s.mu.Unlock()
	return results
}

// Results returns the last RunAll results.
func (s *Suite) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Result(nil), s.results...)
}

func runCase(ctx context.Context, c Case, iterations int) Result {
	res := Result{Name: c.Name, Megapixels: c.Megapixels}
	if iterations < 1 {
		res.Error = fmt.Errorf("invalid iteration count %d", iterations)
		return res
	}

	runtime.GC()
	before := common.ReadMemoryStats()
	timer := common.NewNamedTimer(c.Name)

	for range iterations {
		if err := ctx.Err(); err != nil {
			res.Error = raster.Wrap("benchmark", raster.ErrCancelled, err)
			break
		}
		if err := c.Run(ctx); err != nil {
			res.Error = err
			break
		}
		res.Iterations++
	}

	res.Duration = timer.Stop()
	res.Allocated = common.ReadMemoryStats().AllocatedSince(before)
	return res
}

// WriteText prints one line per result.
func WriteText(w io.Writer, results []Result) error {
	if _, err := fmt.Fprintln(w, "Benchmark Results:"); err != nil {
		return err
	}
	for _, r := range results {
		if _, err := fmt.Fprintln(w, r.String()); err != nil {
			return err
		}
	}
	return nil
}

// WriteCSV writes results with a header row.
func WriteCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"case", "iterations", "avg_ms", "total_ms", "mp_per_s", "alloc_kb_per_op", "error"}); err != nil {
		return err
	}
	for _, r := range results {
		errMsg := ""
		if r.Error != nil {
			errMsg = r.Error.Error()
		}
		row := []string{
			r.Name,
			strconv.Itoa(r.Iterations),
			strconv.FormatFloat(float64(r.Average().Microseconds())/1000, 'f', 3, 64),
			strconv.FormatFloat(float64(r.Duration.Microseconds())/1000, 'f', 3, 64),
			strconv.FormatFloat(r.Throughput(), 'f', 2, 64),
			strconv.FormatUint(r.Allocated/uint64(max(r.Iterations, 1))/1024, 10),
			errMsg,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
