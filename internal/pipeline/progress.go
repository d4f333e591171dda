package pipeline

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressFunc receives a completion percentage in [0, 100].
type ProgressFunc func(percent float64)

// Monotonic wraps fn so it only sees non-decreasing values clamped to [0, 100].
// A nil fn yields a no-op. The wrapper is safe for concurrent use.
func Monotonic(fn ProgressFunc) ProgressFunc {
	if fn == nil {
		return func(float64) {}
	}
	var (
		mu   sync.Mutex
		last = -1.0
	)
	return func(p float64) {
		p = min(max(p, 0), 100)
		mu.Lock()
		defer mu.Unlock()
		if p < last {
			return
		}
		last = p
		fn(p)
	}
}

// ProgressCallback receives batch lifecycle events.
type ProgressCallback interface {
	// OnStart is called once with the number of items.
	OnStart(total int)

	// OnProgress is called with the overall percentage, never decreasing.
	OnProgress(percent float64)

	// OnItem is called when an item finishes; err is nil on success.
	OnItem(index int, err error)

	// OnComplete is called once after the last item.
	OnComplete(completed, failed int)
}

// NoOpProgressCallback implements ProgressCallback but does nothing.
type NoOpProgressCallback struct{}

func (NoOpProgressCallback) OnStart(int)         {}
func (NoOpProgressCallback) OnProgress(float64)  {}
func (NoOpProgressCallback) OnItem(int, error)   {}
func (NoOpProgressCallback) OnComplete(int, int) {}

// ConsoleProgressCallback draws a progress bar.
type ConsoleProgressCallback struct {
	writer         io.Writer
	prefix         string
	width          int
	lastUpdate     time.Time
	updateInterval time.Duration
	mutex          sync.Mutex
	tracker        *ProgressTracker
	showETA        bool
	showRate       bool
}

// NewConsoleProgressCallback creates a console reporter writing to writer (stderr if nil).
func NewConsoleProgressCallback(writer io.Writer, prefix string) *ConsoleProgressCallback {
	if writer == nil {
		writer = os.Stderr
	}
	return &ConsoleProgressCallback{
		writer:         writer,
		prefix:         prefix,
		width:          40,
		updateInterval: 100 * time.Millisecond,
		tracker:        NewProgressTracker(0),
		showETA:        true,
		showRate:       true,
	}
}

// WithWidth sets the progress bar width.
func (c *ConsoleProgressCallback) WithWidth(width int) *ConsoleProgressCallback {
	c.width = width
	return c
}

// WithUpdateInterval sets how frequently the bar redraws.
func (c *ConsoleProgressCallback) WithUpdateInterval(interval time.Duration) *ConsoleProgressCallback {
	c.updateInterval = interval
	return c
}

// WithOptions configures display options.
func (c *ConsoleProgressCallback) WithOptions(showETA, showRate bool) *ConsoleProgressCallback {
	c.showETA = showETA
	c.showRate = showRate
	return c
}

func (c *ConsoleProgressCallback) OnStart(total int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.tracker = NewProgressTracker(total)
	c.lastUpdate = time.Time{}
	_, _ = fmt.Fprintf(c.writer, "%s0/%d (0.0%%)\n", c.prefix, total)
}

func (c *ConsoleProgressCallback) OnProgress(percent float64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.tracker.Update(percent)
	now := time.Now()
	if now.Sub(c.lastUpdate) < c.updateInterval && percent < 100 {
		return
	}
	c.lastUpdate = now
	c.drawProgressBar(c.tracker.GetStats())
}

func (c *ConsoleProgressCallback) OnItem(index int, err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.tracker.ItemDone(err)
	if err != nil {
		_, _ = fmt.Fprintf(c.writer, "\n%sError at item %d: %v\n", c.prefix, index, err)
	}
}

func (c *ConsoleProgressCallback) OnComplete(completed, failed int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	elapsed := time.Since(c.tracker.StartTime)
	_, _ = fmt.Fprintf(c.writer, "\n%sCompleted %d, failed %d in %v\n",
		c.prefix, completed, failed, elapsed.Round(time.Millisecond))
}

func (c *ConsoleProgressCallback) drawProgressBar(stats ProgressStats) {
	filled := int(float64(c.width) * stats.Percent / 100)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", c.width-filled)
	done := stats.Completed + stats.Failed
	status := fmt.Sprintf("\r%s[%s] %d/%d (%.1f%%)", c.prefix, bar, done, stats.Total, stats.Percent)

	if c.showRate && done > 0 && stats.Elapsed > 0 {
		status += fmt.Sprintf(" %.1f/s", stats.Rate)
	}
	if c.showETA && stats.Percent > 0 && stats.Percent < 100 {
		status += fmt.Sprintf(" ETA: %v", stats.ETA.Round(time.Second))
	}
	_, _ = fmt.Fprint(c.writer, status)
}

// LogProgressCallback logs progress through slog at fixed percentage steps.
type LogProgressCallback struct {
	logger  *slog.Logger
	level   slog.Level
	prefix  string
	step    float64
	mutex   sync.Mutex
	lastLog float64
	start   time.Time
}

// NewLogProgressCallback creates a log-based reporter.
func NewLogProgressCallback(logger *slog.Logger, level slog.Level, prefix string) *LogProgressCallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogProgressCallback{logger: logger, level: level, prefix: prefix, step: 10}
}

// WithStep sets the percentage change between two progress log lines.
func (l *LogProgressCallback) WithStep(step float64) *LogProgressCallback {
	l.step = step
	return l
}

func (l *LogProgressCallback) OnStart(total int) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.start = time.Now()
	l.lastLog = 0
	l.logger.Log(nil, l.level, l.prefix+"Starting processing", "total", total)
}

func (l *LogProgressCallback) OnProgress(percent float64) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if percent-l.lastLog < l.step && percent < 100 {
		return
	}
	l.lastLog = percent
	l.logger.Log(nil, l.level, l.prefix+"Progress update",
		"percent", fmt.Sprintf("%.1f", percent),
		"elapsed", time.Since(l.start).Round(time.Millisecond),
	)
}

func (l *LogProgressCallback) OnItem(index int, err error) {
	if err != nil {
		l.logger.Log(nil, l.level, l.prefix+"Item failed", "index", index, "error", err)
	}
}

func (l *LogProgressCallback) OnComplete(completed, failed int) {
	l.logger.Log(nil, l.level, l.prefix+"Processing completed",
		"completed", completed, "failed", failed,
		"elapsed", time.Since(l.start).Round(time.Millisecond))
}

// MultiProgressCallback fans out to several callbacks.
type MultiProgressCallback struct {
	callbacks []ProgressCallback
}

// NewMultiProgressCallback creates a callback reporting to all of callbacks.
func NewMultiProgressCallback(callbacks ...ProgressCallback) *MultiProgressCallback {
	return &MultiProgressCallback{callbacks: callbacks}
}

// Add adds another progress callback.
func (m *MultiProgressCallback) Add(callback ProgressCallback) {
	m.callbacks = append(m.callbacks, callback)
}

func (m *MultiProgressCallback) OnStart(total int) {
	for _, cb := range m.callbacks {
		cb.OnStart(total)
	}
}

func (m *MultiProgressCallback) OnProgress(percent float64) {
	for _, cb := range m.callbacks {
		cb.OnProgress(percent)
	}
}

func (m *MultiProgressCallback) OnItem(index int, err error) {
	for _, cb := range m.callbacks {
		cb.OnItem(index, err)
	}
}

func (m *MultiProgressCallback) OnComplete(completed, failed int) {
	for _, cb := range m.callbacks {
		cb.OnComplete(completed, failed)
	}
}

// ThrottledProgressCallback drops progress updates that arrive too quickly.
// The first update and 100% are always delivered.
type ThrottledProgressCallback struct {
	wrapped     ProgressCallback
	minInterval time.Duration
	lastUpdate  time.Time
	mutex       sync.Mutex
}

// NewThrottledProgressCallback creates a throttled wrapper.
func NewThrottledProgressCallback(wrapped ProgressCallback, minInterval time.Duration) *ThrottledProgressCallback {
	return &ThrottledProgressCallback{wrapped: wrapped, minInterval: minInterval}
}

func (t *ThrottledProgressCallback) OnStart(total int) { t.wrapped.OnStart(total) }

func (t *ThrottledProgressCallback) OnProgress(percent float64) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	now := time.Now()
	if percent >= 100 || t.lastUpdate.IsZero() || now.Sub(t.lastUpdate) >= t.minInterval {
		t.lastUpdate = now
		t.wrapped.OnProgress(percent)
	}
}

func (t *ThrottledProgressCallback) OnItem(index int, err error) { t.wrapped.OnItem(index, err) }

func (t *ThrottledProgressCallback) OnComplete(completed, failed int) {
	t.wrapped.OnComplete(completed, failed)
}

// ProgressStats is a point-in-time view of a ProgressTracker.
type ProgressStats struct {
	Total     int           `json:"total"`
	Completed int           `json:"completed"`
	Failed    int           `json:"failed"`
	Percent   float64       `json:"percent"`
	Rate      float64       `json:"rate_per_second"`
	Elapsed   time.Duration `json:"elapsed_duration"`
	ETA       time.Duration `json:"eta_duration"`
}

// ProgressTracker accumulates item counts and derives rate and ETA.
type ProgressTracker struct {
	StartTime time.Time
	total     int
	completed int
	failed    int
	percent   float64
	mutex     sync.RWMutex
}

// NewProgressTracker creates a tracker for total items.
func NewProgressTracker(total int) *ProgressTracker {
	return &ProgressTracker{StartTime: time.Now(), total: total}
}

// Update records the overall percentage. Lower values than seen before are ignored.
func (pt *ProgressTracker) Update(percent float64) {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()

	if percent > pt.percent {
		pt.percent = min(percent, 100)
	}
}

// ItemDone counts a finished item.
func (pt *ProgressTracker) ItemDone(err error) {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()

	if err != nil {
		pt.failed++
	} else {
		pt.completed++
	}
}

// GetStats returns the current statistics.
func (pt *ProgressTracker) GetStats() ProgressStats {
	pt.mutex.RLock()
	defer pt.mutex.RUnlock()

	s := ProgressStats{
		Total:     pt.total,
		Completed: pt.completed,
		Failed:    pt.failed,
		Percent:   pt.percent,
		Elapsed:   time.Since(pt.StartTime),
	}
	if s.Elapsed > 0 {
		s.Rate = float64(pt.completed+pt.failed) / s.Elapsed.Seconds()
	}
	if pt.percent > 0 && pt.percent < 100 {
		s.ETA = time.Duration(float64(s.Elapsed) * (100 - pt.percent) / pt.percent)
	}
	return s
}

// PercentComplete returns the recorded percentage.
func (pt *ProgressTracker) PercentComplete() float64 {
	pt.mutex.RLock()
	defer pt.mutex.RUnlock()
	return pt.percent
}
