package infrastructure

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeMetrics holds gauges for the Go runtime of the server process
type RuntimeMetrics struct {
	goroutines  metric.Int64Gauge
	heapAlloc   metric.Int64Gauge
	heapObjects metric.Int64Gauge
	memorySys   metric.Int64Gauge
	gcCount     metric.Int64Gauge
	gcPause     metric.Float64Histogram
	uptime      metric.Float64Gauge
}

// NewRuntimeMetrics creates the runtime gauges on meter
func NewRuntimeMetrics(meter metric.Meter) (*RuntimeMetrics, error) {
	var (
		m   RuntimeMetrics
		all []error
	)

	intGauge := func(name, desc, unit string) metric.Int64Gauge {
		opts := []metric.Int64GaugeOption{metric.WithDescription(desc)}
		if unit != "" {
			opts = append(opts, metric.WithUnit(unit))
		}
		g, err := meter.Int64Gauge(name, opts...)
		all = append(all, err)
		return g
	}

	m.goroutines = intGauge("runtime_goroutines", "Number of active goroutines", "")
	m.heapAlloc = intGauge("runtime_heap_alloc_bytes", "Bytes of allocated heap objects", "By")
	m.heapObjects = intGauge("runtime_heap_objects", "Number of allocated heap objects", "")
	m.memorySys = intGauge("runtime_memory_sys_bytes", "Bytes of memory obtained from the OS", "By")
	m.gcCount = intGauge("runtime_gc_cycles", "Number of completed GC cycles", "")

	var err error
	m.gcPause, err = meter.Float64Histogram("runtime_gc_pause_seconds",
		metric.WithDescription("Duration of the most recent GC pause"),
		metric.WithUnit("s"))
	all = append(all, err)

	m.uptime, err = meter.Float64Gauge("process_uptime_seconds",
		metric.WithDescription("Seconds since the process started"),
		metric.WithUnit("s"))
	all = append(all, err)

	if err := errors.Join(all...); err != nil {
		return nil, err
	}
	return &m, nil
}

// RuntimeStats is one sample of the runtime gauges
type RuntimeStats struct {
	Goroutines  int
	HeapAlloc   uint64
	HeapObjects uint64
	MemorySys   uint64
	GCCount     uint32
	LastGCPause time.Duration
	Uptime      time.Duration
}

// Collect samples the runtime and records the gauges
func (m *RuntimeMetrics) Collect(ctx context.Context, startTime time.Time) RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	stats := RuntimeStats{
		Goroutines:  runtime.NumGoroutine(),
		HeapAlloc:   mem.HeapAlloc,
		HeapObjects: mem.HeapObjects,
		MemorySys:   mem.Sys,
		GCCount:     mem.NumGC,
		Uptime:      time.Since(startTime),
	}
	if mem.NumGC > 0 {
		stats.LastGCPause = time.Duration(mem.PauseNs[(mem.NumGC+255)%256])
	}

	m.goroutines.Record(ctx, int64(stats.Goroutines))
	m.heapAlloc.Record(ctx, int64(stats.HeapAlloc))
	m.heapObjects.Record(ctx, int64(stats.HeapObjects))
	m.memorySys.Record(ctx, int64(stats.MemorySys))
	m.gcCount.Record(ctx, int64(stats.GCCount))
	m.uptime.Record(ctx, stats.Uptime.Seconds())
	if stats.LastGCPause > 0 {
		m.gcPause.Record(ctx, stats.LastGCPause.Seconds())
	}

	return stats
}

// RuntimeCollector samples RuntimeMetrics on a fixed interval
type RuntimeCollector struct {
	metrics   *RuntimeMetrics
	interval  time.Duration
	startTime time.Time
	logger    *slog.Logger
}

// NewRuntimeCollector creates a collector for meter
func NewRuntimeCollector(meter metric.Meter, interval time.Duration, logger *slog.Logger) (*RuntimeCollector, error) {
	metrics, err := NewRuntimeMetrics(meter)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RuntimeCollector{
		metrics:   metrics,
		interval:  interval,
		startTime: time.Now(),
		logger:    WithComponent(logger, "runtime_metrics"),
	}, nil
}

// Run samples once immediately and then every interval until ctx is done
func (c *RuntimeCollector) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	stats := c.metrics.Collect(ctx, c.startTime)
	c.logger.DebugContext(ctx, "Runtime metrics collector started",
		slog.Duration("interval", c.interval),
		slog.Int("goroutines", stats.Goroutines))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.metrics.Collect(ctx, c.startTime)
		}
	}
}

// Stats samples the runtime once
func (c *RuntimeCollector) Stats(ctx context.Context) RuntimeStats {
	return c.metrics.Collect(ctx, c.startTime)
}
